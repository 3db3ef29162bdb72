package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/coiffeur/internal/app/api/middleware"
	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/response"
	"github.com/fatflowers/coiffeur/pkg/types"
)

const dateLayout = "2006-01-02"

var nopLogger = zap.NewNop().Sugar()

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}

// fail writes the envelope for a service error. Storage failures are logged
// here since their details never reach the client.
func fail(c *gin.Context, err error) {
	resp := response.FromError(err)
	if resp.Code == response.APIResponseCodeError {
		logctx.FromGin(c, nopLogger).Errorw("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(http.StatusOK, resp)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response.OKT(data))
}

// account returns the caller; routes are always mounted behind the auth middleware.
func account(c *gin.Context) types.Account {
	a, _ := middleware.AccountFrom(c)
	return a
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}
