package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/coiffeur/internal/app/api/views"
	"github.com/fatflowers/coiffeur/internal/app/service/lifecycle"
	"github.com/fatflowers/coiffeur/internal/models"
	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/metrics"
	"github.com/fatflowers/coiffeur/pkg/types"
)

const (
	keySalon = "salon"

	// RenewPath is where an owner with a lapsed subscription picks a plan.
	RenewPath = "/api/v1/owner/subscription"

	gateErrorBanned  = "account_banned"
	gateErrorExpired = "subscription_expired"
	gateErrorStorage = "internal_error"

	bannedMessage  = "Your salon has been suspended by an administrator."
	expiredMessage = "Your subscription has expired. Renew it to continue."
	storageMessage = "Subscription status is temporarily unavailable."
)

// AccessChecker decides whether an owner may use the dashboard.
type AccessChecker interface {
	CheckAccess(ctx context.Context, ownerID string) (lifecycle.Result, error)
}

// GateError is the body of a blocked JSON request.
type GateError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SubscriptionGate blocks owners whose salon is banned or whose subscription
// has ended. Admins and other roles pass through. When the subscription
// state cannot be read the request fails with 500.
func SubscriptionGate(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := AccountFrom(c)
		if !ok || !account.IsOwner() {
			c.Next()
			return
		}

		log := logctx.FromGin(c, nopLogger)
		res, err := checker.CheckAccess(c.Request.Context(), account.ID)
		if err != nil {
			log.Errorw("subscription gate failed", "err", err)
			if wantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, GateError{Error: gateErrorStorage, Message: storageMessage})
			} else {
				c.AbortWithStatus(http.StatusInternalServerError)
			}
			return
		}
		metrics.GateDecision(res.Decision)

		switch res.Decision {
		case types.DecisionBanned:
			log.Infow("subscription gate blocked", "decision", res.Decision)
			block(c, gateErrorBanned, bannedMessage, views.Banned, gin.H{"Message": bannedMessage})
		case types.DecisionExpired:
			log.Infow("subscription gate blocked", "decision", res.Decision)
			block(c, gateErrorExpired, expiredMessage, views.Expired, gin.H{"Message": expiredMessage, "RenewURL": RenewPath})
		default:
			if res.Salon != nil {
				c.Set(keySalon, res.Salon)
			}
			c.Next()
		}
	}
}

// SalonFrom returns the salon the gate admitted, if the owner has one.
func SalonFrom(c *gin.Context) (*models.Salon, bool) {
	v, ok := c.Get(keySalon)
	if !ok {
		return nil, false
	}
	s, ok := v.(*models.Salon)
	return s, ok && s != nil
}

func block(c *gin.Context, code, message, page string, data gin.H) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, GateError{Error: code, Message: message})
		return
	}
	c.HTML(http.StatusForbidden, page, data)
	c.Abort()
}

// wantsJSON reports whether the client is an XHR or asks for JSON.
func wantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "json")
}
