package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/coiffeur/pkg/logctx"
	"github.com/fatflowers/coiffeur/pkg/response"
	"github.com/fatflowers/coiffeur/pkg/types"
)

const keyAccount = "account"

var nopLogger = zap.NewNop().Sugar()

// Claims carries the authenticated account. Subject holds the account id.
type Claims struct {
	Role types.Role `json:"role"`
	jwt.StandardClaims
}

// SignToken issues an HS256 bearer token for account valid for ttl.
func SignToken(secret string, account types.Account, ttl time.Duration, now time.Time) (string, error) {
	claims := &Claims{
		Role: account.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   account.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a bearer token and returns the account it names.
func ParseToken(secret, raw string) (types.Account, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return types.Account{}, err
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return types.Account{}, fmt.Errorf("token misses subject or role")
	}
	return types.Account{ID: claims.Subject, Role: claims.Role}, nil
}

// AuthMiddleware authenticates the bearer token and stores the account on
// the request. The request logger is enriched with account_id and role.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		raw = strings.TrimSpace(raw)
		if !found || raw == "" || secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		account, err := ParseToken(secret, raw)
		if err != nil {
			logctx.FromGin(c, nopLogger).Infow("rejected bearer token", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, nil))
			return
		}
		SetAccount(c, account)
		c.Next()
	}
}

// SetAccount stores account on the request and scopes the logger to it.
func SetAccount(c *gin.Context, account types.Account) {
	c.Set(keyAccount, account)
	c.Request = c.Request.WithContext(logctx.WithValue(c.Request.Context(), logctx.KeyAccountID, account.ID))
	setLogger(c, logctx.FromGin(c, nopLogger).With("account_id", account.ID, "role", account.Role))
}

// AccountFrom returns the authenticated account of the request.
func AccountFrom(c *gin.Context) (types.Account, bool) {
	v, ok := c.Get(keyAccount)
	if !ok {
		return types.Account{}, false
	}
	account, ok := v.(types.Account)
	return account, ok
}

// RequireRole rejects accounts whose role is not listed.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := AccountFrom(c)
		if !ok || !lo.Contains(roles, account.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, nil))
			return
		}
		c.Next()
	}
}
