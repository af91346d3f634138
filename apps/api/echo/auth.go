package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

const contextTokenKey = "userToken"

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// Claims represents the authorization claims transmitted via a JWT.
// Users are managed elsewhere: the token only tells who acts for which school.
type Claims struct {
	jwt.StandardClaims
	SchoolID string `json:"school"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

// Actor is who the claims authenticate.
func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, SchoolID: c.SchoolID}
}

// newJWTConfig returns the JWT auth middleware config. tokenLookup defaults to the Authorization header.
func newJWTConfig(conf *core.Config, tokenLookup ...string) middleware.JWTConfig {
	cfg := middleware.JWTConfig{
		SigningKey:    []byte(conf.Auth.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
	if len(tokenLookup) > 0 {
		cfg.TokenLookup = tokenLookup[0]
	}
	return cfg
}

func NewClaims(conf *core.Config, actor core.Actor, isAdmin bool) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			ExpiresAt: now.Add(conf.Auth.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		SchoolID: actor.SchoolID,
		IsAdmin:  isAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.Auth.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (core.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Actor{}, err
	}
	if claims.Subject == "" || claims.SchoolID == "" {
		return core.Actor{}, errUnauthorized
	}
	return claims.Actor(), nil
}
