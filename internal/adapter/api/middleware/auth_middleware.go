package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"soulcircle/internal/infrastructure/firebase"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
	"soulcircle/pkg/response"
)

const (
	ContextUID      = "uid"
	ContextUserName = "user_name"
)

type AuthMiddleware struct {
	verifier firebase.TokenVerifier
	users    *usecase.UserUseCase
}

func NewAuthMiddleware(verifier firebase.TokenVerifier, users *usecase.UserUseCase) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
	}
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for WebSocket upgrades.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// Authenticate verifies the token, makes sure a profile exists and stores
// the caller's id and display name on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		ctx := c.Request().Context()
		identity, err := m.verifier.Verify(ctx, token)
		if err != nil {
			logger.Debug("Token verification failed: %v", err)
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		user, err := m.users.EnsureProfile(ctx, identity.UID, identity.Email, identity.Name)
		if err != nil {
			return response.Error(c, err)
		}
		if err := m.users.RecordLogin(ctx, user); err != nil {
			log := logger.WithUser(identity.UID)
			log.Warn().Err(err).Msg("Failed to record login")
		}

		c.Set(ContextUID, identity.UID)
		c.Set(ContextUserName, user.DisplayName)
		return next(c)
	}
}

// UserID returns the authenticated caller, or "" outside Authenticate.
func UserID(c echo.Context) string {
	uid, _ := c.Get(ContextUID).(string)
	return uid
}

func UserName(c echo.Context) string {
	name, _ := c.Get(ContextUserName).(string)
	return name
}
