package middleware

import (
	"context"
	"net/http"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/cache"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
}

type AuthMiddlewareConfig struct {
	Tokens   *utils.TokenSigner
	UserRepo UserRepository
	Cache    *cache.UserCache
}

// NewAuthMiddleware rejects requests without a valid session.
func NewAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenData, err := cfg.Tokens.ParseTokenDataCtx(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, apierror.UnauthorizedError)
			}

			user, err := cfg.resolve(c.Request().Context(), tokenData.UserID)
			if err != nil {
				log.Errorf("failed to fetch user %d: %v", tokenData.UserID, err)
				return c.JSON(http.StatusInternalServerError, apierror.InternalServerError)
			}

			if user == nil {
				// Valid token for an account that no longer exists.
				return c.JSON(http.StatusUnauthorized, apierror.AuthUserNotFoundError)
			}

			c.Set(utils.UserContextKey, user)
			return next(c)
		}
	}
}

// NewOptionalAuthMiddleware attaches the user when a valid session is
// present and lets the request through as anonymous otherwise.
func NewOptionalAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if utils.TokenFromContext(c) == "" {
				return next(c)
			}

			tokenData, err := cfg.Tokens.ParseTokenDataCtx(c)
			if err != nil {
				return next(c)
			}

			user, err := cfg.resolve(c.Request().Context(), tokenData.UserID)
			if err != nil {
				log.Errorf("failed to fetch user %d: %v", tokenData.UserID, err)
				return c.JSON(http.StatusInternalServerError, apierror.InternalServerError)
			}

			if user != nil {
				c.Set(utils.UserContextKey, user)
			}
			return next(c)
		}
	}
}

func (cfg *AuthMiddlewareConfig) resolve(ctx context.Context, id int64) (*entity.User, error) {
	if cfg.Cache != nil {
		if user, ok := cfg.Cache.Get(id); ok {
			return user, nil
		}
	}

	user, err := cfg.UserRepo.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	if cfg.Cache != nil {
		cfg.Cache.Set(user)
	}
	return user, nil
}
