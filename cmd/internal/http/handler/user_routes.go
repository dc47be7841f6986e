package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/contract"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type UserService interface {
	Register(ctx context.Context, req *contract.RegisterRequest) (*contract.AuthResponse, apierror.ErrorResponse)
	Login(ctx context.Context, req *contract.LoginRequest) (*contract.AuthResponse, apierror.ErrorResponse)
	GetCurrentUser(actor *entity.User) *contract.UserResponse
	VerifyEmail(ctx context.Context, actor *entity.User) (*contract.MessageResponse, apierror.ErrorResponse)
	VerifyMobile(ctx context.Context, actor *entity.User) (*contract.MessageResponse, apierror.ErrorResponse)
	GetProfile(ctx context.Context, username string) (*contract.PublicProfileResponse, apierror.ErrorResponse)
	UpdateProfile(ctx context.Context, actor *entity.User, req *contract.UpdateProfileRequest) (*contract.UserResponse, apierror.ErrorResponse)
	GetUserNotes(ctx context.Context, actor *entity.User, page, limit int) (*contract.NotePageResponse, apierror.ErrorResponse)
	GetDownloads(ctx context.Context, actor *entity.User) ([]*contract.DownloadResponse, apierror.ErrorResponse)
	GetStats(ctx context.Context, actor *entity.User) (*contract.UserStatsResponse, apierror.ErrorResponse)
}

// CookieConfig controls the session cookie set on register and login.
type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

type DefaultUserRoute struct {
	UserService UserService
	Cookie      CookieConfig
}

func NewUserDefault(userService UserService, cookie CookieConfig) *DefaultUserRoute {
	return &DefaultUserRoute{UserService: userService, Cookie: cookie}
}

func (u *DefaultUserRoute) Register(c echo.Context) error {
	var req contract.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	resp, apierr := u.UserService.Register(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	u.setSession(c, resp.Token, u.Cookie.TTL)
	return c.JSON(http.StatusCreated, resp)
}

func (u *DefaultUserRoute) Login(c echo.Context) error {
	var req contract.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	resp, apierr := u.UserService.Login(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	u.setSession(c, resp.Token, u.Cookie.TTL)
	return c.JSON(http.StatusOK, resp)
}

func (u *DefaultUserRoute) Logout(c echo.Context) error {
	u.setSession(c, "", -1)
	return c.JSON(http.StatusOK, &contract.MessageResponse{Message: "Logged out successfully"})
}

func (u *DefaultUserRoute) Me(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	resp := echo.Map{"user": u.UserService.GetCurrentUser(user)}
	return c.JSON(http.StatusOK, &resp)
}

func (u *DefaultUserRoute) VerifyEmail(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	msg, apierr := u.UserService.VerifyEmail(c.Request().Context(), user)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, msg)
}

func (u *DefaultUserRoute) VerifyMobile(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	msg, apierr := u.UserService.VerifyMobile(c.Request().Context(), user)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, msg)
}

func (u *DefaultUserRoute) GetProfile(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("username"))
	}

	profile, apierr := u.UserService.GetProfile(c.Request().Context(), username)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, profile)
}

func (u *DefaultUserRoute) UpdateProfile(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var req contract.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	updated, apierr := u.UserService.UpdateProfile(c.Request().Context(), user, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, updated)
}

func (u *DefaultUserRoute) GetUserNotes(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var page, limit int
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, paramError(err))
	}

	notes, apierr := u.UserService.GetUserNotes(c.Request().Context(), user, page, limit)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, notes)
}

func (u *DefaultUserRoute) GetDownloads(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	downloads, apierr := u.UserService.GetDownloads(c.Request().Context(), user)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, downloads)
}

func (u *DefaultUserRoute) GetStats(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	stats, apierr := u.UserService.GetStats(c.Request().Context(), user)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, stats)
}

// setSession writes the token cookie. A negative ttl clears it.
func (u *DefaultUserRoute) setSession(c echo.Context, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     utils.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   u.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}

	if ttl < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.MaxAge = int(ttl.Seconds())
		cookie.Expires = time.Now().Add(ttl)
	}
	c.SetCookie(cookie)
}
