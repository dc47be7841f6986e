package routes

import (
	"fmt"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/http/handler"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/http/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Notes *handler.DefaultNoteRoute
	Users *handler.DefaultUserRoute
	Util  *handler.DefaultUtilRoute
}

type Options struct {
	ClientURL string

	// UploadDir is served under /uploads when files are kept on local disk.
	UploadDir   string
	MaxFileSize int64

	Auth      *middleware.AuthMiddlewareConfig
	AccessLog *zap.Logger
}

func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	if opts.AccessLog != nil {
		e.Use(middleware.AccessLog(opts.AccessLog))
	}
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{opts.ClientURL},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(bodyLimit(opts.MaxFileSize)))

	if opts.UploadDir != "" {
		e.Static("/uploads", opts.UploadDir)
	}

	// Docker Compose healthcheck
	e.GET("/health", h.Util.HealthCheck)

	requireAuth := middleware.NewAuthMiddleware(opts.Auth)
	optionalAuth := middleware.NewOptionalAuthMiddleware(opts.Auth)
	api := e.Group("/api")

	// Auth
	api.POST("/auth/register", h.Users.Register)
	api.POST("/auth/login", h.Users.Login)
	api.POST("/auth/logout", h.Users.Logout)
	api.GET("/auth/me", h.Users.Me, requireAuth)
	api.POST("/auth/verify-email", h.Users.VerifyEmail, requireAuth)
	api.POST("/auth/verify-mobile", h.Users.VerifyMobile, requireAuth)

	// Notes
	api.POST("/notes/upload", h.Notes.UploadNote, requireAuth)
	api.GET("/notes", h.Notes.GetNotes, optionalAuth)
	api.GET("/notes/search", h.Notes.SearchNotes, optionalAuth)
	api.GET("/notes/:id", h.Notes.GetNote, optionalAuth)
	api.GET("/notes/:id/download", h.Notes.DownloadNote, requireAuth)
	api.POST("/notes/:id/like", h.Notes.ToggleLike, requireAuth)
	api.GET("/notes/:id/related", h.Notes.GetRelatedNotes, optionalAuth)
	api.PATCH("/notes/:id", h.Notes.UpdateNote, requireAuth)
	api.DELETE("/notes/:id", h.Notes.DeleteNote, requireAuth)

	// Users
	api.GET("/users/profile/:username", h.Users.GetProfile)
	api.PUT("/users/profile", h.Users.UpdateProfile, requireAuth)
	api.GET("/users/notes", h.Users.GetUserNotes, requireAuth)
	api.GET("/users/downloads", h.Users.GetDownloads, requireAuth)
	api.GET("/users/stats", h.Users.GetStats, requireAuth)

	return e
}

// bodyLimit leaves 1 MiB on top of the file for the other form fields.
func bodyLimit(maxFileSize int64) string {
	return fmt.Sprintf("%dK", (maxFileSize+1<<20)/1024)
}
