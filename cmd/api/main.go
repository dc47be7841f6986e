package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/config"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database/repository"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/http/handler"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/http/middleware"
	s3storage "github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/aws/storage"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/cache"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/storage"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/routes"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/service"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/service/jobs"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/uid"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/validators"

	"github.com/labstack/gommon/log"
)

func main() {
	cfg := config.Load()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	if err := uid.Init(cfg.App.NodeID); err != nil {
		log.Fatalf("unable to init id generator, %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("unable to open database, %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("unable to get database handle, %v", err)
	}
	defer sqlDB.Close()

	files, uploadDir := newFileStore(ctx, cfg.Storage)

	// Repositories
	noteRepo := repository.NewNoteRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	validate := validators.New()
	tokens := utils.NewTokenSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userCache := cache.NewUserCache(cfg.App.UserCacheTTL)
	noteService := service.NewNoteService(noteRepo, userRepo, files, validate, cfg.Storage.MaxFileSize)
	userService := service.NewUserService(userRepo, noteRepo, tokens, userCache, validate)

	accessLog := middleware.NewAccessLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer func() { _ = accessLog.Sync() }()

	e := routes.New(routes.Handlers{
		Notes: handler.NewNoteDefault(noteService),
		Users: handler.NewUserDefault(userService, handler.CookieConfig{
			Secure: cfg.IsProduction(),
			TTL:    cfg.Auth.TokenTTL,
		}),
		Util: handler.NewUtilRoute(sqlDB),
	}, routes.Options{
		ClientURL:   cfg.App.ClientURL,
		UploadDir:   uploadDir,
		MaxFileSize: cfg.Storage.MaxFileSize,
		Auth: &middleware.AuthMiddlewareConfig{
			Tokens:   tokens,
			UserRepo: userRepo,
			Cache:    userCache,
		},
		AccessLog: accessLog,
	})

	cleaner := jobs.NewOrphanFileCleaner(noteRepo, files, cfg.Jobs.OrphanSweepInterval, cfg.Jobs.OrphanGracePeriod)
	go cleaner.Start(ctx)

	go func() {
		if err := e.Start(":" + cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped, %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
}

// newFileStore returns the configured store and, for local disk, the
// directory to serve under /uploads.
func newFileStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, string) {
	switch cfg.Driver {
	case config.StorageLocal:
		disk, err := storage.NewDiskStore(cfg.UploadDir, "/uploads")
		if err != nil {
			log.Fatalf("unable to prepare upload directory, %v", err)
		}
		return disk, disk.Dir()

	case config.StorageS3:
		s3Store, err := s3storage.NewS3Store(ctx, cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			log.Fatalf("unable to init S3 client, %v", err)
		}
		return s3Store, ""
	}

	log.Fatalf("unsupported storage driver %q", cfg.Driver)
	return nil, ""
}
