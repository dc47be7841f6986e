package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/contract"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database/repository"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/cache"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/storage"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/uid"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/validators"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testMaxFileSize = 1024

var mobileSeq atomic.Int64

type testEnv struct {
	db    *gorm.DB
	notes *repository.DefaultNoteRepository
	users *repository.DefaultUserRepository
	store *storage.DiskStore
	svc   *DefaultNoteService
	usvc  *DefaultUserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, uid.Init(1))

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := storage.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	env := &testEnv{
		db:    db,
		notes: repository.NewNoteRepository(db),
		users: repository.NewUserRepository(db),
		store: store,
	}

	validate := validators.New()
	env.svc = NewNoteService(env.notes, env.users, store, validate, testMaxFileSize)
	env.usvc = NewUserService(
		env.users,
		env.notes,
		utils.NewTokenSigner("test-secret", time.Hour),
		cache.NewUserCache(time.Minute),
		validate,
	)
	return env
}

func (e *testEnv) user(t *testing.T, username string) *entity.User {
	t.Helper()

	user := &entity.User{
		ID:            uid.Generate(),
		FirstName:     "Test",
		LastName:      strings.ToUpper(username[:1]) + username[1:],
		Username:      username,
		Email:         username + "@example.com",
		MobileNumber:  fmt.Sprintf("9%09d", mobileSeq.Add(1)),
		PasswordHash:  "unused",
		DateOfBirth:   "2000-01-01",
		Qualification: "B.Sc",
		CreatedAt:     utils.NowUTC(),
		UpdatedAt:     utils.NowUTC(),
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

// upload stores a valid note for the actor, applying mut to the request.
func (e *testEnv) upload(t *testing.T, actor *entity.User, mut func(*contract.UploadNoteRequest)) int64 {
	t.Helper()

	req := validUpload()
	if mut != nil {
		mut(req)
	}

	resp, apierr := e.svc.UploadNote(context.Background(), actor, req, pdfFile("notes.pdf", "%PDF-1.4 body"))
	require.Nil(t, apierr)
	return resp.ID
}

func (e *testEnv) storedFiles(t *testing.T) []storage.Object {
	t.Helper()

	objects, err := e.store.List(context.Background())
	require.NoError(t, err)
	return objects
}

func validUpload() *contract.UploadNoteRequest {
	return &contract.UploadNoteRequest{
		Title:       "  Organic Chemistry  ",
		Subject:     "Chemistry",
		Class:       "12",
		Unit:        "3",
		Description: "Reaction mechanisms overview",
		Content:     strings.TrimSpace(strings.Repeat("alkene ", 20)),
		Tags:        "organic, reactions, ,organic",
	}
}

func pdfFile(name, body string) *contract.NoteFile {
	return &contract.NoteFile{
		Name:        name,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Reader:      strings.NewReader(body),
	}
}
