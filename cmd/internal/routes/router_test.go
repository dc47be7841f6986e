package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database/repository"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/http/handler"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/http/middleware"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/cache"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/storage"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/service"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/uid"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/validators"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	require.NoError(t, uid.Init(1))

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	uploadDir := t.TempDir()
	store, err := storage.NewDiskStore(uploadDir, "/uploads")
	require.NoError(t, err)

	noteRepo := repository.NewNoteRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokens := utils.NewTokenSigner("test-secret", time.Hour)
	userCache := cache.NewUserCache(time.Minute)
	validate := validators.New()

	noteService := service.NewNoteService(noteRepo, userRepo, store, validate, 1024)
	userService := service.NewUserService(userRepo, noteRepo, tokens, userCache, validate)

	return New(Handlers{
		Notes: handler.NewNoteDefault(noteService),
		Users: handler.NewUserDefault(userService, handler.CookieConfig{TTL: time.Hour}),
		Util:  handler.NewUtilRoute(sqlDB),
	}, Options{
		ClientURL:   "http://localhost:3000",
		UploadDir:   uploadDir,
		MaxFileSize: 1024,
		Auth: &middleware.AuthMiddlewareConfig{
			Tokens:   tokens,
			UserRepo: userRepo,
			Cache:    userCache,
		},
	})
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, token string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func register(t *testing.T, e *echo.Echo, username, mobile string) string {
	t.Helper()

	rec := do(e, jsonRequest(http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName":     "Test",
		"lastName":      "User",
		"username":      username,
		"email":         username + "@example.com",
		"password":      "secret123",
		"dateOfBirth":   "2000-01-01",
		"qualification": "B.Sc",
		"mobileNumber":  mobile,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func uploadRequest(token, filename, body string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       "Organic Chemistry",
		"subject":     "Chemistry",
		"class":       "12",
		"unit":        "3",
		"description": "Reaction mechanisms overview",
		"content":     strings.Repeat("alkene ", 20),
		"tags":        "organic, reactions",
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/pdf")
	part, _ := w.CreatePart(h)
	_, _ = part.Write([]byte(body))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/notes/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req
}

func TestAuthFlow(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, jsonRequest(http.MethodPost, "/api/auth/register", "", map[string]string{
		"firstName":     "Test",
		"lastName":      "User",
		"username":      "alice",
		"email":         "alice@example.com",
		"password":      "secret123",
		"dateOfBirth":   "2000-01-01",
		"qualification": "B.Sc",
		"mobileNumber":  "9876543210",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == utils.TokenCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	me.AddCookie(session)
	rec = do(e, me)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])

	rec = do(e, jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice@example.com",
		"password": "wrong-password",
	}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])

	rec = do(e, jsonRequest(http.MethodPost, "/api/auth/logout", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestAuthRequired(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, jsonRequest(http.MethodGet, "/api/auth/me", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please authenticate", decode(t, rec)["error"])

	rec = do(e, jsonRequest(http.MethodGet, "/api/users/stats", "not-a-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, uploadRequest("not-a-token", "a.pdf", "x"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Public routes tolerate a bad token.
	rec = do(e, jsonRequest(http.MethodGet, "/api/notes", "not-a-token", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoteLifecycle(t *testing.T) {
	e := newTestServer(t)
	alice := register(t, e, "alice", "9876543210")
	bob := register(t, e, "bob", "9876543211")

	rec := do(e, uploadRequest(alice, "Unit 3.pdf", "%PDF-1.4 body"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id := created["id"].(string)
	fileURL := created["fileUrl"].(string)
	assert.True(t, strings.HasPrefix(fileURL, "/uploads/"))

	rec = do(e, httptest.NewRequest(http.MethodGet, fileURL, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 body", rec.Body.String())

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.EqualValues(t, 1, page["totalNotes"])
	assert.EqualValues(t, 1, page["totalPages"])

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes?page=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes/search?q=alkene", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "searchTime")

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	note := decode(t, rec)
	assert.EqualValues(t, 1, note["views"])
	assert.Equal(t, []any{"organic", "reactions"}, note["tags"])
	uploader := note["uploadedBy"].(map[string]any)
	assert.Equal(t, "alice", uploader["username"])
	assert.NotContains(t, uploader, "email")

	rec = do(e, jsonRequest(http.MethodGet, "/api/notes/"+id+"/download", bob, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="Unit 3.pdf"`)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "%PDF-1.4 body", string(body))

	rec = do(e, jsonRequest(http.MethodPost, "/api/notes/"+id+"/like", bob, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"liked": true, "likesCount": float64(1)}, decode(t, rec))

	rec = do(e, jsonRequest(http.MethodGet, "/api/notes/"+id+"/related", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(e, jsonRequest(http.MethodPatch, "/api/notes/"+id, bob, map[string]string{"title": "Mine now"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, jsonRequest(http.MethodPatch, "/api/notes/"+id, alice, map[string]any{"title": "Alkenes", "tags": []string{"hydrocarbons"}}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Alkenes", decode(t, rec)["title"])

	rec = do(e, jsonRequest(http.MethodGet, "/api/users/stats", alice, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 1, stats["uploadedNotes"])
	assert.EqualValues(t, 1, stats["totalDownloads"])
	assert.EqualValues(t, 1, stats["totalLikes"])

	rec = do(e, jsonRequest(http.MethodGet, "/api/users/downloads", bob, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var downloads []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &downloads))
	require.Len(t, downloads, 1)

	rec = do(e, jsonRequest(http.MethodDelete, "/api/notes/"+id, bob, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized to delete this note", decode(t, rec)["error"])

	rec = do(e, jsonRequest(http.MethodDelete, "/api/notes/"+id, alice, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Note deleted successfully", decode(t, rec)["message"])

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, fileURL, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/notes/not-a-number", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejections(t *testing.T) {
	e := newTestServer(t)
	alice := register(t, e, "alice", "9876543210")

	rec := do(e, uploadRequest(alice, "virus.exe", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Invalid file type")

	rec = do(e, uploadRequest(alice, "big.pdf", strings.Repeat("x", 2048)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, jsonRequest(http.MethodPost, "/api/notes/upload", alice, map[string]string{"title": "No file"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec), "errors")
}

func TestPublicProfile(t *testing.T) {
	e := newTestServer(t)
	alice := register(t, e, "alice", "9876543210")

	rec := do(e, uploadRequest(alice, "a.pdf", "body"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/users/profile/alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "9876543210")
	assert.Len(t, decode(t, rec)["uploadedNotes"], 1)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/users/profile/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
