package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/contract"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerRequest() *contract.RegisterRequest {
	return &contract.RegisterRequest{
		FirstName:     "Nikita",
		LastName:      "Sharma",
		Username:      "nikita",
		Email:         "  Nikita@Example.COM ",
		Password:      "secret123",
		DateOfBirth:   "2001-04-12",
		Qualification: "B.Tech",
		MobileNumber:  "9876543210",
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, apierr := env.usvc.Register(ctx, registerRequest())
	require.Nil(t, apierr)
	assert.Equal(t, "nikita@example.com", resp.User.Email)
	assert.Equal(t, "Nikita Sharma", resp.User.FullName)
	assert.False(t, resp.User.EmailVerified)

	data, err := env.usvc.Tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, data.UserID)

	stored, err := env.users.FindByID(ctx, resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "secret123")
	assert.NotContains(t, string(body), stored.PasswordHash)
}

func TestRegister_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, apierr := env.usvc.Register(ctx, registerRequest())
	require.Nil(t, apierr)

	tests := []struct {
		name  string
		mut   func(*contract.RegisterRequest)
		field string
	}{
		{
			name: "email",
			mut: func(r *contract.RegisterRequest) {
				r.Username = "other"
				r.MobileNumber = "9123456789"
				r.Email = "NIKITA@example.com"
			},
			field: "email",
		},
		{
			name: "username",
			mut: func(r *contract.RegisterRequest) {
				r.Email = "other@example.com"
				r.MobileNumber = "9123456789"
			},
			field: "username",
		},
		{
			name: "mobile number",
			mut: func(r *contract.RegisterRequest) {
				r.Email = "other@example.com"
				r.Username = "other"
			},
			field: "mobileNumber",
		},
		{
			name:  "email reported first",
			mut:   func(*contract.RegisterRequest) {},
			field: "email",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := registerRequest()
			tc.mut(req)

			_, apierr := env.usvc.Register(ctx, req)
			require.NotNil(t, apierr)
			assert.Equal(t, http.StatusBadRequest, apierr.Code())

			se, ok := apierr.(*apierror.StructuredError)
			require.True(t, ok)
			require.Len(t, se.Errors, 1)
			assert.Equal(t, tc.field, se.Errors[0].Field)
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	req := registerRequest()
	req.Password = "12345"
	req.MobileNumber = "12345"
	req.DateOfBirth = "12/04/2001"

	_, apierr := env.usvc.Register(context.Background(), req)
	require.NotNil(t, apierr)

	se, ok := apierr.(*apierror.StructuredError)
	require.True(t, ok)
	assert.True(t, se.Has("password"))
	assert.True(t, se.Has("mobileNumber"))
	assert.True(t, se.Has("dateOfBirth"))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, apierr := env.usvc.Register(ctx, registerRequest())
	require.Nil(t, apierr)

	for _, login := range []string{"nikita", "Nikita@example.com"} {
		resp, apierr := env.usvc.Login(ctx, &contract.LoginRequest{Username: login, Password: "secret123"})
		require.Nil(t, apierr, login)
		assert.Equal(t, registered.User.ID, resp.User.ID)
		assert.NotEmpty(t, resp.Token)
	}

	_, apierr = env.usvc.Login(ctx, &contract.LoginRequest{Username: "nikita", Password: "wrong-password"})
	assert.Equal(t, apierror.CredentialsMismatchError, apierr)

	_, apierr = env.usvc.Login(ctx, &contract.LoginRequest{Username: "nobody", Password: "secret123"})
	assert.Equal(t, apierror.CredentialsMismatchError, apierr)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")

	env.upload(t, alice, nil)
	latest := env.upload(t, alice, func(r *contract.UploadNoteRequest) { r.Title = "Latest" })

	profile, apierr := env.usvc.GetProfile(ctx, "alice")
	require.Nil(t, apierr)
	assert.Equal(t, "alice", profile.Username)
	require.Len(t, profile.UploadedNotes, 2)
	assert.Equal(t, latest, profile.UploadedNotes[0].ID)

	body, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.NotContains(t, string(body), alice.Email)
	assert.NotContains(t, string(body), alice.MobileNumber)
	assert.NotContains(t, string(body), "password")

	_, apierr = env.usvc.GetProfile(ctx, "ghost")
	assert.Equal(t, apierror.UserNotFoundError, apierr)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	env.usvc.Cache.Set(alice)

	first := " Alicia "
	resp, apierr := env.usvc.UpdateProfile(ctx, alice, &contract.UpdateProfileRequest{FirstName: &first})
	require.Nil(t, apierr)
	assert.Equal(t, "Alicia", resp.FirstName)
	assert.Equal(t, alice.LastName, resp.LastName)
	assert.Equal(t, alice.Email, resp.Email)

	_, cached := env.usvc.Cache.Get(alice.ID)
	assert.False(t, cached)

	blank := " "
	_, apierr = env.usvc.UpdateProfile(ctx, alice, &contract.UpdateProfileRequest{LastName: &blank})
	require.NotNil(t, apierr)
	assert.Equal(t, http.StatusBadRequest, apierr.Code())
}

func TestVerifyFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")

	msg, apierr := env.usvc.VerifyEmail(ctx, alice)
	require.Nil(t, apierr)
	assert.Equal(t, "Email verified successfully", msg.Message)

	_, apierr = env.usvc.VerifyMobile(ctx, alice)
	require.Nil(t, apierr)

	stored, err := env.users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.True(t, stored.MobileVerified)
}

func TestUserNotesDownloadsAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	first := env.upload(t, alice, nil)
	second := env.upload(t, alice, nil)
	env.upload(t, bob, nil)

	require.NoError(t, env.db.Exec("UPDATE notes SET is_approved = ? WHERE id = ?", false, second).Error)

	own, apierr := env.usvc.GetUserNotes(ctx, alice, 0, 0)
	require.Nil(t, apierr)
	assert.EqualValues(t, 2, own.TotalNotes)
	require.Len(t, own.Notes, 2)
	assert.Equal(t, second, own.Notes[0].ID)

	for i := 0; i < 2; i++ {
		dl, apierr := env.svc.DownloadNote(ctx, bob, first)
		require.Nil(t, apierr)
		require.NoError(t, dl.Reader.Close())
	}
	_, apierr = env.svc.GetNoteByID(ctx, bob, first)
	require.Nil(t, apierr)
	_, apierr = env.svc.ToggleLike(ctx, bob, first)
	require.Nil(t, apierr)

	downloads, apierr := env.usvc.GetDownloads(ctx, bob)
	require.Nil(t, apierr)
	require.Len(t, downloads, 1)
	assert.Equal(t, first, downloads[0].Note.ID)
	require.NotNil(t, downloads[0].Note.UploadedBy)
	assert.Equal(t, "alice", downloads[0].Note.UploadedBy.Username)

	stats, apierr := env.usvc.GetStats(ctx, alice)
	require.Nil(t, apierr)
	assert.Equal(t, &contract.UserStatsResponse{
		UploadedNotes:   2,
		DownloadedNotes: 0,
		TotalDownloads:  2,
		TotalViews:      1,
		TotalLikes:      1,
	}, stats)

	bobStats, apierr := env.usvc.GetStats(ctx, bob)
	require.Nil(t, apierr)
	assert.EqualValues(t, 1, bobStats.DownloadedNotes)
	assert.EqualValues(t, 1, bobStats.UploadedNotes)
}
