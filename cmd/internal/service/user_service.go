package service

import (
	"context"
	"errors"
	"strings"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/contract"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database/repository"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/cache"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
)

const profileNotesLimit = 10

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByLogin(ctx context.Context, login string) (*entity.User, error)
	FindConflicts(ctx context.Context, email, username, mobile string) ([]*entity.User, error)
	UpdateColumns(ctx context.Context, id int64, cols map[string]any) (bool, error)
	AppendUploadedNote(ctx context.Context, userID, noteID int64) error
	PullUploadedNote(ctx context.Context, userID, noteID int64) error
	RecordDownload(ctx context.Context, userID, noteID int64) (bool, error)
	FindDownloads(ctx context.Context, userID int64) ([]*entity.UserDownload, error)
	CountDownloads(ctx context.Context, userID int64) (int64, error)
}

type DefaultUserService struct {
	UserRepo UserRepository
	NoteRepo NoteRepository
	Tokens   *utils.TokenSigner
	Cache    *cache.UserCache
	Validate *validator.Validate
}

func NewUserService(
	userRepo UserRepository,
	noteRepo NoteRepository,
	tokens *utils.TokenSigner,
	userCache *cache.UserCache,
	validate *validator.Validate,
) *DefaultUserService {
	return &DefaultUserService{
		UserRepo: userRepo,
		NoteRepo: noteRepo,
		Tokens:   tokens,
		Cache:    userCache,
		Validate: validate,
	}
}

func (u *DefaultUserService) Register(ctx context.Context, req *contract.RegisterRequest) (*contract.AuthResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	req.Email = strings.ToLower(req.Email)
	if apierr := apierror.FromValidate(u.Validate.Struct(req)); apierr != nil {
		return nil, apierr
	}

	conflicts, err := u.UserRepo.FindConflicts(ctx, req.Email, req.Username, req.MobileNumber)
	if err != nil {
		log.Errorf("failed to check user conflicts: %v", err)
		return nil, apierror.InternalServerError
	}

	if apierr := conflictError(req, conflicts); apierr != nil {
		return nil, apierr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("failed to hash password: %v", err)
		return nil, apierror.InternalServerError
	}

	now := utils.NowUTC()
	user := &entity.User{
		ID:            uid.Generate(),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Username:      req.Username,
		Email:         req.Email,
		MobileNumber:  req.MobileNumber,
		PasswordHash:  string(hash),
		DateOfBirth:   req.DateOfBirth,
		Qualification: req.Qualification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err = u.UserRepo.Create(ctx, user); err != nil {
		log.Errorf("failed to create user: %v", err)
		return nil, apierror.InternalServerError
	}
	return u.issue(user)
}

// conflictError reports the first identifier already taken, checking e-mail,
// username and mobile number in that order.
func conflictError(req *contract.RegisterRequest, conflicts []*entity.User) apierror.ErrorResponse {
	checks := []struct {
		field, msg string
		taken      func(*entity.User) bool
	}{
		{"email", "Email already registered", func(e *entity.User) bool { return e.Email == req.Email }},
		{"username", "Username already taken", func(e *entity.User) bool { return e.Username == req.Username }},
		{"mobileNumber", "Mobile number already registered", func(e *entity.User) bool { return e.MobileNumber == req.MobileNumber }},
	}

	for _, check := range checks {
		for _, existing := range conflicts {
			if check.taken(existing) {
				return apierror.NewValidationError(check.field, check.msg)
			}
		}
	}
	return nil
}

func (u *DefaultUserService) Login(ctx context.Context, req *contract.LoginRequest) (*contract.AuthResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if apierr := apierror.FromValidate(u.Validate.Struct(req)); apierr != nil {
		return nil, apierr
	}

	user, err := u.UserRepo.FindByLogin(ctx, req.Username)
	if err != nil {
		log.Errorf("failed to fetch user: %v", err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.CredentialsMismatchError
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, apierror.CredentialsMismatchError
	}

	if err != nil {
		log.Errorf("failed to compare password of user %d: %v", user.ID, err)
		return nil, apierror.InternalServerError
	}
	return u.issue(user)
}

func (u *DefaultUserService) issue(user *entity.User) (*contract.AuthResponse, apierror.ErrorResponse) {
	token, err := u.Tokens.Issue(user.ID)
	if err != nil {
		log.Errorf("failed to sign token for user %d: %v", user.ID, err)
		return nil, apierror.InternalServerError
	}
	return &contract.AuthResponse{User: toUserResponse(user), Token: token}, nil
}

func (u *DefaultUserService) GetCurrentUser(actor *entity.User) *contract.UserResponse {
	return toUserResponse(actor)
}

func (u *DefaultUserService) VerifyEmail(ctx context.Context, actor *entity.User) (*contract.MessageResponse, apierror.ErrorResponse) {
	return u.setFlag(ctx, actor, "email_verified", "Email verified successfully")
}

func (u *DefaultUserService) VerifyMobile(ctx context.Context, actor *entity.User) (*contract.MessageResponse, apierror.ErrorResponse) {
	return u.setFlag(ctx, actor, "mobile_verified", "Mobile verified successfully")
}

func (u *DefaultUserService) setFlag(ctx context.Context, actor *entity.User, column, msg string) (*contract.MessageResponse, apierror.ErrorResponse) {
	found, err := u.UserRepo.UpdateColumns(ctx, actor.ID, map[string]any{column: true})
	if err != nil {
		log.Errorf("failed to set %s of user %d: %v", column, actor.ID, err)
		return nil, apierror.InternalServerError
	}

	if !found {
		return nil, apierror.UserNotFoundError
	}

	u.Cache.Invalidate(actor.ID)
	return &contract.MessageResponse{Message: msg}, nil
}

// GetProfile returns the public view of a user with their newest approved
// notes.
func (u *DefaultUserService) GetProfile(ctx context.Context, username string) (*contract.PublicProfileResponse, apierror.ErrorResponse) {
	user, err := u.UserRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		log.Errorf("failed to fetch user: %v", err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.UserNotFoundError
	}

	notes, err := u.NoteRepo.Find(ctx,
		repository.NoteFilter{UploadedByID: user.ID},
		repository.DefaultNoteSort,
		repository.Page{Number: 1, Size: profileNotesLimit},
	)
	if err != nil {
		log.Errorf("failed to fetch notes of user %d: %v", user.ID, err)
		return nil, apierror.InternalServerError
	}

	summaries := make([]*contract.ProfileNoteResponse, len(notes))
	for i, note := range notes {
		summaries[i] = &contract.ProfileNoteResponse{
			ID:            note.ID,
			Title:         note.Title,
			Subject:       note.Subject,
			Class:         note.Class,
			Views:         note.Views,
			DownloadCount: note.DownloadCount,
			CreatedAt:     utils.FormatEpoch(note.CreatedAt),
		}
	}

	return &contract.PublicProfileResponse{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		FullName:      user.FullName(),
		Username:      user.Username,
		Qualification: user.Qualification,
		UploadedNotes: summaries,
		CreatedAt:     utils.FormatEpoch(user.CreatedAt),
	}, nil
}

// UpdateProfile changes the first name, last name and qualification only.
func (u *DefaultUserService) UpdateProfile(ctx context.Context, actor *entity.User, req *contract.UpdateProfileRequest) (*contract.UserResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if apierr := apierror.FromValidate(u.Validate.Struct(req)); apierr != nil {
		return nil, apierr
	}

	cols := map[string]any{}
	if req.FirstName != nil {
		cols["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		cols["last_name"] = *req.LastName
	}
	if req.Qualification != nil {
		cols["qualification"] = *req.Qualification
	}

	if len(cols) > 0 {
		found, err := u.UserRepo.UpdateColumns(ctx, actor.ID, cols)
		if err != nil {
			log.Errorf("failed to update user %d: %v", actor.ID, err)
			return nil, apierror.InternalServerError
		}

		if !found {
			return nil, apierror.UserNotFoundError
		}
		u.Cache.Invalidate(actor.ID)
	}

	user, err := u.UserRepo.FindByID(ctx, actor.ID)
	if err != nil {
		log.Errorf("failed to fetch user: %v", err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.UserNotFoundError
	}
	return toUserResponse(user), nil
}

// GetUserNotes lists the caller's own notes, unapproved ones included.
func (u *DefaultUserService) GetUserNotes(ctx context.Context, actor *entity.User, page, limit int) (*contract.NotePageResponse, apierror.ErrorResponse) {
	p := toPage(page, limit, contract.DefaultUserPageLimit)
	filter := repository.NoteFilter{UploadedByID: actor.ID, IncludeUnapproved: true}

	notes, err := u.NoteRepo.Find(ctx, filter, repository.DefaultNoteSort, p)
	if err != nil {
		log.Errorf("failed to fetch notes of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	total, err := u.NoteRepo.Count(ctx, filter)
	if err != nil {
		log.Errorf("failed to count notes of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}
	return toNotePage(notes, total, p), nil
}

func (u *DefaultUserService) GetDownloads(ctx context.Context, actor *entity.User) ([]*contract.DownloadResponse, apierror.ErrorResponse) {
	downloads, err := u.UserRepo.FindDownloads(ctx, actor.ID)
	if err != nil {
		log.Errorf("failed to fetch downloads of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.DownloadResponse, 0, len(downloads))
	for _, d := range downloads {
		if d.Note == nil {
			continue
		}
		resp = append(resp, &contract.DownloadResponse{
			Note:         toNoteResponse(d.Note),
			DownloadedAt: utils.FormatEpoch(d.DownloadedAt),
		})
	}
	return resp, nil
}

func (u *DefaultUserService) GetStats(ctx context.Context, actor *entity.User) (*contract.UserStatsResponse, apierror.ErrorResponse) {
	stats, err := u.NoteRepo.UploaderStats(ctx, actor.ID)
	if err != nil {
		log.Errorf("failed to compute stats of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	downloaded, err := u.UserRepo.CountDownloads(ctx, actor.ID)
	if err != nil {
		log.Errorf("failed to count downloads of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	return &contract.UserStatsResponse{
		UploadedNotes:   stats.Notes,
		DownloadedNotes: downloaded,
		TotalDownloads:  stats.Downloads,
		TotalViews:      stats.Views,
		TotalLikes:      stats.Likes,
	}, nil
}

func toUserResponse(user *entity.User) *contract.UserResponse {
	return &contract.UserResponse{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		FullName:       user.FullName(),
		Username:       user.Username,
		Email:          user.Email,
		MobileNumber:   user.MobileNumber,
		DateOfBirth:    user.DateOfBirth,
		Qualification:  user.Qualification,
		EmailVerified:  user.EmailVerified,
		MobileVerified: user.MobileVerified,
		CreatedAt:      utils.FormatEpoch(user.CreatedAt),
	}
}
