package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) Create(ctx context.Context, user *entity.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *DefaultUserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	return u.first(ctx, "id = ?", id)
}

func (u *DefaultUserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return u.first(ctx, "username = ?", username)
}

// FindByLogin resolves either a username or an e-mail address. E-mails are
// stored lower-cased.
func (u *DefaultUserRepository) FindByLogin(ctx context.Context, login string) (*entity.User, error) {
	return u.first(ctx, "username = ? OR email = ?", login, strings.ToLower(login))
}

func (u *DefaultUserRepository) first(ctx context.Context, query string, args ...any) (*entity.User, error) {
	var user entity.User
	err := u.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindConflicts returns every user already holding one of the given
// identifiers.
func (u *DefaultUserRepository) FindConflicts(ctx context.Context, email, username, mobile string) ([]*entity.User, error) {
	users := []*entity.User{}
	err := u.db.WithContext(ctx).
		Where("email = ? OR username = ? OR mobile_number = ?", email, username, mobile).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateColumns writes the given columns and bumps updated_at. It reports
// whether the user exists.
func (u *DefaultUserRepository) UpdateColumns(ctx context.Context, id int64, cols map[string]any) (bool, error) {
	cols["updated_at"] = utils.NowUTC()

	res := u.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).UpdateColumns(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (u *DefaultUserRepository) AppendUploadedNote(ctx context.Context, userID, noteID int64) error {
	upload := &entity.UserUpload{UserID: userID, NoteID: noteID, CreatedAt: utils.NowUTC()}
	return u.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(upload).Error
}

func (u *DefaultUserRepository) PullUploadedNote(ctx context.Context, userID, noteID int64) error {
	return u.db.WithContext(ctx).
		Where("user_id = ? AND note_id = ?", userID, noteID).
		Delete(&entity.UserUpload{}).Error
}

// UploadedNoteIDs returns the user's uploads in the order they were added.
func (u *DefaultUserRepository) UploadedNoteIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := u.db.WithContext(ctx).
		Model(&entity.UserUpload{}).
		Where("user_id = ?", userID).
		Order("created_at, note_id").
		Pluck("note_id", &ids).Error
	return ids, err
}

// RecordDownload keeps the first download of a note per user. It reports
// whether a new entry was added.
func (u *DefaultUserRepository) RecordDownload(ctx context.Context, userID, noteID int64) (bool, error) {
	download := &entity.UserDownload{UserID: userID, NoteID: noteID, DownloadedAt: utils.NowUTC()}
	res := u.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Note").
		Create(download)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindDownloads returns the user's history, newest first, with the notes and
// their uploaders loaded.
func (u *DefaultUserRepository) FindDownloads(ctx context.Context, userID int64) ([]*entity.UserDownload, error) {
	downloads := []*entity.UserDownload{}
	err := u.db.WithContext(ctx).
		Preload("Note").
		Preload("Note.Uploader", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name", "username")
		}).
		Preload("Note.Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Preload("Note.Likes").
		Where("user_id = ?", userID).
		Order("downloaded_at DESC, note_id DESC").
		Find(&downloads).Error
	if err != nil {
		return nil, err
	}
	return downloads, nil
}

func (u *DefaultUserRepository) CountDownloads(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&entity.UserDownload{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
