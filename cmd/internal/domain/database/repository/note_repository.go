package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInvalidQuery is returned by the text search when the query is blank.
	ErrInvalidQuery = errors.New("search query cannot be empty")

	errNoteMissing = errors.New("note does not exist")
)

// NoteFilter narrows listings. Unapproved notes are hidden unless
// IncludeUnapproved is set.
type NoteFilter struct {
	Subject           string
	Class             string
	UploadedByID      int64
	ExcludeID         int64
	IncludeUnapproved bool
}

func (f NoteFilter) scope(db *gorm.DB) *gorm.DB {
	if !f.IncludeUnapproved {
		db = db.Where("notes.is_approved = ?", true)
	}
	if f.Subject != "" {
		db = db.Where("notes.subject = ?", f.Subject)
	}
	if f.Class != "" {
		db = db.Where("notes.class_name = ?", f.Class)
	}
	if f.UploadedByID != 0 {
		db = db.Where("notes.uploaded_by_id = ?", f.UploadedByID)
	}
	if f.ExcludeID != 0 {
		db = db.Where("notes.id <> ?", f.ExcludeID)
	}
	return db
}

// Page is a 1-indexed page of Size items.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// NoteSort orders listings by one of the sortable columns; ties are broken by
// id in the same direction.
type NoteSort struct {
	Column string
	Desc   bool
}

var DefaultNoteSort = NoteSort{Column: "created_at", Desc: true}

// sortable maps the API sort keys onto columns.
var sortable = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"views":         "views",
	"downloadCount": "download_count",
	"title":         "title",
}

// ParseNoteSort accepts keys like "createdAt" or "-views". An empty string
// yields the default (newest first).
func ParseNoteSort(raw string) (NoteSort, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultNoteSort, true
	}

	desc := strings.HasPrefix(raw, "-")
	column, ok := sortable[strings.TrimPrefix(raw, "-")]
	if !ok {
		return NoteSort{}, false
	}
	return NoteSort{Column: column, Desc: desc}, true
}

func (s NoteSort) orderSQL() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("notes.%s %s, notes.id %s", s.Column, dir, dir)
}

// NoteChanges holds the owner-editable fields; nil means unchanged.
type NoteChanges struct {
	Title       *string
	Subject     *string
	Class       *string
	Unit        *string
	Description *string
	Tags        []string
	ReplaceTags bool
}

func (c NoteChanges) columns() map[string]any {
	cols := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("title", c.Title)
	set("subject", c.Subject)
	set("class_name", c.Class)
	set("unit", c.Unit)
	set("description", c.Description)
	return cols
}

type UploaderStats struct {
	Notes     int64
	Views     int64
	Downloads int64
	Likes     int64
}

type DefaultNoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db}
}

// withRelations loads the uploader's public fields, the tags and the likers.
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Uploader", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "first_name", "last_name", "username")
		}).
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Preload("Likes")
}

// Insert writes the note, its tags and its search entry in one transaction.
func (d *DefaultNoteRepository) Insert(ctx context.Context, note *entity.Note) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Uploader", "Likes").Create(note).Error; err != nil {
			return err
		}
		return d.index(tx, note.ID)
	})
}

func (d *DefaultNoteRepository) FindByID(ctx context.Context, id int64) (*entity.Note, error) {
	var note entity.Note
	err := withRelations(d.db.WithContext(ctx)).First(&note, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (d *DefaultNoteRepository) Find(ctx context.Context, filter NoteFilter, sort NoteSort, page Page) ([]*entity.Note, error) {
	notes := []*entity.Note{}
	err := withRelations(d.db.WithContext(ctx).Model(&entity.Note{})).
		Scopes(filter.scope).
		Order(sort.orderSQL()).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DefaultNoteRepository) Count(ctx context.Context, filter NoteFilter) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&entity.Note{}).
		Scopes(filter.scope).
		Count(&count).Error
	return count, err
}

// TextSearch returns the notes matching any term of query, most relevant
// first.
func (d *DefaultNoteRepository) TextSearch(ctx context.Context, query string, filter NoteFilter, page Page) ([]*entity.Note, error) {
	search, err := d.searchScope(query)
	if err != nil {
		return nil, err
	}

	notes := []*entity.Note{}
	err = withRelations(d.db.WithContext(ctx).Model(&entity.Note{})).
		Scopes(search.match, filter.scope, search.rank).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DefaultNoteRepository) CountSearch(ctx context.Context, query string, filter NoteFilter) (int64, error) {
	search, err := d.searchScope(query)
	if err != nil {
		return 0, err
	}

	var count int64
	err = d.db.WithContext(ctx).
		Model(&entity.Note{}).
		Scopes(search.match, filter.scope).
		Count(&count).Error
	return count, err
}

// Update applies owner edits and refreshes the search entry. It reports
// whether the note exists.
func (d *DefaultNoteRepository) Update(ctx context.Context, id int64, changes NoteChanges) (bool, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := changes.columns()
		cols["updated_at"] = utils.NowUTC()

		res := tx.Model(&entity.Note{}).Where("id = ?", id).UpdateColumns(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoteMissing
		}

		if changes.ReplaceTags {
			if err := tx.Where("note_id = ?", id).Delete(&entity.NoteTag{}).Error; err != nil {
				return err
			}

			tags := entity.NewNoteTags(changes.Tags)
			for i := range tags {
				tags[i].NoteID = id
			}
			if len(tags) > 0 {
				if err := tx.Create(&tags).Error; err != nil {
					return err
				}
			}
		}
		return d.index(tx, id)
	})

	if errors.Is(err, errNoteMissing) {
		return false, nil
	}
	return err == nil, err
}

func (d *DefaultNoteRepository) IncrementViews(ctx context.Context, id int64) (bool, error) {
	return d.increment(ctx, id, "views")
}

func (d *DefaultNoteRepository) IncrementDownloads(ctx context.Context, id int64) (bool, error) {
	return d.increment(ctx, id, "download_count")
}

func (d *DefaultNoteRepository) increment(ctx context.Context, id int64, column string) (bool, error) {
	res := d.db.WithContext(ctx).
		Model(&entity.Note{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			column:       gorm.Expr(column + " + ?", 1),
			"updated_at": utils.NowUTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ToggleLike removes the user's like if present and adds it otherwise. Each
// membership change is a single-row statement, so concurrent toggles by other
// users are never lost. found is false when the note does not exist.
func (d *DefaultNoteRepository) ToggleLike(ctx context.Context, noteID, userID int64) (liked bool, count int64, found bool, err error) {
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := utils.NowUTC()
		res := tx.Model(&entity.Note{}).Where("id = ?", noteID).UpdateColumn("updated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoteMissing
		}

		removed := tx.Where("note_id = ? AND user_id = ?", noteID, userID).Delete(&entity.NoteLike{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected == 0 {
			like := &entity.NoteLike{NoteID: noteID, UserID: userID, CreatedAt: now}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
				return err
			}
			liked = true
		}

		return tx.Model(&entity.NoteLike{}).Where("note_id = ?", noteID).Count(&count).Error
	})

	if errors.Is(err, errNoteMissing) {
		return false, 0, false, nil
	}
	if err != nil {
		return false, 0, false, err
	}
	return liked, count, true, nil
}

// FindRelated returns approved notes sharing the subject, the class or at
// least one tag with note, newest first.
func (d *DefaultNoteRepository) FindRelated(ctx context.Context, note *entity.Note, limit int) ([]*entity.Note, error) {
	db := d.db.WithContext(ctx)

	related := db.Where("notes.subject = ?", note.Subject).Or("notes.class_name = ?", note.Class)
	if tags := note.TagNames(); len(tags) > 0 {
		tagged := db.Model(&entity.NoteTag{}).Select("note_id").Where("tag IN ?", tags)
		related = related.Or("notes.id IN (?)", tagged)
	}

	notes := []*entity.Note{}
	err := withRelations(db.Model(&entity.Note{})).
		Scopes(NoteFilter{ExcludeID: note.ID}.scope).
		Where(related).
		Order(DefaultNoteSort.orderSQL()).
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// Delete removes the note with its tags, likes, download history and search
// entry. It reports whether the note existed.
func (d *DefaultNoteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&entity.NoteTag{}, &entity.NoteLike{}, &entity.UserDownload{}} {
			if err := tx.Where("note_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		if isSQLite(tx) {
			if err := tx.Exec("DELETE FROM notes_fts WHERE rowid = ?", id).Error; err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", id).Delete(&entity.Note{})
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	return found, err
}

// FileKeys lists the storage keys referenced by any note.
func (d *DefaultNoteRepository) FileKeys(ctx context.Context) ([]string, error) {
	keys := []string{}
	err := d.db.WithContext(ctx).Model(&entity.Note{}).Pluck("file_key", &keys).Error
	return keys, err
}

func (d *DefaultNoteRepository) UploaderStats(ctx context.Context, userID int64) (*UploaderStats, error) {
	var stats UploaderStats
	err := d.db.WithContext(ctx).
		Model(&entity.Note{}).
		Select("COUNT(*) AS notes, COALESCE(SUM(views), 0) AS views, COALESCE(SUM(download_count), 0) AS downloads").
		Where("uploaded_by_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	err = d.db.WithContext(ctx).
		Model(&entity.NoteLike{}).
		Joins("JOIN notes ON notes.id = note_likes.note_id").
		Where("notes.uploaded_by_id = ?", userID).
		Count(&stats.Likes).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
