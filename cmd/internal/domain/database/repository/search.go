package repository

import (
	"strings"
	"unicode"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgQuery  = `replace(plainto_tsquery('english', ?)::text, '&', '|')::tsquery`
	pgVector = `to_tsvector('english', notes.title || ' ' || notes.description || ' ' || notes.content)`
)

// textSearch is a dialect specific pair of scopes: match restricts the rows,
// rank orders them by relevance.
type textSearch struct {
	match func(*gorm.DB) *gorm.DB
	rank  func(*gorm.DB) *gorm.DB
}

func isSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}

func (d *DefaultNoteRepository) searchScope(query string) (*textSearch, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, ErrInvalidQuery
	}

	if isSQLite(d.db) {
		return sqliteSearch(terms), nil
	}
	return postgresSearch(strings.Join(terms, " ")), nil
}

func sqliteSearch(terms []string) *textSearch {
	expr := ftsMatchExpr(terms)

	return &textSearch{
		match: func(db *gorm.DB) *gorm.DB {
			if expr == "" {
				return db.Where("1 = 0")
			}
			return db.
				Joins("JOIN notes_fts ON notes_fts.rowid = notes.id").
				Where("notes_fts MATCH ?", expr)
		},
		rank: func(db *gorm.DB) *gorm.DB {
			if expr == "" {
				return db
			}
			return db.Order("bm25(notes_fts), notes.id DESC")
		},
	}
}

// ftsMatchExpr quotes every term as an FTS5 string and ORs them, so user
// input never reaches the query syntax. Terms without a letter or digit carry
// no tokens and are dropped.
func ftsMatchExpr(terms []string) string {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if !strings.ContainsFunc(t, isWordRune) {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func postgresSearch(query string) *textSearch {
	return &textSearch{
		match: func(db *gorm.DB) *gorm.DB {
			return db.Where(
				"("+pgVector+" @@ "+pgQuery+" OR EXISTS (SELECT 1 FROM note_tags WHERE note_tags.note_id = notes.id"+
					" AND to_tsvector('english', note_tags.tag) @@ "+pgQuery+"))",
				query, query,
			)
		},
		rank: func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderBy{Expression: clause.Expr{
				SQL:                "ts_rank(" + pgVector + ", " + pgQuery + ") DESC, notes.id DESC",
				Vars:               []any{query},
				WithoutParentheses: true,
			}})
		},
	}
}

// index rewrites the FTS row of a note from its current columns and tags.
// PostgreSQL indexes the columns directly, so there is nothing to do there.
func (d *DefaultNoteRepository) index(tx *gorm.DB, noteID int64) error {
	if !isSQLite(tx) {
		return nil
	}

	var note entity.Note
	if err := tx.Select("id", "title", "description", "content").First(&note, noteID).Error; err != nil {
		return err
	}

	tags := []string{}
	err := tx.Model(&entity.NoteTag{}).
		Where("note_id = ?", noteID).
		Order("position").
		Pluck("tag", &tags).Error
	if err != nil {
		return err
	}

	if err = tx.Exec("DELETE FROM notes_fts WHERE rowid = ?", noteID).Error; err != nil {
		return err
	}
	return tx.Exec(
		"INSERT INTO notes_fts (rowid, title, description, content, tags) VALUES (?, ?, ?, ?, ?)",
		note.ID, note.Title, note.Description, note.Content, strings.Join(tags, " "),
	).Error
}
