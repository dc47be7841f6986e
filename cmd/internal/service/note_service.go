package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/contract"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/database/repository"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/policy"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/infrastructure/storage"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const wordsPerMinute = 200

type NoteRepository interface {
	Insert(ctx context.Context, note *entity.Note) error
	FindByID(ctx context.Context, id int64) (*entity.Note, error)
	Find(ctx context.Context, filter repository.NoteFilter, sort repository.NoteSort, page repository.Page) ([]*entity.Note, error)
	Count(ctx context.Context, filter repository.NoteFilter) (int64, error)
	TextSearch(ctx context.Context, query string, filter repository.NoteFilter, page repository.Page) ([]*entity.Note, error)
	CountSearch(ctx context.Context, query string, filter repository.NoteFilter) (int64, error)
	Update(ctx context.Context, id int64, changes repository.NoteChanges) (bool, error)
	IncrementViews(ctx context.Context, id int64) (bool, error)
	IncrementDownloads(ctx context.Context, id int64) (bool, error)
	ToggleLike(ctx context.Context, noteID, userID int64) (liked bool, count int64, found bool, err error)
	FindRelated(ctx context.Context, note *entity.Note, limit int) ([]*entity.Note, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UploaderStats(ctx context.Context, userID int64) (*repository.UploaderStats, error)
}

type DefaultNoteService struct {
	NoteRepo    NoteRepository
	UserRepo    UserRepository
	Files       storage.FileStore
	Policy      *policy.NotePolicy
	Validate    *validator.Validate
	MaxFileSize int64
}

func NewNoteService(
	noteRepo NoteRepository,
	userRepo UserRepository,
	files storage.FileStore,
	validate *validator.Validate,
	maxFileSize int64,
) *DefaultNoteService {
	if maxFileSize <= 0 {
		maxFileSize = contract.DefaultMaxFileSizeBytes
	}

	return &DefaultNoteService{
		NoteRepo:    noteRepo,
		UserRepo:    userRepo,
		Files:       files,
		Policy:      policy.NewNotePolicy(),
		Validate:    validate,
		MaxFileSize: maxFileSize,
	}
}

// UploadNote validates everything before touching storage, then writes the
// file, the note and the uploader's back-reference in that order. A failing
// step undoes the earlier ones.
func (n *DefaultNoteService) UploadNote(ctx context.Context, actor *entity.User, req *contract.UploadNoteRequest, file *contract.NoteFile) (*contract.UploadNoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if apierr := apierror.FromValidate(n.Validate.Struct(req)); apierr != nil {
		return nil, apierr
	}

	if apierr := n.checkNoteFile(file); apierr != nil {
		return nil, apierr
	}

	stored, err := n.Files.Save(ctx, file.Reader, file.Name)
	if err != nil {
		log.Errorf("failed to store note file: %v", err)
		return nil, apierror.InternalServerError
	}

	// The declared size may understate what was actually streamed.
	if stored.Size > n.MaxFileSize {
		n.discardFile(ctx, stored.Key)
		return nil, apierror.NewFileTooLargeError(n.MaxFileSize)
	}

	now := utils.NowUTC()
	note := &entity.Note{
		ID:           uid.Generate(),
		Title:        req.Title,
		Subject:      req.Subject,
		Class:        req.Class,
		Unit:         req.Unit,
		Description:  req.Description,
		Content:      req.Content,
		FileKey:      stored.Key,
		FileURL:      stored.URL,
		FileName:     filepath.Base(file.Name),
		FileSize:     stored.Size,
		ThumbnailURL: entity.DefaultThumbnailURL,
		ReadingTime:  ReadingTime(req.Content),
		IsApproved:   true,
		UploadedByID: actor.ID,
		Tags:         entity.NewNoteTags(utils.SplitTags(req.Tags)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = n.NoteRepo.Insert(ctx, note); err != nil {
		log.Errorf("failed to save note: %v", err)
		n.discardFile(ctx, stored.Key)
		return nil, apierror.InternalServerError
	}

	if err = n.UserRepo.AppendUploadedNote(ctx, actor.ID, note.ID); err != nil {
		log.Errorf("failed to link note %d to user %d: %v", note.ID, actor.ID, err)
		if _, derr := n.NoteRepo.Delete(context.WithoutCancel(ctx), note.ID); derr != nil {
			log.Errorf("failed to roll back note %d: %v", note.ID, derr)
		}
		n.discardFile(ctx, stored.Key)
		return nil, apierror.InternalServerError
	}

	return &contract.UploadNoteResponse{
		ID:      note.ID,
		Title:   note.Title,
		Subject: note.Subject,
		FileURL: note.FileURL,
	}, nil
}

// GetNotes lists approved notes. A search term switches to relevance order
// and the sort key is ignored.
func (n *DefaultNoteService) GetNotes(ctx context.Context, q *contract.ListNotesQuery) (*contract.NotePageResponse, apierror.ErrorResponse) {
	page := toPage(q.Page, q.Limit, contract.DefaultPageLimit)
	filter := repository.NoteFilter{
		Subject: strings.TrimSpace(q.Subject),
		Class:   strings.TrimSpace(q.Class),
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		return n.search(ctx, search, filter, page)
	}

	sort, ok := repository.ParseNoteSort(q.Sort)
	if !ok {
		return nil, apierror.NewValidationError("sort", "Value must be one of: createdAt, updatedAt, views, downloadCount, title, optionally prefixed with '-'")
	}

	notes, err := n.NoteRepo.Find(ctx, filter, sort, page)
	if err != nil {
		log.Errorf("failed to fetch notes: %v", err)
		return nil, apierror.InternalServerError
	}

	total, err := n.NoteRepo.Count(ctx, filter)
	if err != nil {
		log.Errorf("failed to count notes: %v", err)
		return nil, apierror.InternalServerError
	}
	return toNotePage(notes, total, page), nil
}

func (n *DefaultNoteService) SearchNotes(ctx context.Context, q *contract.SearchNotesQuery) (*contract.NotePageResponse, apierror.ErrorResponse) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, apierror.NewValidationError("q", "Search query is required")
	}

	resp, apierr := n.search(ctx, query, repository.NoteFilter{}, toPage(q.Page, q.Limit, contract.DefaultPageLimit))
	if apierr != nil {
		return nil, apierr
	}

	resp.SearchTime = utils.NowUTC()
	return resp, nil
}

func (n *DefaultNoteService) search(ctx context.Context, query string, filter repository.NoteFilter, page repository.Page) (*contract.NotePageResponse, apierror.ErrorResponse) {
	notes, err := n.NoteRepo.TextSearch(ctx, query, filter, page)
	if errors.Is(err, repository.ErrInvalidQuery) {
		return nil, apierror.NewValidationError("q", "Search query is required")
	}

	if err != nil {
		log.Errorf("failed to search notes: %v", err)
		return nil, apierror.InternalServerError
	}

	total, err := n.NoteRepo.CountSearch(ctx, query, filter)
	if err != nil {
		log.Errorf("failed to count search results: %v", err)
		return nil, apierror.InternalServerError
	}
	return toNotePage(notes, total, page), nil
}

// GetNoteByID returns the note and counts the view. Views are not
// deduplicated per user.
func (n *DefaultNoteService) GetNoteByID(ctx context.Context, actor *entity.User, id int64) (*contract.NoteResponse, apierror.ErrorResponse) {
	note, apierr := n.findNote(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	found, err := n.NoteRepo.IncrementViews(ctx, id)
	if err != nil {
		log.Errorf("failed to count view of note %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if !found {
		return nil, apierror.NoteNotFoundError
	}

	note.Views++
	return toNoteResponse(note), nil
}

// DownloadNote opens the stored file, then counts the download and records it
// in the user's history. The caller must close the returned reader.
func (n *DefaultNoteService) DownloadNote(ctx context.Context, actor *entity.User, id int64) (*contract.NoteDownload, apierror.ErrorResponse) {
	note, apierr := n.findNote(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	reader, err := n.Files.Open(ctx, note.FileKey)
	if errors.Is(err, storage.ErrNotFound) {
		log.Errorf("note %d references missing file %q", note.ID, note.FileKey)
		return nil, apierror.FileNotFoundError
	}

	if err != nil {
		log.Errorf("failed to open file of note %d: %v", note.ID, err)
		return nil, apierror.InternalServerError
	}

	fail := func(apierr apierror.ErrorResponse) (*contract.NoteDownload, apierror.ErrorResponse) {
		_ = reader.Close()
		return nil, apierr
	}

	found, err := n.NoteRepo.IncrementDownloads(ctx, note.ID)
	if err != nil {
		log.Errorf("failed to count download of note %d: %v", note.ID, err)
		return fail(apierror.InternalServerError)
	}

	if !found {
		return fail(apierror.NoteNotFoundError)
	}

	if _, err = n.UserRepo.RecordDownload(ctx, actor.ID, note.ID); err != nil {
		log.Errorf("failed to record download of note %d by user %d: %v", note.ID, actor.ID, err)
		return fail(apierror.InternalServerError)
	}

	return &contract.NoteDownload{
		Reader:   reader,
		FileName: note.FileName,
		FileSize: note.FileSize,
	}, nil
}

func (n *DefaultNoteService) ToggleLike(ctx context.Context, actor *entity.User, id int64) (*contract.LikeResponse, apierror.ErrorResponse) {
	liked, count, found, err := n.NoteRepo.ToggleLike(ctx, id, actor.ID)
	if err != nil {
		log.Errorf("failed to toggle like of note %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if !found {
		return nil, apierror.NoteNotFoundError
	}
	return &contract.LikeResponse{Liked: liked, LikesCount: count}, nil
}

func (n *DefaultNoteService) GetRelatedNotes(ctx context.Context, actor *entity.User, id int64) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	note, apierr := n.findNote(ctx, actor, id)
	if apierr != nil {
		return nil, apierr
	}

	related, err := n.NoteRepo.FindRelated(ctx, note, contract.RelatedNotesLimit)
	if err != nil {
		log.Errorf("failed to fetch notes related to %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponses(related), nil
}

func (n *DefaultNoteService) UpdateNote(ctx context.Context, actor *entity.User, id int64, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if apierr := apierror.FromValidate(n.Validate.Struct(req)); apierr != nil {
		return nil, apierr
	}

	note, err := n.NoteRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch note: %v", err)
		return nil, apierror.InternalServerError
	}

	if apierr := n.Policy.CanUpdate(note, actor); apierr != nil {
		return nil, apierr
	}

	changes := repository.NoteChanges{
		Title:       req.Title,
		Subject:     req.Subject,
		Class:       req.Class,
		Unit:        req.Unit,
		Description: req.Description,
	}
	if req.Tags != nil {
		changes.Tags = utils.NormalizeTags(req.Tags)
		changes.ReplaceTags = true
	}

	found, err := n.NoteRepo.Update(ctx, id, changes)
	if err != nil {
		log.Errorf("failed to update note %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if !found {
		return nil, apierror.NoteNotFoundError
	}

	updated, err := n.NoteRepo.FindByID(ctx, id)
	if err != nil || updated == nil {
		log.Errorf("failed to reload note %d: %v", id, err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponse(updated), nil
}

// DeleteNote removes the file, then the note, then the owner's
// back-reference. Only the note removal must succeed.
func (n *DefaultNoteService) DeleteNote(ctx context.Context, actor *entity.User, id int64) apierror.ErrorResponse {
	note, err := n.NoteRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch note: %v", err)
		return apierror.InternalServerError
	}

	if apierr := n.Policy.CanDelete(note, actor); apierr != nil {
		return apierr
	}

	if err = n.Files.Delete(ctx, note.FileKey); err != nil {
		log.Errorf("failed to delete file %q of note %d: %v", note.FileKey, note.ID, err)
	}

	found, err := n.NoteRepo.Delete(ctx, note.ID)
	if err != nil {
		log.Errorf("failed to delete note %d: %v", note.ID, err)
		return apierror.InternalServerError
	}

	if !found {
		return apierror.NoteNotFoundError
	}

	if err = n.UserRepo.PullUploadedNote(ctx, note.UploadedByID, note.ID); err != nil {
		log.Errorf("failed to unlink note %d from user %d: %v", note.ID, note.UploadedByID, err)
	}
	return nil
}

func (n *DefaultNoteService) findNote(ctx context.Context, actor *entity.User, id int64) (*entity.Note, apierror.ErrorResponse) {
	note, err := n.NoteRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch note: %v", err)
		return nil, apierror.InternalServerError
	}

	if apierr := n.Policy.CanSee(note, actor); apierr != nil {
		return nil, apierr
	}
	return note, nil
}

func (n *DefaultNoteService) checkNoteFile(file *contract.NoteFile) apierror.ErrorResponse {
	if file == nil || file.Reader == nil {
		return apierror.MissingNoteFileError
	}

	if strings.TrimSpace(file.Name) == "" {
		return apierror.MissingFileNameError
	}

	ext, ok := utils.CheckFileExt(file.Name, contract.ValidNoteFileTypes)
	if !ok {
		return apierror.NewInvalidFileTypeError(ext)
	}

	mediaType, _, err := mime.ParseMediaType(file.ContentType)
	if err != nil || !slices.Contains(contract.ValidNoteMimeTypes, strings.ToLower(mediaType)) {
		return apierror.NewInvalidFileTypeError(file.ContentType)
	}

	if file.Size > n.MaxFileSize {
		return apierror.NewFileTooLargeError(n.MaxFileSize)
	}
	return nil
}

// discardFile removes a file written by a failed upload. It runs even if the
// request context is already cancelled.
func (n *DefaultNoteService) discardFile(ctx context.Context, key string) {
	if err := n.Files.Delete(context.WithoutCancel(ctx), key); err != nil {
		log.Errorf("failed to remove orphaned file %q: %v", key, err)
	}
}

// ReadingTime estimates minutes at 200 words per minute, rounded up.
func ReadingTime(content string) string {
	words := len(strings.Fields(content))
	return fmt.Sprintf("%d min", (words+wordsPerMinute-1)/wordsPerMinute)
}

func toPage(number, limit, defaultLimit int) repository.Page {
	if number < 1 {
		number = 1
	}

	switch {
	case limit < 1:
		limit = defaultLimit
	case limit > contract.MaxPageLimit:
		limit = contract.MaxPageLimit
	}

	// Keeps the offset within int32 so it cannot overflow.
	if maxPage := math.MaxInt32 / limit; number > maxPage {
		number = maxPage
	}
	return repository.Page{Number: number, Size: limit}
}

func toNotePage(notes []*entity.Note, total int64, page repository.Page) *contract.NotePageResponse {
	size := int64(page.Size)
	return &contract.NotePageResponse{
		Notes:       toNoteResponses(notes),
		TotalPages:  (total + size - 1) / size,
		CurrentPage: page.Number,
		TotalNotes:  total,
	}
}

func toNoteResponses(notes []*entity.Note) []*contract.NoteResponse {
	resp := make([]*contract.NoteResponse, len(notes))
	for i, note := range notes {
		resp[i] = toNoteResponse(note)
	}
	return resp
}

func toNoteResponse(note *entity.Note) *contract.NoteResponse {
	likes := make([]string, len(note.Likes))
	for i, id := range note.LikerIDs() {
		likes[i] = strconv.FormatInt(id, 10)
	}

	return &contract.NoteResponse{
		ID:            note.ID,
		Title:         note.Title,
		Subject:       note.Subject,
		Class:         note.Class,
		Unit:          note.Unit,
		Description:   note.Description,
		Content:       note.Content,
		FileURL:       note.FileURL,
		FileName:      note.FileName,
		FileSize:      note.FileSize,
		Thumbnail:     note.ThumbnailURL,
		UploadedBy:    toUploaderResponse(note.Uploader),
		Tags:          note.TagNames(),
		Likes:         likes,
		LikesCount:    len(likes),
		Views:         note.Views,
		DownloadCount: note.DownloadCount,
		ReadingTime:   note.ReadingTime,
		IsApproved:    note.IsApproved,
		CreatedAt:     utils.FormatEpoch(note.CreatedAt),
		UpdatedAt:     utils.FormatEpoch(note.UpdatedAt),
	}
}

func toUploaderResponse(user *entity.User) *contract.UploaderResponse {
	if user == nil {
		return nil
	}

	return &contract.UploaderResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
	}
}
