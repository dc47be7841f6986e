package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/katarianikita2003/ClickNotes/cmd/internal/contract"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/domain/entity"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/apierror"
	"github.com/katarianikita2003/ClickNotes/cmd/internal/utils/uid"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// NoteService receives the acting user resolved by the auth middleware, nil
// on public routes with no session.
type NoteService interface {
	UploadNote(ctx context.Context, actor *entity.User, req *contract.UploadNoteRequest, file *contract.NoteFile) (*contract.UploadNoteResponse, apierror.ErrorResponse)
	GetNotes(ctx context.Context, q *contract.ListNotesQuery) (*contract.NotePageResponse, apierror.ErrorResponse)
	SearchNotes(ctx context.Context, q *contract.SearchNotesQuery) (*contract.NotePageResponse, apierror.ErrorResponse)
	GetNoteByID(ctx context.Context, actor *entity.User, id int64) (*contract.NoteResponse, apierror.ErrorResponse)
	DownloadNote(ctx context.Context, actor *entity.User, id int64) (*contract.NoteDownload, apierror.ErrorResponse)
	ToggleLike(ctx context.Context, actor *entity.User, id int64) (*contract.LikeResponse, apierror.ErrorResponse)
	GetRelatedNotes(ctx context.Context, actor *entity.User, id int64) ([]*contract.NoteResponse, apierror.ErrorResponse)
	UpdateNote(ctx context.Context, actor *entity.User, id int64, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse)
	DeleteNote(ctx context.Context, actor *entity.User, id int64) apierror.ErrorResponse
}

type DefaultNoteRoute struct {
	NoteService NoteService
}

func NewNoteDefault(noteService NoteService) *DefaultNoteRoute {
	return &DefaultNoteRoute{NoteService: noteService}
}

func (n *DefaultNoteRoute) UploadNote(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	var req contract.UploadNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	// A missing file is reported by the service, after the fields are
	// validated.
	var file *contract.NoteFile
	if fileHeader, err := c.FormFile("file"); err == nil {
		src, err := fileHeader.Open()
		if err != nil {
			log.Errorf("failed to open uploaded file: %v", err)
			return c.JSON(http.StatusInternalServerError, apierror.InternalServerError)
		}
		defer src.Close()

		file = &contract.NoteFile{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get(echo.HeaderContentType),
			Size:        fileHeader.Size,
			Reader:      src,
		}
	}

	resp, apierr := n.NoteService.UploadNote(c.Request().Context(), user, &req, file)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (n *DefaultNoteRoute) GetNotes(c echo.Context) error {
	var q contract.ListNotesQuery
	err := echo.QueryParamsBinder(c).
		Int("page", &q.Page).
		Int("limit", &q.Limit).
		String("subject", &q.Subject).
		String("class", &q.Class).
		String("search", &q.Search).
		String("sort", &q.Sort).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, paramError(err))
	}

	page, apierr := n.NoteService.GetNotes(c.Request().Context(), &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (n *DefaultNoteRoute) SearchNotes(c echo.Context) error {
	var q contract.SearchNotesQuery
	err := echo.QueryParamsBinder(c).
		String("q", &q.Query).
		Int("page", &q.Page).
		Int("limit", &q.Limit).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, paramError(err))
	}

	page, apierr := n.NoteService.SearchNotes(c.Request().Context(), &q)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, page)
}

func (n *DefaultNoteRoute) GetNote(c echo.Context) error {
	id, perr := noteID(c)
	if perr != nil {
		return c.JSON(perr.Code(), perr)
	}

	note, apierr := n.NoteService.GetNoteByID(c.Request().Context(), utils.GetOptionalUser(c), id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, note)
}

func (n *DefaultNoteRoute) DownloadNote(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, perr := noteID(c)
	if perr != nil {
		return c.JSON(perr.Code(), perr)
	}

	dl, apierr := n.NoteService.DownloadNote(c.Request().Context(), user, id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	defer dl.Reader.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": dl.FileName}))
	if dl.FileSize > 0 {
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(dl.FileSize, 10))
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(dl.FileName)))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	res.Header().Set(echo.HeaderContentType, contentType)
	res.WriteHeader(http.StatusOK)

	if _, err := io.Copy(res, dl.Reader); err != nil {
		// Headers are already out, nothing else can be sent.
		log.Warnf("download of note %d interrupted: %v", id, err)
	}
	return nil
}

func (n *DefaultNoteRoute) ToggleLike(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, perr := noteID(c)
	if perr != nil {
		return c.JSON(perr.Code(), perr)
	}

	resp, apierr := n.NoteService.ToggleLike(c.Request().Context(), user, id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (n *DefaultNoteRoute) GetRelatedNotes(c echo.Context) error {
	id, perr := noteID(c)
	if perr != nil {
		return c.JSON(perr.Code(), perr)
	}

	notes, apierr := n.NoteService.GetRelatedNotes(c.Request().Context(), utils.GetOptionalUser(c), id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, notes)
}

func (n *DefaultNoteRoute) UpdateNote(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, perr := noteID(c)
	if perr != nil {
		return c.JSON(perr.Code(), perr)
	}

	var req contract.UpdateNoteRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	note, apierr := n.NoteService.UpdateNote(c.Request().Context(), user, id, &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, note)
}

func (n *DefaultNoteRoute) DeleteNote(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, perr := noteID(c)
	if perr != nil {
		return c.JSON(perr.Code(), perr)
	}

	if apierr := n.NoteService.DeleteNote(c.Request().Context(), user, id); apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, &contract.MessageResponse{Message: "Note deleted successfully"})
}

func noteID(c echo.Context) (int64, apierror.ErrorResponse) {
	id, ok := uid.Parse(strings.TrimSpace(c.Param("id")))
	if !ok {
		return 0, apierror.InvalidIDError
	}
	return id, nil
}

func paramError(err error) apierror.ErrorResponse {
	var be *echo.BindingError
	if errors.As(err, &be) && len(be.Field) > 0 {
		return apierror.NewInvalidParamTypeError(be.Field, "int")
	}
	return apierror.MalformedBodyError
}
