package contract

import "io"

const DefaultMaxFileSizeBytes = 10 * 1024 * 1024

const (
	DefaultPageLimit     = 12
	DefaultUserPageLimit = 10
	MaxPageLimit         = 100
	RelatedNotesLimit    = 3
)

var ValidNoteFileTypes = []string{"pdf", "doc", "docx", "txt", "ppt", "pptx"}

var ValidNoteMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// NoteFile is an uploaded file as declared by the client.
type NoteFile struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadNoteRequest carries the multipart form fields of an upload. Tags is
// the raw comma separated list.
type UploadNoteRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Subject     string `json:"subject" form:"subject" validate:"required,max=100"`
	Class       string `json:"class" form:"class" validate:"required,max=50"`
	Unit        string `json:"unit" form:"unit" validate:"required,max=50"`
	Description string `json:"description" form:"description" validate:"required,min=10,max=2000"`
	Content     string `json:"content" form:"content" validate:"required,min=50"`
	Tags        string `json:"tags" form:"tags" validate:"max=500"`
}

type UpdateNoteRequest struct {
	Title       *string  `json:"title" validate:"omitempty,notblank,max=200"`
	Subject     *string  `json:"subject" validate:"omitempty,notblank,max=100"`
	Class       *string  `json:"class" validate:"omitempty,notblank,max=50"`
	Unit        *string  `json:"unit" validate:"omitempty,notblank,max=50"`
	Description *string  `json:"description" validate:"omitempty,min=10,max=2000"`
	Tags        []string `json:"tags" validate:"omitempty,max=30,dive,max=40"`
}

type ListNotesQuery struct {
	Page    int
	Limit   int
	Subject string
	Class   string
	Search  string
	Sort    string
}

type SearchNotesQuery struct {
	Query string
	Page  int
	Limit int
}

type UploaderResponse struct {
	ID        int64  `json:"id,string"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

type NoteResponse struct {
	ID            int64             `json:"id,string"`
	Title         string            `json:"title"`
	Subject       string            `json:"subject"`
	Class         string            `json:"class"`
	Unit          string            `json:"unit"`
	Description   string            `json:"description"`
	Content       string            `json:"content"`
	FileURL       string            `json:"fileUrl"`
	FileName      string            `json:"fileName"`
	FileSize      int64             `json:"fileSize"`
	Thumbnail     string            `json:"thumbnail"`
	UploadedBy    *UploaderResponse `json:"uploadedBy"`
	Tags          []string          `json:"tags"`
	Likes         []string          `json:"likes"`
	LikesCount    int               `json:"likesCount"`
	Views         int64             `json:"views"`
	DownloadCount int64             `json:"downloadCount"`
	ReadingTime   string            `json:"readingTime"`
	IsApproved    bool              `json:"isApproved"`
	CreatedAt     string            `json:"createdAt"`
	UpdatedAt     string            `json:"updatedAt"`
}

type UploadNoteResponse struct {
	ID      int64  `json:"id,string"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
	FileURL string `json:"fileUrl"`
}

type NotePageResponse struct {
	Notes       []*NoteResponse `json:"notes"`
	TotalPages  int64           `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	TotalNotes  int64           `json:"totalNotes"`
	SearchTime  int64           `json:"searchTime,omitempty"`
}

type LikeResponse struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

// NoteDownload is an opened note file. The caller closes Reader.
type NoteDownload struct {
	Reader   io.ReadCloser
	FileName string
	FileSize int64
}
