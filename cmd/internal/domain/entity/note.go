package entity

const DefaultThumbnailURL = "/img/default-note.jpg"

type Note struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	Title         string `gorm:"not null"`
	Subject       string `gorm:"not null;index"`
	Class         string `gorm:"column:class_name;not null;index"`
	Unit          string `gorm:"not null"`
	Description   string `gorm:"not null"`
	Content       string `gorm:"not null"`
	FileKey       string `gorm:"not null;index"` // storage reference
	FileURL       string `gorm:"not null"`
	FileName      string `gorm:"not null"`
	FileSize      int64  `gorm:"not null"`
	ThumbnailURL  string `gorm:"not null"`
	ReadingTime   string `gorm:"not null"`
	Views         int64  `gorm:"not null;default:0"`
	DownloadCount int64  `gorm:"not null;default:0"`
	IsApproved    bool   `gorm:"not null;index"`
	UploadedByID  int64  `gorm:"not null;index"` // References: users(id)
	CreatedAt     int64  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt     int64  `gorm:"not null;autoUpdateTime:false"`

	// Relations
	Uploader *User      `gorm:"foreignKey:UploadedByID;references:ID"`
	Tags     []NoteTag  `gorm:"foreignKey:NoteID;references:ID"`
	Likes    []NoteLike `gorm:"foreignKey:NoteID;references:ID"`
}

type NoteTag struct {
	NoteID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Tag      string `gorm:"primaryKey;index"`
	Position int    `gorm:"not null"`
}

type NoteLike struct {
	NoteID    int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt int64 `gorm:"not null;autoCreateTime:false"`
}

func NewNoteTags(tags []string) []NoteTag {
	out := make([]NoteTag, len(tags))
	for i, tag := range tags {
		out[i] = NoteTag{Tag: tag, Position: i}
	}
	return out
}

// TagNames returns the tags in their original order.
func (n *Note) TagNames() []string {
	names := make([]string, len(n.Tags))
	for _, t := range n.Tags {
		if t.Position >= 0 && t.Position < len(names) && names[t.Position] == "" {
			names[t.Position] = t.Tag
		}
	}

	// Positions are dense for rows written by NewNoteTags; fall back to the
	// row order if they are not.
	for _, name := range names {
		if name == "" {
			names = names[:0]
			for _, t := range n.Tags {
				names = append(names, t.Tag)
			}
			break
		}
	}
	return names
}

func (n *Note) LikerIDs() []int64 {
	ids := make([]int64, len(n.Likes))
	for i, l := range n.Likes {
		ids[i] = l.UserID
	}
	return ids
}

func (n *Note) IsOwnedBy(userID int64) bool {
	return n.UploadedByID == userID
}
