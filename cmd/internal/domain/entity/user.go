package entity

// User is an account. PasswordHash holds a bcrypt hash and never leaves the
// service layer.
type User struct {
	ID             int64  `gorm:"primaryKey;autoIncrement:false"`
	FirstName      string `gorm:"not null"`
	LastName       string `gorm:"not null"`
	Username       string `gorm:"not null;uniqueIndex"`
	Email          string `gorm:"not null;uniqueIndex"`
	MobileNumber   string `gorm:"not null;uniqueIndex"`
	PasswordHash   string `gorm:"not null"`
	DateOfBirth    string `gorm:"not null"` // YYYY-MM-DD
	Qualification  string `gorm:"not null"`
	EmailVerified  bool   `gorm:"not null;default:false"`
	MobileVerified bool   `gorm:"not null;default:false"`
	CreatedAt      int64  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt      int64  `gorm:"not null;autoUpdateTime:false"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserUpload is one entry of the user's ordered uploaded-notes list.
type UserUpload struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	NoteID    int64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt int64 `gorm:"not null;autoCreateTime:false"`
}

// UserDownload records the first time a user downloaded a note.
type UserDownload struct {
	UserID       int64 `gorm:"primaryKey;autoIncrement:false"`
	NoteID       int64 `gorm:"primaryKey;autoIncrement:false;index"`
	DownloadedAt int64 `gorm:"not null"`

	// Relations
	Note *Note `gorm:"foreignKey:NoteID;references:ID"`
}
