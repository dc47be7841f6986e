package contract

type RegisterRequest struct {
	FirstName     string `json:"firstName" validate:"required,max=50"`
	LastName      string `json:"lastName" validate:"required,max=50"`
	Username      string `json:"username" validate:"required,min=3,max=30,nospaces"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required,isodate"`
	Qualification string `json:"qualification" validate:"required,max=100"`
	MobileNumber  string `json:"mobileNumber" validate:"required,mobile"`
}

// LoginRequest accepts either the username or the e-mail in Username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName     *string `json:"firstName" validate:"omitempty,notblank,max=50"`
	LastName      *string `json:"lastName" validate:"omitempty,notblank,max=50"`
	Qualification *string `json:"qualification" validate:"omitempty,notblank,max=100"`
}

// UserResponse is the account view returned to its owner.
type UserResponse struct {
	ID             int64  `json:"id,string"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	MobileNumber   string `json:"mobileNumber"`
	DateOfBirth    string `json:"dateOfBirth"`
	Qualification  string `json:"qualification"`
	EmailVerified  bool   `json:"isEmailVerified"`
	MobileVerified bool   `json:"isMobileVerified"`
	CreatedAt      string `json:"createdAt"`
}

type AuthResponse struct {
	User  *UserResponse `json:"user"`
	Token string        `json:"token"`
}

// ProfileNoteResponse is the short note summary listed on a public profile.
type ProfileNoteResponse struct {
	ID            int64  `json:"id,string"`
	Title         string `json:"title"`
	Subject       string `json:"subject"`
	Class         string `json:"class"`
	Views         int64  `json:"views"`
	DownloadCount int64  `json:"downloadCount"`
	CreatedAt     string `json:"createdAt"`
}

// PublicProfileResponse never carries contact details or the password hash.
type PublicProfileResponse struct {
	ID            int64                  `json:"id,string"`
	FirstName     string                 `json:"firstName"`
	LastName      string                 `json:"lastName"`
	FullName      string                 `json:"fullName"`
	Username      string                 `json:"username"`
	Qualification string                 `json:"qualification"`
	UploadedNotes []*ProfileNoteResponse `json:"uploadedNotes"`
	CreatedAt     string                 `json:"createdAt"`
}

type DownloadResponse struct {
	Note         *NoteResponse `json:"note"`
	DownloadedAt string        `json:"downloadedAt"`
}

type UserStatsResponse struct {
	UploadedNotes   int64 `json:"uploadedNotes"`
	DownloadedNotes int64 `json:"downloadedNotes"`
	TotalDownloads  int64 `json:"totalDownloads"`
	TotalViews      int64 `json:"totalViews"`
	TotalLikes      int64 `json:"totalLikes"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
