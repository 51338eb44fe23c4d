package user

import (
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/cohorthub/internal/jsonlist"
)

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) IsValid() bool {
	return r == RoleMember || r == RoleAdmin
}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPending   Status = "PENDING"
	StatusSuspended Status = "SUSPENDED"
	StatusInactive  Status = "INACTIVE"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPending, StatusSuspended, StatusInactive:
		return true
	default:
		return false
	}
}

// PasswordMarker fills the legacy password column. Credentials live with the
// identity provider.
const PasswordMarker = "managed_by_supabase_auth"

var (
	ErrNotFound         = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Initials  string    `json:"initials"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Avatar    *string   `json:"avatar"`
	Bio       *string   `json:"bio"`
	Location  *string   `json:"location"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Profile   *Profile  `json:"profile"`
}

type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type Profile struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"userId"`
	Title      *string                 `json:"title"`
	Bio        *string                 `json:"bio"`
	Cohort     *string                 `json:"cohort"`
	Education  *string                 `json:"education"`
	Experience jsonlist.Of[Experience] `json:"experience"`
	Expertise  jsonlist.Of[string]     `json:"expertise"`
	Skills     jsonlist.Of[string]     `json:"skills"`
	LookingFor jsonlist.Of[string]     `json:"lookingFor"`
	Offering   jsonlist.Of[string]     `json:"offering"`
	Phone      *string                 `json:"phone"`
	LinkedIn   *string                 `json:"linkedin"`
	Twitter    *string                 `json:"twitter"`
	GitHub     *string                 `json:"github"`
	Website    *string                 `json:"website"`
	JoinedDate *time.Time              `json:"joinedDate"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

// Identity is the slice of a user cached per session.
type Identity struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Initials string  `json:"initials"`
	Role     Role    `json:"role"`
	Status   Status  `json:"status"`
	Avatar   *string `json:"avatar"`
}

func (u User) Identity() Identity {
	return Identity{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Initials: u.Initials,
		Role:     u.Role,
		Status:   u.Status,
		Avatar:   u.Avatar,
	}
}

// ProfileInput is the nested profile block of a self update. Nil fields are
// left untouched; list fields replace the stored list when present.
type ProfileInput struct {
	Title      *string      `json:"title" binding:"omitempty,max=120"`
	Bio        *string      `json:"bio" binding:"omitempty,max=2000"`
	Cohort     *string      `json:"cohort" binding:"omitempty,max=80"`
	Education  *string      `json:"education" binding:"omitempty,max=500"`
	Phone      *string      `json:"phone" binding:"omitempty,max=40"`
	LinkedIn   *string      `json:"linkedin" binding:"omitempty,max=300"`
	Twitter    *string      `json:"twitter" binding:"omitempty,max=300"`
	GitHub     *string      `json:"github" binding:"omitempty,max=300"`
	Website    *string      `json:"website" binding:"omitempty,max=300"`
	Expertise  []string     `json:"expertise" binding:"omitempty,max=30,dive,max=60"`
	Skills     []string     `json:"skills" binding:"omitempty,max=30,dive,max=60"`
	LookingFor []string     `json:"lookingFor" binding:"omitempty,max=30,dive,max=120"`
	Offering   []string     `json:"offering" binding:"omitempty,max=30,dive,max=120"`
	Experience []Experience `json:"experience" binding:"omitempty,max=20"`
}

type UpdateSelfRequest struct {
	Name     *string       `json:"name" binding:"omitempty,min=1,max=120"`
	Avatar   *string       `json:"avatar" binding:"omitempty,max=500"`
	Bio      *string       `json:"bio" binding:"omitempty,max=2000"`
	Location *string       `json:"location" binding:"omitempty,max=120"`
	Phone    *string       `json:"phone" binding:"omitempty,max=40"`
	Profile  *ProfileInput `json:"profile"`
}

type UpdateStatusRequest struct {
	UserID string `json:"userId" binding:"required"`
	Status Status `json:"status" binding:"required,oneof=ACTIVE PENDING SUSPENDED INACTIVE"`
}

// Initials takes the first letter of each name part, upper-cased.
func Initials(first, last string) string {
	var b strings.Builder

	for _, part := range []string{first, last} {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		for _, r := range part {
			b.WriteRune(r)
			break
		}
	}

	return strings.ToUpper(b.String())
}

// InitialsFromName derives initials from a full display name.
func InitialsFromName(name string) string {
	parts := strings.Fields(name)

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return Initials(parts[0], "")
	default:
		return Initials(parts[0], parts[len(parts)-1])
	}
}

// ProfileTitle is the headline shown next to a member, "Member" when unset.
func (u User) ProfileTitle() string {
	if u.Profile != nil && u.Profile.Title != nil && strings.TrimSpace(*u.Profile.Title) != "" {
		return *u.Profile.Title
	}
	return "Member"
}
