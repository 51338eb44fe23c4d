// Package directory shapes users into directory members and filters, sorts
// and pages them for the member directory and map.
package directory

import (
	"strings"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/geo"
	"github.com/geocoder89/cohorthub/internal/jsonlist"
)

const UnknownLocation = "Unknown"

type Social struct {
	LinkedIn *string `json:"linkedin,omitempty"`
	Twitter  *string `json:"twitter,omitempty"`
	Website  *string `json:"website,omitempty"`
	GitHub   *string `json:"github,omitempty"`
}

type Member struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Initials    string            `json:"initials"`
	Title       string            `json:"title"`
	Location    string            `json:"location"`
	Coordinates *geo.Coordinates  `json:"coordinates"`
	Email       string            `json:"email"`
	Bio         string            `json:"bio"`
	Expertise   []string          `json:"expertise"`
	Skills      []string          `json:"skills"`
	JoinDate    time.Time         `json:"joinDate"`
	Cohort      string            `json:"cohort"`
	Industry    string            `json:"industry"`
	Subgroups   []string          `json:"subgroups"`
	Avatar      *string           `json:"avatar"`
	Social      Social            `json:"social"`
	LookingFor  []string          `json:"lookingFor"`
	Offering    []string          `json:"offering"`
	Experience  []user.Experience `json:"experience"`
}

// Membership is a subgroup a member belongs to.
type Membership struct {
	Name     string
	Category string
}

// IndustryCategory marks subgroups that name an industry.
const IndustryCategory = "Industry"

// ParseList is the lenient list read used for profile list fields.
func ParseList(v any) []string {
	return jsonlist.Strings(v)
}

// FromUser builds the directory view of u. The first membership in the
// Industry category sets the member's industry.
func FromUser(u user.User, memberships []Membership) Member {
	m := Member{
		ID:         u.ID,
		Name:       u.Name,
		Initials:   u.Initials,
		Title:      u.ProfileTitle(),
		Location:   UnknownLocation,
		Email:      u.Email,
		JoinDate:   u.CreatedAt,
		Avatar:     u.Avatar,
		Expertise:  []string{},
		Skills:     []string{},
		LookingFor: []string{},
		Offering:   []string{},
		Experience: []user.Experience{},
		Subgroups:  make([]string, 0, len(memberships)),
	}

	if u.Location != nil && strings.TrimSpace(*u.Location) != "" {
		m.Location = *u.Location
	}
	if u.Bio != nil {
		m.Bio = *u.Bio
	}

	if c, ok := geo.Lookup(m.Location); ok {
		m.Coordinates = &c
	}

	if p := u.Profile; p != nil {
		m.Expertise = ParseList([]string(p.Expertise))
		m.Skills = ParseList([]string(p.Skills))
		m.LookingFor = ParseList([]string(p.LookingFor))
		m.Offering = ParseList([]string(p.Offering))
		if p.Experience != nil {
			m.Experience = []user.Experience(p.Experience)
		}
		if p.Cohort != nil {
			m.Cohort = *p.Cohort
		}
		if p.JoinedDate != nil {
			m.JoinDate = *p.JoinedDate
		}
		m.Social = Social{
			LinkedIn: p.LinkedIn,
			Twitter:  p.Twitter,
			Website:  p.Website,
			GitHub:   p.GitHub,
		}
	}

	for _, ms := range memberships {
		m.Subgroups = append(m.Subgroups, ms.Name)
		if m.Industry == "" && strings.EqualFold(ms.Category, IndustryCategory) {
			m.Industry = ms.Name
		}
	}

	return m
}

func (m Member) MapLocation() string { return m.Location }

func (m Member) MapCoordinates() (geo.Coordinates, bool) {
	if m.Coordinates == nil {
		return geo.Coordinates{}, false
	}
	return *m.Coordinates, true
}
