package resource

import (
	"testing"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

func TestVisibleTo(t *testing.T) {
	tests := []struct {
		level AccessLevel
		role  user.Role
		want  bool
	}{
		{AccessPublic, "", true},
		{AccessMembersOnly, "", false},
		{AccessAdminOnly, "", false},
		{AccessMembersOnly, user.RoleMember, true},
		{AccessAdminOnly, user.RoleMember, false},
		{AccessAdminOnly, user.RoleAdmin, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.VisibleTo(tt.role), "level=%s role=%q", tt.level, tt.role)
	}
}

func TestNewFromCreateRequest_DefaultsToMembersOnly(t *testing.T) {
	r := NewFromCreateRequest("u1", CreateRequest{Title: "Toolkit", Type: "pdf", Category: "impact"})

	assert.Equal(t, AccessMembersOnly, r.AccessLevel)
	assert.Equal(t, 0, r.Downloads)
	assert.NotNil(t, r.Tags)
}

func TestDownloadURL(t *testing.T) {
	link := "https://example.com/a"
	file := "https://cdn.example.com/a.pdf"

	assert.Equal(t, link, Resource{URL: &link}.DownloadURL())
	assert.Equal(t, file, Resource{URL: &link, FileURL: &file}.DownloadURL())
	assert.Equal(t, "", Resource{}.DownloadURL())
}
