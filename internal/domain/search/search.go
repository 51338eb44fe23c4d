package search

import (
	"strings"

	"github.com/geocoder89/cohorthub/internal/domain/post"
	"github.com/geocoder89/cohorthub/internal/domain/resource"
	"github.com/geocoder89/cohorthub/internal/domain/user"
)

// Limit caps each result list.
const Limit = 10

const maxQueryLength = 100

type Results struct {
	Users     []user.User         `json:"users"`
	Posts     []post.Post         `json:"posts"`
	Resources []resource.Resource `json:"resources"`
}

func Empty() Results {
	return Results{
		Users:     []user.User{},
		Posts:     []post.Post{},
		Resources: []resource.Resource{},
	}
}

// Normalize trims q and cuts it to a bounded length.
func Normalize(q string) string {
	q = strings.TrimSpace(q)
	if r := []rune(q); len(r) > maxQueryLength {
		q = string(r[:maxQueryLength])
	}
	return q
}

// Pattern turns q into an ILIKE substring pattern with the LIKE
// metacharacters escaped.
func Pattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
