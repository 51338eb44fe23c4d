package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "golang", Normalize("  golang \n"))
	assert.Len(t, []rune(Normalize(strings.Repeat("é", 300))), maxQueryLength)
}

func TestPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%\_ok%`, Pattern("100%_ok"))
	assert.Equal(t, "%go%", Pattern("go"))
}

func TestEmpty_NonNilLists(t *testing.T) {
	r := Empty()
	assert.NotNil(t, r.Users)
	assert.NotNil(t, r.Posts)
	assert.NotNil(t, r.Resources)
}
