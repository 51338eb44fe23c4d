package directory

import (
	"sort"
	"strings"
)

const (
	PageSize    = 15
	SelectedAll = "all"
)

type Sort string

const (
	SortName   Sort = "name"
	SortCohort Sort = "cohort"
	SortRecent Sort = "recent"
)

type Filter struct {
	Cohort   string
	Location string
	Industry string
	Subgroup string
	Query    string
	// Selected is the quick subgroup chip; "all" or empty disables it.
	Selected string
}

// DeriveFilters fills industry and location hints from the free-text query.
// Hints only set fields the caller left empty.
func DeriveFilters(f Filter) Filter {
	q := strings.ToLower(f.Query)
	if q == "" {
		return f
	}

	if f.Industry == "" {
		switch {
		case strings.Contains(q, "fashion"):
			f.Industry = "Fashion"
		case strings.Contains(q, "tech"), strings.Contains(q, "technology"):
			f.Industry = "Technology"
		case strings.Contains(q, "social impact"):
			f.Industry = "Social Impact"
		}
	}

	if f.Location == "" {
		switch {
		case strings.Contains(q, "mumbai"):
			f.Location = "Mumbai"
		case strings.Contains(q, "delhi"):
			f.Location = "Delhi"
		case strings.Contains(q, "bangalore"):
			f.Location = "Bangalore"
		}
	}

	return f
}

func (f Filter) Match(m Member) bool {
	if f.Cohort != "" && !strings.Contains(m.Cohort, f.Cohort) {
		return false
	}
	if f.Location != "" && !strings.Contains(m.Location, f.Location) {
		return false
	}
	if f.Industry != "" && m.Industry != f.Industry {
		return false
	}
	if f.Subgroup != "" && !contains(m.Subgroups, f.Subgroup) {
		return false
	}

	if f.Query != "" {
		text := strings.ToLower(strings.Join([]string{
			m.Name, m.Title, m.Location, m.Cohort, m.Industry, strings.Join(m.Subgroups, " "),
		}, " "))
		if !strings.Contains(text, strings.ToLower(f.Query)) {
			return false
		}
	}

	if f.Selected != "" && f.Selected != SelectedAll {
		sel := strings.ToLower(f.Selected)
		found := false
		for _, sg := range m.Subgroups {
			if strings.Contains(strings.ToLower(sg), sel) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func Apply(members []Member, f Filter) []Member {
	out := make([]Member, 0, len(members))

	for _, m := range members {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// SortMembers orders members in place. Unknown sorts keep input order.
func SortMembers(members []Member, s Sort) {
	switch s {
	case SortName:
		sort.SliceStable(members, func(i, j int) bool {
			return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
		})
	case SortCohort:
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Cohort > members[j].Cohort
		})
	case SortRecent:
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].JoinDate.After(members[j].JoinDate)
		})
	}
}

type Page struct {
	Items      []Member `json:"items"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
}

// Paginate slices a 1-based page of PageSize members. Pages below 1 and pages
// past the end are empty but still carry the totals.
func Paginate(members []Member, page int) Page {
	total := len(members)
	p := Page{
		Items:      []Member{},
		Total:      total,
		TotalPages: (total + PageSize - 1) / PageSize,
		Page:       page,
		PageSize:   PageSize,
	}

	if page < 1 {
		return p
	}

	start := (page - 1) * PageSize
	if start >= total {
		return p
	}

	end := min(start+PageSize, total)
	p.Items = members[start:end]
	return p
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
