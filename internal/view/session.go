package view

import (
	"fmt"

	"github.com/stemsi/coursehub-backend/internal/model"
)

// Session is the search, filter and page state of one client. It is not safe
// for concurrent use; each live connection owns exactly one.
type Session struct {
	search  string
	filters model.FilterSelection
	page    int
}

// NewSession returns a session with no search, no filters and page 1.
func NewSession() *Session {
	return &Session{filters: model.DefaultFilters(), page: 1}
}

func (s *Session) Search() string                 { return s.search }
func (s *Session) Filters() model.FilterSelection { return s.filters }
func (s *Session) Page() int                      { return s.page }

// SetSearch replaces the search term and returns to page 1.
func (s *Session) SetSearch(term string) {
	s.search = term
	s.page = 1
}

// SetFilter changes one filter and returns to page 1. Changing the program
// resets the technology, whose valid values depend on the program.
func (s *Session) SetFilter(field model.FilterField, value string) error {
	if value == "" {
		value = model.All
	}
	switch field {
	case model.FilterBranch:
		s.filters.Branch = value
	case model.FilterProgram:
		s.filters.Program = value
		s.filters.Technology = model.All
	case model.FilterTechnology:
		s.filters.Technology = value
	case model.FilterDuration:
		s.filters.Duration = value
	case model.FilterPriceRange:
		pr, ok := model.ParsePriceRange(value)
		if !ok {
			return fmt.Errorf("unknown price range %q", value)
		}
		s.filters.PriceRange = pr
	default:
		return fmt.Errorf("unknown filter %q", field)
	}
	s.page = 1
	return nil
}

// ClearFilters restores every filter to All and returns to page 1. The search
// term is kept.
func (s *Session) ClearFilters() {
	s.filters = model.DefaultFilters()
	s.page = 1
}

// SetPage moves to page, never below 1. Pages past the end are allowed and
// produce an empty slice.
func (s *Session) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.page = page
}

// Input pairs the session state with a course list.
func (s *Session) Input(courses []model.Course) Input {
	return Input{
		Courses: courses,
		Search:  s.search,
		Filters: s.filters,
		Page:    s.page,
	}
}
