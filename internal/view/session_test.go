package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/coursehub-backend/internal/model"
)

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession()

	assert.Equal(t, "", s.Search())
	assert.Equal(t, model.DefaultFilters(), s.Filters())
	assert.Equal(t, 1, s.Page())
}

func TestSetProgramResetsTechnology(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetFilter(model.FilterProgram, model.ProgramTwoYear))
	require.NoError(t, s.SetFilter(model.FilterTechnology, "Databases"))
	assert.Equal(t, "Databases", s.Filters().Technology)

	require.NoError(t, s.SetFilter(model.FilterProgram, model.ProgramSeniorHigh))

	assert.Equal(t, model.ProgramSeniorHigh, s.Filters().Program)
	assert.Equal(t, model.All, s.Filters().Technology)
}

func TestSetProgramToSameValueStillResetsTechnology(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetFilter(model.FilterProgram, model.ProgramTwoYear))
	require.NoError(t, s.SetFilter(model.FilterTechnology, "Databases"))

	require.NoError(t, s.SetFilter(model.FilterProgram, model.ProgramTwoYear))

	assert.Equal(t, model.All, s.Filters().Technology)
}

func TestEveryChangeResetsPage(t *testing.T) {
	changes := map[string]func(s *Session) error{
		"search":      func(s *Session) error { s.SetSearch("linux"); return nil },
		"branch":      func(s *Session) error { return s.SetFilter(model.FilterBranch, "Pasay") },
		"program":     func(s *Session) error { return s.SetFilter(model.FilterProgram, model.ProgramShortCourses) },
		"technology":  func(s *Session) error { return s.SetFilter(model.FilterTechnology, "Linux") },
		"duration":    func(s *Session) error { return s.SetFilter(model.FilterDuration, "Long") },
		"price_range": func(s *Session) error { return s.SetFilter(model.FilterPriceRange, "10001+") },
		"clear":       func(s *Session) error { s.ClearFilters(); return nil },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			s := NewSession()
			s.SetPage(4)
			require.Equal(t, 4, s.Page())

			require.NoError(t, change(s))

			assert.Equal(t, 1, s.Page())
		})
	}
}

func TestSetFilterRejectsUnknownValues(t *testing.T) {
	s := NewSession()
	s.SetPage(3)

	assert.Error(t, s.SetFilter("colour", "red"))
	assert.Error(t, s.SetFilter(model.FilterPriceRange, "cheap"))
	assert.Equal(t, 3, s.Page())
	assert.Equal(t, model.DefaultFilters(), s.Filters())
}

func TestSetFilterEmptyMeansAll(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.SetFilter(model.FilterBranch, "Pasig"))
	require.NoError(t, s.SetFilter(model.FilterBranch, ""))

	assert.Equal(t, model.All, s.Filters().Branch)
}

func TestSetPriceRangeAcceptsAliases(t *testing.T) {
	s := NewSession()

	require.NoError(t, s.SetFilter(model.FilterPriceRange, "5001-10000"))
	assert.Equal(t, model.PriceRangeMid, s.Filters().PriceRange)

	require.NoError(t, s.SetFilter(model.FilterPriceRange, "₱0-₱5,000"))
	assert.Equal(t, model.PriceRangeLow, s.Filters().PriceRange)
}

func TestClearFiltersKeepsSearch(t *testing.T) {
	s := NewSession()
	s.SetSearch("web")
	require.NoError(t, s.SetFilter(model.FilterDuration, "Medium"))

	s.ClearFilters()

	assert.Equal(t, "web", s.Search())
	assert.Equal(t, model.DefaultFilters(), s.Filters())
}

func TestSetPageClampsToOne(t *testing.T) {
	s := NewSession()
	s.SetPage(-2)
	assert.Equal(t, 1, s.Page())

	s.SetPage(99)
	assert.Equal(t, 99, s.Page())
	res := Compute(nil, s.Input(manyCourses(12)))
	assert.Empty(t, res.Courses)
	assert.Equal(t, 2, res.TotalPages)
}
