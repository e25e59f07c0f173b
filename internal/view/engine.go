// Package view derives what a client sees from the current course list, a
// search term, a filter selection and a page number. Every function here is
// pure: inputs are never mutated and the same inputs give the same outputs.
package view

import (
	"strings"

	"github.com/stemsi/coursehub-backend/internal/catalog"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// PageSize is the fixed number of courses per page.
const PageSize = 10

// Input is everything a derived view depends on.
type Input struct {
	Courses []model.Course
	Search  string
	Filters model.FilterSelection
	Page    int
}

// Result is a computed view.
type Result struct {
	Courses               []model.Course        `json:"courses"`
	FilteredCount         int                   `json:"filtered_count"`
	TotalCourses          int                   `json:"total_courses"`
	CurrentPage           int                   `json:"current_page"`
	TotalPages            int                   `json:"total_pages"`
	PageSize              int                   `json:"page_size"`
	AvailableTechnologies []string              `json:"available_technologies"`
	Search                string                `json:"search"`
	Filters               model.FilterSelection `json:"filters"`
}

// Matches reports whether c passes the search term and every filter.
func Matches(c *model.Course, search string, f model.FilterSelection) bool {
	if search != "" {
		term := strings.ToLower(search)
		if !strings.Contains(strings.ToLower(c.Title), term) &&
			!strings.Contains(strings.ToLower(c.Description), term) &&
			!strings.Contains(strings.ToLower(c.Technology), term) {
			return false
		}
	}
	if !selected(f.Branch, c.Branch) ||
		!selected(f.Program, c.Program) ||
		!selected(f.Technology, c.Technology) ||
		!selected(f.Duration, string(c.Duration)) {
		return false
	}
	if f.PriceRange != "" && string(f.PriceRange) != model.All {
		return f.PriceRange.Contains(c.Price)
	}
	return true
}

func selected(selection, value string) bool {
	return selection == "" || selection == model.All || selection == value
}

// Filter returns the courses that match, preserving their relative order.
func Filter(courses []model.Course, search string, f model.FilterSelection) []model.Course {
	out := make([]model.Course, 0, len(courses))
	for i := range courses {
		if Matches(&courses[i], search, f) {
			out = append(out, courses[i])
		}
	}
	return out
}

// Paginate returns the slice of courses shown on the 1-based page. It is empty
// when the page lies past the end of the list.
func Paginate(courses []model.Course, page int) []model.Course {
	// Compare page counts before multiplying so huge pages cannot overflow.
	if page < 1 || page-1 >= (len(courses)+PageSize-1)/PageSize {
		return []model.Course{}
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if end > len(courses) {
		end = len(courses)
	}
	out := make([]model.Course, end-start)
	copy(out, courses[start:end])
	return out
}

// TotalPages is ceil(n / PageSize), never less than 1.
func TotalPages(n int) int {
	pages := (n + PageSize - 1) / PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// AvailableTechnologies lists the technology options for the selected program.
// It comes from the catalog, not from the courses themselves.
func AvailableTechnologies(cat *catalog.Catalog, program string) []string {
	if program == "" || program == model.All || cat == nil {
		return []string{}
	}
	return cat.Technologies(program)
}

// Compute derives the full view for in.
func Compute(cat *catalog.Catalog, in Input) Result {
	page := in.Page
	if page < 1 {
		page = 1
	}
	filtered := Filter(in.Courses, in.Search, in.Filters)
	return Result{
		Courses:               Paginate(filtered, page),
		FilteredCount:         len(filtered),
		TotalCourses:          len(in.Courses),
		CurrentPage:           page,
		TotalPages:            TotalPages(len(filtered)),
		PageSize:              PageSize,
		AvailableTechnologies: AvailableTechnologies(cat, in.Filters.Program),
		Search:                in.Search,
		Filters:               in.Filters,
	}
}
