package model

import "strings"

// All is the filter value that imposes no constraint.
const All = "All"

// PriceRange is a price bracket label.
type PriceRange string

const (
	PriceRangeLow  PriceRange = "₱0-₱5,000"
	PriceRangeMid  PriceRange = "₱5,001-₱10,000"
	PriceRangeHigh PriceRange = "₱10,001+"
)

// PriceRanges lists the brackets in display order.
var PriceRanges = []PriceRange{PriceRangeLow, PriceRangeMid, PriceRangeHigh}

// "10001" covers "10001+" sent unescaped in a query string.
var priceRangeAliases = map[string]PriceRange{
	"0-5000":     PriceRangeLow,
	"5001-10000": PriceRangeMid,
	"10001+":     PriceRangeHigh,
	"10001":      PriceRangeHigh,
}

// ParsePriceRange accepts "All", a bracket label or its short alias.
func ParsePriceRange(raw string) (PriceRange, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == All {
		return PriceRange(All), true
	}
	for _, pr := range PriceRanges {
		if raw == string(pr) {
			return pr, true
		}
	}
	if pr, ok := priceRangeAliases[raw]; ok {
		return pr, true
	}
	return "", false
}

// Contains reports whether price falls in the bracket. Brackets are disjoint
// and together cover every non-negative price. Unknown brackets match all.
func (pr PriceRange) Contains(price float64) bool {
	switch pr {
	case PriceRangeLow:
		return price >= 0 && price <= 5000
	case PriceRangeMid:
		return price > 5000 && price <= 10000
	case PriceRangeHigh:
		return price > 10000
	default:
		return true
	}
}

// FilterField names one of the five filter selections.
type FilterField string

const (
	FilterBranch     FilterField = "branch"
	FilterProgram    FilterField = "program"
	FilterTechnology FilterField = "technology"
	FilterDuration   FilterField = "duration"
	FilterPriceRange FilterField = "price_range"
)

// FilterSelection narrows the visible course set. Every field is either All
// or one concrete value.
type FilterSelection struct {
	Branch     string     `json:"branch"`
	Program    string     `json:"program"`
	Technology string     `json:"technology"`
	Duration   string     `json:"duration"`
	PriceRange PriceRange `json:"price_range"`
}

// DefaultFilters returns a selection with no constraints.
func DefaultFilters() FilterSelection {
	return FilterSelection{
		Branch:     All,
		Program:    All,
		Technology: All,
		Duration:   All,
		PriceRange: All,
	}
}

// CourseQuery is the query string accepted by the course listing endpoint.
type CourseQuery struct {
	Search     string `form:"search" binding:"max=200"`
	Branch     string `form:"branch" binding:"max=100"`
	Program    string `form:"program" binding:"omitempty,program_filter"`
	Technology string `form:"technology" binding:"max=150"`
	Duration   string `form:"duration" binding:"omitempty,duration_filter"`
	PriceRange string `form:"price_range" binding:"omitempty,price_range"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
}

// Filters converts the query into a selection, defaulting blanks to All.
func (q CourseQuery) Filters() FilterSelection {
	f := DefaultFilters()
	if q.Branch != "" {
		f.Branch = q.Branch
	}
	if q.Program != "" {
		f.Program = q.Program
	}
	if q.Technology != "" {
		f.Technology = q.Technology
	}
	if q.Duration != "" {
		f.Duration = q.Duration
	}
	if pr, ok := ParsePriceRange(q.PriceRange); ok {
		f.PriceRange = pr
	}
	return f
}
