package model

import "time"

// Duration is the coarse length class of a course.
type Duration string

const (
	DurationShort  Duration = "Short"
	DurationMedium Duration = "Medium"
	DurationLong   Duration = "Long"
)

// Durations lists every duration in display order.
var Durations = []Duration{DurationShort, DurationMedium, DurationLong}

// Program names the offering a course belongs to.
const (
	ProgramTwoYear      = "2-Year Program"
	ProgramSeniorHigh   = "Senior High"
	ProgramShortCourses = "Short Courses"
)

// Programs lists every program in display order.
var Programs = []string{ProgramTwoYear, ProgramSeniorHigh, ProgramShortCourses}

// Course is one row of the course catalog.
type Course struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Duration    Duration  `json:"duration"`
	Branch      string    `json:"branch"`
	Technology  string    `json:"technology"`
	Program     string    `json:"program"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Link        *string   `json:"link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Title       string   `json:"title" binding:"required,min=2,max=200"`
	Description string   `json:"description" binding:"max=5000"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Duration    Duration `json:"duration" binding:"required,course_duration"`
	Branch      string   `json:"branch" binding:"required,max=100"`
	Technology  string   `json:"technology" binding:"required,max=150"`
	Program     string   `json:"program" binding:"required,course_program"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url,max=2048"`
	Link        *string  `json:"link" binding:"omitempty,url,max=2048"`
}

// UpdateCourseRequest replaces every mutable field of a course.
type UpdateCourseRequest CreateCourseRequest

// ToCourse builds a Course from the request. Identity and timestamps are left
// for the repository to fill.
func (r *CreateCourseRequest) ToCourse() *Course {
	c := &Course{
		Title:       r.Title,
		Description: r.Description,
		Duration:    r.Duration,
		Branch:      r.Branch,
		Technology:  r.Technology,
		Program:     r.Program,
		ImageURL:    r.ImageURL,
		Link:        r.Link,
	}
	if r.Price != nil {
		c.Price = *r.Price
	}
	return c
}
