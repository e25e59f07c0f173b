package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

const courseColumns = `id, title, description, price::float8, duration, branch, technology, program,
	image_url, link, created_at, updated_at`

func scanCourse(row pgx.Row, c *model.Course) error {
	return row.Scan(&c.ID, &c.Title, &c.Description, &c.Price, &c.Duration, &c.Branch,
		&c.Technology, &c.Program, &c.ImageURL, &c.Link, &c.CreatedAt, &c.UpdatedAt)
}

// List returns every course, newest first.
func (r *CourseRepository) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]model.Course, 0, 64)
	for rows.Next() {
		var c model.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetByID retrieves a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id int) (*model.Course, error) {
	c := &model.Course{}
	err := scanCourse(r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Create inserts a course and fills its ID and timestamps.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (title, description, price, duration, branch, technology, program, image_url, link)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		c.Title, c.Description, c.Price, c.Duration, c.Branch, c.Technology, c.Program, c.ImageURL, c.Link,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update replaces every mutable field of the course with c.ID.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE courses
		 SET title = $1, description = $2, price = $3, duration = $4, branch = $5,
		     technology = $6, program = $7, image_url = $8, link = $9, updated_at = NOW()
		 WHERE id = $10
		 RETURNING created_at, updated_at`,
		c.Title, c.Description, c.Price, c.Duration, c.Branch, c.Technology, c.Program, c.ImageURL, c.Link, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes the course with id.
func (r *CourseRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
