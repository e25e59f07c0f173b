package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/coursehub-backend/internal/catalog"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"github.com/stemsi/coursehub-backend/internal/store"
	"github.com/stemsi/coursehub-backend/internal/view"
)

// ErrCourseNotFound is returned when a course id is unknown.
var ErrCourseNotFound = errors.New("course not found")

// CourseStore is the read side the service derives views from.
type CourseStore interface {
	Snapshot() *store.Snapshot
	Watch() (<-chan *store.Snapshot, func())
	Refetch()
}

// CourseWriter persists admin edits.
type CourseWriter interface {
	Create(ctx context.Context, c *model.Course) error
	Update(ctx context.Context, c *model.Course) error
	Delete(ctx context.Context, id int) error
}

// ChangePublisher announces writes on feeds that have no database trigger.
type ChangePublisher interface {
	Publish(ctx context.Context, ev model.ChangeEvent) error
}

// CourseView is a derived view tagged with the store state it came from.
type CourseView struct {
	view.Result
	State   store.State `json:"state"`
	Error   string      `json:"error,omitempty"`
	Version uint64      `json:"version"`
}

// FilterOptions lists every value a client can pick for each filter.
type FilterOptions struct {
	Branches    []string           `json:"branches"`
	Programs    []catalog.Program  `json:"programs"`
	Durations   []model.Duration   `json:"durations"`
	PriceRanges []model.PriceRange `json:"price_ranges"`
}

// CourseService serves derived course views and admin writes.
type CourseService struct {
	store     CourseStore
	repo      CourseWriter
	publisher ChangePublisher
	catalog   *catalog.Catalog
	log       zerolog.Logger
}

// NewCourseService creates a new CourseService. publisher may be nil when
// the database trigger already announces writes.
func NewCourseService(st CourseStore, repo CourseWriter, publisher ChangePublisher, cat *catalog.Catalog, log zerolog.Logger) *CourseService {
	return &CourseService{
		store:     st,
		repo:      repo,
		publisher: publisher,
		catalog:   cat,
		log:       log.With().Str("component", "course_service").Logger(),
	}
}

// Browse computes the view for a stateless query against the latest snapshot.
func (s *CourseService) Browse(q model.CourseQuery) CourseView {
	return s.Render(s.store.Snapshot(), view.Input{
		Search:  q.Search,
		Filters: q.Filters(),
		Page:    q.Page,
	})
}

// Render computes the view of snap for in. in.Courses is ignored.
func (s *CourseService) Render(snap *store.Snapshot, in view.Input) CourseView {
	in.Courses = snap.Courses
	return CourseView{
		Result:  view.Compute(s.catalog, in),
		State:   snap.State,
		Error:   snap.Error,
		Version: snap.Version,
	}
}

// Snapshot returns the latest store snapshot.
func (s *CourseService) Snapshot() *store.Snapshot {
	return s.store.Snapshot()
}

// Watch follows store snapshots; see store.Store.Watch.
func (s *CourseService) Watch() (<-chan *store.Snapshot, func()) {
	return s.store.Watch()
}

// GetByID looks a course up in the store.
func (s *CourseService) GetByID(id int) (*model.Course, error) {
	snap := s.store.Snapshot()
	for i := range snap.Courses {
		if snap.Courses[i].ID == id {
			c := snap.Courses[i]
			return &c, nil
		}
	}
	return nil, ErrCourseNotFound
}

// Create inserts a course. The store picks it up from the change feed.
func (s *CourseService) Create(ctx context.Context, req *model.CreateCourseRequest) (*model.Course, error) {
	c := req.ToCourse()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.publish(ctx, model.ChangeEvent{Type: model.ChangeInsert, Record: c})
	return c, nil
}

// Update replaces every mutable field of course id.
func (s *CourseService) Update(ctx context.Context, id int, req *model.CreateCourseRequest) (*model.Course, error) {
	c := req.ToCourse()
	c.ID = id
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("update course %d: %w", id, err)
	}
	s.publish(ctx, model.ChangeEvent{Type: model.ChangeUpdate, Record: c, OldID: id})
	return c, nil
}

// Delete removes course id.
func (s *CourseService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	s.publish(ctx, model.ChangeEvent{Type: model.ChangeDelete, OldID: id})
	return nil
}

// Refetch asks the store for a new full read.
func (s *CourseService) Refetch() {
	s.log.Info().Msg("Course refetch requested")
	s.store.Refetch()
}

// Filters returns the filter option lists.
func (s *CourseService) Filters() FilterOptions {
	return FilterOptions{
		Branches:    s.catalog.Branches,
		Programs:    s.catalog.Programs,
		Durations:   model.Durations,
		PriceRanges: model.PriceRanges,
	}
}

// publish is best effort: the write already succeeded and a refetch repairs
// a missed event.
func (s *CourseService) publish(ctx context.Context, ev model.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Int("course_id", ev.TargetID()).Str("type", string(ev.Type)).Msg("Failed to publish course change")
	}
}
