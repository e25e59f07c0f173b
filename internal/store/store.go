// Package store keeps the authoritative in-memory course list in sync with
// the database: one full read on start, then incremental patches from the
// change feed.
package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/coursehub-backend/internal/feed"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// State is the load state of the store.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Lister performs a full read of the course table, newest first.
type Lister interface {
	List(ctx context.Context) ([]model.Course, error)
}

// Provider is the data source the store synchronizes with.
type Provider interface {
	Lister
	feed.Source
}

type provider struct {
	Lister
	feed.Source
}

// NewProvider combines a full-read source and a change feed.
func NewProvider(l Lister, s feed.Source) Provider {
	return provider{Lister: l, Source: s}
}

// Recorder receives store activity for instrumentation.
type Recorder interface {
	ObserveChange(t model.ChangeType)
	ObserveFetch(err error, elapsed time.Duration)
	SetCourseCount(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveChange(model.ChangeType)     {}
func (nopRecorder) ObserveFetch(error, time.Duration) {}
func (nopRecorder) SetCourseCount(int)                {}

// Snapshot is an immutable view of the store. Courses must not be modified.
type Snapshot struct {
	Version uint64
	State   State
	Error   string
	Courses []model.Course
	// Cause is the change that produced this snapshot, nil after a full read
	// or a state change.
	Cause *model.ChangeEvent
}

// Option configures a Store.
type Option func(*Store)

// WithRecorder reports store activity to rec.
func WithRecorder(rec Recorder) Option {
	return func(s *Store) { s.rec = rec }
}

// Store holds the course list. The list is only ever changed by the Run
// loop; readers see published snapshots.
type Store struct {
	provider Provider
	log      zerolog.Logger
	rec      Recorder

	current atomic.Pointer[Snapshot]
	refetch chan struct{}

	mu       sync.Mutex
	watchers map[chan *Snapshot]struct{}
}

// New creates a store in the loading state. Nothing is read until Run.
func New(p Provider, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		provider: p,
		log:      log.With().Str("component", "course_store").Logger(),
		rec:      nopRecorder{},
		refetch:  make(chan struct{}, 1),
		watchers: make(map[chan *Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&Snapshot{State: StateLoading, Courses: []model.Course{}})
	return s
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Watch returns a channel that always holds the most recent snapshot not yet
// received. Slow readers skip intermediate versions. The returned function
// stops the watch and closes the channel.
func (s *Store) Watch() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	s.mu.Lock()
	ch <- s.current.Load()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, ch)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// Refetch asks the Run loop for a new full read. Requests made while a read
// is in flight are folded into it.
func (s *Store) Refetch() {
	select {
	case s.refetch <- struct{}{}:
	default:
	}
}

type fetchResult struct {
	courses []model.Course
	err     error
}

// Run is the store's event loop. It starts the initial read, subscribes to
// the change feed and applies everything in arrival order until ctx is done,
// then releases the subscription.
func (s *Store) Run(ctx context.Context) {
	results := make(chan fetchResult, 1)
	s.fetch(ctx, results)
	fetching := true

	var events <-chan model.ChangeEvent
	sub, err := s.provider.Subscribe(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Change feed unavailable, live updates disabled")
	} else {
		defer sub.Unsubscribe()
		events = sub.Events()
		s.log.Info().Msg("Subscribed to change feed")
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Course store stopping")
			return

		case res := <-results:
			fetching = false
			s.applyFetch(res)

		case ev, ok := <-events:
			if !ok {
				s.log.Warn().Msg("Change feed closed")
				events = nil
				continue
			}
			s.applyChange(ev)

		case <-s.refetch:
			if fetching {
				continue
			}
			fetching = true
			cur := s.current.Load()
			s.publish(&Snapshot{State: StateLoading, Error: cur.Error, Courses: cur.Courses})
			s.fetch(ctx, results)
		}
	}
}

func (s *Store) fetch(ctx context.Context, results chan<- fetchResult) {
	go func() {
		start := time.Now()
		courses, err := s.provider.List(ctx)
		s.rec.ObserveFetch(err, time.Since(start))
		results <- fetchResult{courses: courses, err: err}
	}()
}

// applyFetch replaces the list wholesale, including changes applied while the
// read was in flight.
func (s *Store) applyFetch(res fetchResult) {
	if res.err != nil {
		s.log.Error().Err(res.err).Msg("Failed to fetch courses")
		s.publish(&Snapshot{State: StateError, Error: res.err.Error(), Courses: []model.Course{}})
		return
	}

	courses := res.courses
	if courses == nil {
		courses = []model.Course{}
	}
	s.log.Info().Int("count", len(courses)).Msg("Courses loaded")
	s.publish(&Snapshot{State: StateReady, Courses: courses})
}

func (s *Store) applyChange(ev model.ChangeEvent) {
	s.rec.ObserveChange(ev.Type)

	cur := s.current.Load()
	var next []model.Course

	switch ev.Type {
	case model.ChangeInsert:
		if ev.Record == nil {
			return
		}
		if indexOf(cur.Courses, ev.Record.ID) >= 0 {
			// Applied anyway: the list mirrors the feed, not a set.
			s.log.Warn().Int("course_id", ev.Record.ID).Msg("Insert for a course already in the store")
		}
		next = make([]model.Course, 0, len(cur.Courses)+1)
		next = append(next, *ev.Record)
		next = append(next, cur.Courses...)

	case model.ChangeUpdate:
		if ev.Record == nil {
			return
		}
		i := indexOf(cur.Courses, ev.Record.ID)
		if i < 0 {
			return
		}
		next = make([]model.Course, len(cur.Courses))
		copy(next, cur.Courses)
		next[i] = *ev.Record

	case model.ChangeDelete:
		i := indexOf(cur.Courses, ev.OldID)
		if i < 0 {
			return
		}
		next = make([]model.Course, 0, len(cur.Courses)-1)
		next = append(next, cur.Courses[:i]...)
		next = append(next, cur.Courses[i+1:]...)

	default:
		return
	}

	cause := ev
	s.publish(&Snapshot{State: cur.State, Error: cur.Error, Courses: next, Cause: &cause})
}

func indexOf(courses []model.Course, id int) int {
	for i := range courses {
		if courses[i].ID == id {
			return i
		}
	}
	return -1
}

// publish stamps snap with the next version, makes it current and hands it
// to every watcher without blocking.
func (s *Store) publish(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Version = s.current.Load().Version + 1
	s.current.Store(snap)
	s.rec.SetCourseCount(len(snap.Courses))

	for ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
