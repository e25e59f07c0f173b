package handler

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/store"
	"github.com/stemsi/coursehub-backend/internal/validator"
)

const keepAliveInterval = 25 * time.Second

// CourseHandler serves the course catalog and its admin writes.
type CourseHandler struct {
	courses *service.CourseService
	log     zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courses *service.CourseService, log zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		courses: courses,
		log:     log.With().Str("component", "course_handler").Logger(),
		done:    make(chan struct{}),
	}
}

// Close ends every open event stream.
func (h *CourseHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ListCourses godoc
// GET /api/v1/courses
// Returns one page of the filtered catalog plus the technologies offered for
// the selected program. A failed load is reported in the body with state "error".
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var q model.CourseQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	v := h.courses.Browse(q)
	response.SuccessWithPagination(c, http.StatusOK, v, &response.Pagination{
		Page:       v.CurrentPage,
		PerPage:    v.PageSize,
		TotalItems: v.FilteredCount,
		TotalPages: v.TotalPages,
	})
}

// GetCourse godoc
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	course, err := h.courses.GetByID(id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// GetFilters godoc
// GET /api/v1/catalog/filters
func (h *CourseHandler) GetFilters(c *gin.Context) {
	response.Success(c, http.StatusOK, h.courses.Filters())
}

type changeEventData struct {
	Version uint64           `json:"version"`
	Type    model.ChangeType `json:"type"`
	Record  *model.Course    `json:"record,omitempty"`
	OldID   int              `json:"old_id,omitempty"`
}

type reloadEventData struct {
	Version      uint64      `json:"version"`
	State        store.State `json:"state"`
	Error        string      `json:"error,omitempty"`
	TotalCourses int         `json:"total_courses"`
}

// CourseEvents godoc
// GET /api/v1/courses/events
// Streams store changes over SSE. A "change" event carries one applied change;
// a "reload" event means the client should re-read the list, either after a
// full load or because it missed intermediate versions.
func (h *CourseHandler) CourseEvents(c *gin.Context) {
	snaps, stop := h.courses.Watch()
	defer stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	reqCtx := c.Request.Context()
	var last uint64
	first := true

	h.log.Debug().Str("client_ip", c.ClientIP()).Msg("Client attached to course events")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Debug().Str("client_ip", c.ClientIP()).Msg("Client detached from course events")
			return

		case <-h.done:
			return

		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if !first && snap.Cause != nil && snap.Version == last+1 {
				c.SSEvent("change", changeEventData{
					Version: snap.Version,
					Type:    snap.Cause.Type,
					Record:  snap.Cause.Record,
					OldID:   snap.Cause.OldID,
				})
			} else {
				c.SSEvent("reload", reloadEventData{
					Version:      snap.Version,
					State:        snap.State,
					Error:        snap.Error,
					TotalCourses: len(snap.Courses),
				})
			}
			first = false
			last = snap.Version
			c.Writer.Flush()

		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			c.Writer.Flush()
		}
	}
}

// CreateCourse godoc
// POST /api/v1/admin/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courses.Create(c.Request.Context(), &req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create course")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// UpdateCourse godoc
// PUT /api/v1/admin/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courses.Update(c.Request.Context(), id, (*model.CreateCourseRequest)(&req))
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
			return
		}
		h.log.Error().Err(err).Int("course_id", id).Msg("Failed to update course")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// DeleteCourse godoc
// DELETE /api/v1/admin/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrCourseNotFound)
			return
		}
		h.log.Error().Err(err).Int("course_id", id).Msg("Failed to delete course")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "course deleted successfully"})
}

// RefetchCourses godoc
// POST /api/v1/admin/courses/refetch
// Starts a new full read. The result arrives on the event stream.
func (h *CourseHandler) RefetchCourses(c *gin.Context) {
	h.courses.Refetch()
	response.Success(c, http.StatusAccepted, gin.H{"message": "course refetch started"})
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
