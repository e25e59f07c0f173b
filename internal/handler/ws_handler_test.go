package handler

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/service"
	ws "github.com/stemsi/coursehub-backend/internal/websocket"
)

type wsEvent struct {
	Event ws.Event           `json:"event"`
	Error string             `json:"error"`
	Data  service.CourseView `json:"data"`
}

func dialCourseStream(t *testing.T) (*WSHandler, *websocket.Conn) {
	t.Helper()
	f := newFixture(readySnapshot(1, sampleCourses(12)))
	f.store.keepOpen = true

	h := NewWSHandler(f.courses, nil, zerolog.Nop(), nil)
	r := gin.New()
	r.GET("/ws", h.CourseStream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(h.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return h, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func send(t *testing.T, conn *websocket.Conn, req ws.Request) wsEvent {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	return readEvent(t, conn)
}

func TestCourseStreamPushesViewOnConnect(t *testing.T) {
	_, conn := dialCourseStream(t)

	ev := readEvent(t, conn)
	assert.Equal(t, ws.EventView, ev.Event)
	assert.Len(t, ev.Data.Courses, 10)
	assert.Equal(t, 12, ev.Data.FilteredCount)
	assert.Equal(t, 1, ev.Data.CurrentPage)
}

func TestCourseStreamAppliesActions(t *testing.T) {
	_, conn := dialCourseStream(t)
	readEvent(t, conn)

	ev := send(t, conn, ws.Request{Action: ws.ActionSetPage, Page: 2})
	assert.Equal(t, ws.EventView, ev.Event)
	assert.Equal(t, 2, ev.Data.CurrentPage)
	assert.Len(t, ev.Data.Courses, 2)

	ev = send(t, conn, ws.Request{Action: ws.ActionSetSearch, Term: "course 1"})
	assert.Equal(t, "course 1", ev.Data.Search)
	assert.Equal(t, 4, ev.Data.FilteredCount)
	assert.Equal(t, 1, ev.Data.CurrentPage)

	ev = send(t, conn, ws.Request{Action: ws.ActionSetFilter, Field: string(model.FilterProgram), Value: model.ProgramSeniorHigh})
	assert.Equal(t, model.ProgramSeniorHigh, ev.Data.Filters.Program)
	assert.Equal(t, 0, ev.Data.FilteredCount)
	assert.Len(t, ev.Data.AvailableTechnologies, 5)

	ev = send(t, conn, ws.Request{Action: ws.ActionClearFilters})
	assert.Equal(t, model.All, ev.Data.Filters.Program)
	assert.Equal(t, "course 1", ev.Data.Search)
	assert.Equal(t, 4, ev.Data.FilteredCount)
}

func TestCourseStreamHugePageKeepsSession(t *testing.T) {
	_, conn := dialCourseStream(t)
	readEvent(t, conn)

	ev := send(t, conn, ws.Request{Action: ws.ActionSetPage, Page: 1_000_000_000_000_000_001})
	assert.Equal(t, ws.EventView, ev.Event)
	assert.Empty(t, ev.Data.Courses)
	assert.Equal(t, 2, ev.Data.TotalPages)

	ev = send(t, conn, ws.Request{Action: ws.ActionPing})
	assert.Equal(t, ws.EventPong, ev.Event)
}

func TestCourseStreamReportsBadMessages(t *testing.T) {
	_, conn := dialCourseStream(t)
	readEvent(t, conn)

	ev := send(t, conn, ws.Request{Action: ws.ActionSetFilter, Field: string(model.FilterPriceRange), Value: "cheap"})
	assert.Equal(t, ws.EventError, ev.Event)
	assert.Contains(t, ev.Error, "cheap")

	ev = send(t, conn, ws.Request{Action: "dance"})
	assert.Equal(t, ws.EventError, ev.Event)
	assert.Contains(t, ev.Error, "unknown action")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	ev = readEvent(t, conn)
	assert.Equal(t, ws.EventError, ev.Event)
	assert.Equal(t, "malformed message", ev.Error)

	// The session survives errors.
	ev = send(t, conn, ws.Request{Action: ws.ActionPing})
	assert.Equal(t, ws.EventPong, ev.Event)
}

func TestCourseStreamClosesOnShutdown(t *testing.T) {
	h, conn := dialCourseStream(t)
	readEvent(t, conn)

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
}
