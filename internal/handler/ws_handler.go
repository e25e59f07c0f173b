package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/service"
	"github.com/stemsi/coursehub-backend/internal/store"
	"github.com/stemsi/coursehub-backend/internal/view"
	ws "github.com/stemsi/coursehub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves live browsing sessions. Each connection keeps its own
// search, filters and page and is re-rendered whenever the store changes.
type WSHandler struct {
	courses  *service.CourseService
	metrics  *service.MetricsService
	log      zerolog.Logger
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(courses *service.CourseService, metrics *service.MetricsService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		courses:  courses,
		metrics:  metrics,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		done:     make(chan struct{}),
	}
}

// Close ends every open session with a going-away frame.
func (h *WSHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// CourseStream godoc
// WS /ws/v1/courses
// Upgrades to WebSocket. The current view is pushed on connect, after every
// client action and after every store change.
func (h *WSHandler) CourseStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	wsLog := h.log.With().
		Str("session_id", uuid.New().String()).
		Str("client_ip", c.ClientIP()).
		Logger()

	h.metrics.LiveSessionOpened()
	defer h.metrics.LiveSessionClosed()
	wsLog.Info().Msg("Live session opened")

	snaps, stopWatch := h.courses.Watch()
	defer stopWatch()

	// The reader only decodes; this goroutine owns the session and is the
	// connection's single writer.
	actions := make(chan ws.Request)
	quit := make(chan struct{})
	defer close(quit)
	readDone := make(chan struct{})
	go h.readActions(conn, wsLog, actions, quit, readDone)

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	sess := view.NewSession()
	var snap *store.Snapshot

	for {
		var err error

		select {
		case <-readDone:
			wsLog.Info().Msg("Live session closed")
			return

		case <-h.done:
			_ = ws.WriteClose(conn, websocket.CloseGoingAway, "server shutting down")
			return

		case next, ok := <-snaps:
			if !ok {
				return
			}
			snap = next
			err = ws.WriteView(conn, h.courses.Render(snap, sess.Input(nil)))

		case req := <-actions:
			reply := h.apply(sess, req)
			if reply == nil && snap != nil {
				reply = ws.ViewResponse{Event: ws.EventView, Data: h.courses.Render(snap, sess.Input(nil))}
			}
			if reply != nil {
				err = ws.WriteTyped(conn, reply)
			}

		case <-ping.C:
			err = ws.WritePing(conn)
		}

		if err != nil {
			wsLog.Debug().Err(err).Msg("Live session write failed")
			return
		}
	}
}

// apply runs one client action against sess. A nil reply means the view
// should be re-sent.
func (h *WSHandler) apply(sess *view.Session, req ws.Request) any {
	switch req.Action {
	case ws.ActionSetSearch:
		sess.SetSearch(req.Term)
	case ws.ActionSetFilter:
		if err := sess.SetFilter(model.FilterField(req.Field), req.Value); err != nil {
			return ws.ErrorResponse{Event: ws.EventError, Error: err.Error()}
		}
	case ws.ActionClearFilters:
		sess.ClearFilters()
	case ws.ActionSetPage:
		sess.SetPage(req.Page)
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}
	case "":
		return ws.ErrorResponse{Event: ws.EventError, Error: "malformed message"}
	default:
		return ws.ErrorResponse{Event: ws.EventError, Error: fmt.Sprintf("unknown action: %q", req.Action)}
	}
	return nil
}

func (h *WSHandler) readActions(conn *websocket.Conn, wsLog zerolog.Logger, actions chan<- ws.Request, quit <-chan struct{}, readDone chan<- struct{}) {
	defer close(readDone)
	for {
		var req ws.Request
		if err := ws.ReadJSON(conn, &req); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				req = ws.Request{}
			} else {
				h.logReadError(wsLog, err)
				return
			}
		}
		select {
		case actions <- req:
		case <-quit:
			return
		}
	}
}

func (h *WSHandler) logReadError(wsLog zerolog.Logger, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		wsLog.Warn().Err(err).Msg("Unexpected close")
	} else {
		wsLog.Debug().Err(err).Msg("Connection closed")
	}
}
