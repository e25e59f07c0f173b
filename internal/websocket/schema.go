package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSetSearch    Action = "set_search"
	ActionSetFilter    Action = "set_filter"
	ActionClearFilters Action = "clear_filters"
	ActionSetPage      Action = "set_page"
	ActionPing         Action = "ping"
)

// Request is one client message. Only the fields used by Action are read.
type Request struct {
	Action Action `json:"action"`
	Term   string `json:"term,omitempty"`  // set_search
	Field  string `json:"field,omitempty"` // set_filter
	Value  string `json:"value,omitempty"` // set_filter
	Page   int    `json:"page,omitempty"`  // set_page
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventView  Event = "view"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// ViewResponse carries a full derived view.
type ViewResponse struct {
	Event Event `json:"event"`
	Data  any   `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
