package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stemsi/coursehub-backend/internal/model"
)

// ErrMalformed is returned by Decode for payloads that are not a change envelope.
var ErrMalformed = errors.New("malformed change payload")

// Resolver loads a course by id. It is used when a notification was too large
// to carry the row itself.
type Resolver func(ctx context.Context, id int) (*model.Course, error)

// envelope is the JSON carried by NOTIFY payloads and Redis messages:
//
//	{"type":"INSERT|UPDATE|DELETE","id":N,"record":{...},"old_id":N}
type envelope struct {
	Type   model.ChangeType `json:"type"`
	ID     int              `json:"id,omitempty"`
	Record *model.Course    `json:"record,omitempty"`
	OldID  int              `json:"old_id,omitempty"`
}

// Decode parses a change envelope. For inserts and updates whose record was
// omitted, the returned event has a nil Record and id holds the row to load.
func Decode(payload []byte) (ev model.ChangeEvent, id int, err error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ev, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !env.Type.Valid() {
		return ev, 0, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}

	ev = model.ChangeEvent{Type: env.Type, Record: env.Record, OldID: env.OldID}
	switch env.Type {
	case model.ChangeDelete:
		if env.OldID <= 0 {
			return ev, 0, fmt.Errorf("%w: delete without old_id", ErrMalformed)
		}
		return ev, env.OldID, nil
	default:
		if env.Record != nil {
			return ev, env.Record.ID, nil
		}
		if env.ID <= 0 {
			return ev, 0, fmt.Errorf("%w: %s without record or id", ErrMalformed, env.Type)
		}
		return ev, env.ID, nil
	}
}

// Encode produces the envelope for ev.
func Encode(ev model.ChangeEvent) ([]byte, error) {
	env := envelope{Type: ev.Type, Record: ev.Record, OldID: ev.OldID}
	if ev.Record != nil {
		env.ID = ev.Record.ID
	}
	return json.Marshal(env)
}

// complete fills in a missing record through resolve. ok is false when the
// row no longer exists and the event should be dropped.
func complete(ctx context.Context, ev model.ChangeEvent, id int, resolve Resolver) (model.ChangeEvent, bool, error) {
	if ev.Type == model.ChangeDelete || ev.Record != nil {
		return ev, true, nil
	}
	if resolve == nil {
		return ev, false, fmt.Errorf("no resolver for %s of course %d", ev.Type, id)
	}
	c, err := resolve(ctx, id)
	if err != nil {
		return ev, false, err
	}
	if c == nil {
		return ev, false, nil
	}
	ev.Record = c
	return ev, true, nil
}
