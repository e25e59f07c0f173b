package model

// ChangeType is the kind of row-level change delivered by the change feed.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Valid reports whether t is one of the known change types.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// ChangeEvent is one notification from the change feed.
// Record is set for inserts and updates, OldID for updates and deletes.
type ChangeEvent struct {
	Type   ChangeType `json:"type"`
	Record *Course    `json:"record,omitempty"`
	OldID  int        `json:"old_id,omitempty"`
}

// TargetID returns the id of the row the event applies to.
func (e ChangeEvent) TargetID() int {
	if e.Type == ChangeDelete || e.Record == nil {
		return e.OldID
	}
	return e.Record.ID
}
