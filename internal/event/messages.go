package event

import (
	"encoding/json"
	"time"

	"stocktake/internal/core"
)

const (
	KindAppend = "append"
	KindUndo   = "undo"
	KindWipe   = "wipe"
)

// LedgerEvent mirrors one ledger mutation. Append events carry the whole
// row so a mirror can replay it without reading the primary store; undo and
// wipe are positional and need no payload.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	Timestamp string    `json:"timestamp,omitempty"`
	Action    string    `json:"action,omitempty"`
	Model     string    `json:"model,omitempty"`
	Location  string    `json:"location,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

func NewAppendEvent(tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Kind:      KindAppend,
		Timestamp: tx.Timestamp.Format(core.TimestampLayout),
		Action:    string(tx.Action),
		Model:     tx.Model,
		Location:  string(tx.Location),
		Quantity:  tx.Quantity,
		EmittedAt: time.Now(),
	}
}

func NewUndoEvent() *LedgerEvent {
	return &LedgerEvent{Kind: KindUndo, EmittedAt: time.Now()}
}

func NewWipeEvent() *LedgerEvent {
	return &LedgerEvent{Kind: KindWipe, EmittedAt: time.Now()}
}

// Transaction rebuilds the appended row from an append event.
func (e *LedgerEvent) Transaction() (core.Transaction, bool) {
	if e.Kind != KindAppend {
		return core.Transaction{}, false
	}
	ts, _ := time.ParseInLocation(core.TimestampLayout, e.Timestamp, time.Local)
	return core.Transaction{
		Timestamp: ts,
		Action:    core.Action(e.Action),
		Model:     e.Model,
		Location:  core.Location(e.Location),
		Quantity:  e.Quantity,
	}, true
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes.
func FromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
