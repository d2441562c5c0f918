package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Warehouse Location = "Warehouse"
	Assembly  Location = "Assembly"
	Suspect   Location = "Suspect"
)

const (
	Added   Action = "Added"
	Removed Action = "Removed"
)

// TimestampLayout is the canonical ledger timestamp format. It sorts
// lexicographically in chronological order at second precision.
const TimestampLayout = "2006-01-02 15:04:05"

type (
	// Location is the stock bucket a transaction applies to. Suspect holds
	// defective units and never counts toward usable totals.
	Location string

	// Action describes the direction of a transaction for display. The sign
	// of Quantity is authoritative; Action is never used in arithmetic.
	Action string

	// Transaction is one appended ledger row. Quantity is signed: positive
	// adds stock, negative removes it.
	Transaction struct {
		Timestamp time.Time
		Action    Action
		Model     string
		Location  Location
		Quantity  int
	}
)

var (
	ErrEmptyModel      = errors.New("empty model")
	ErrZeroQuantity    = errors.New("zero quantity")
	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidAction   = errors.New("invalid action")
)

// NormalizeModel trims surrounding whitespace and uppercases a model code.
// All models are stored and compared in this normalized form.
func NormalizeModel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ActionFor returns the display action matching the sign of qty.
func ActionFor(qty int) Action {
	if qty < 0 {
		return Removed
	}
	return Added
}

func (l Location) Validate() error {
	switch l {
	case Warehouse, Assembly, Suspect:
		return nil
	}
	return ErrInvalidLocation
}

func (a Action) Validate() error {
	switch a {
	case Added, Removed:
		return nil
	}
	return ErrInvalidAction
}

func (t Transaction) Validate() error {
	if NormalizeModel(t.Model) == "" {
		return ErrEmptyModel
	}
	if t.Quantity == 0 {
		return ErrZeroQuantity
	}
	if err := t.Location.Validate(); err != nil {
		return err
	}
	if err := t.Action.Validate(); err != nil {
		return err
	}
	return nil
}

// Normalize returns a copy with the model uppercased and trimmed and the
// timestamp truncated to whole seconds, matching the storage precision.
func (t Transaction) Normalize() Transaction {
	t.Model = NormalizeModel(t.Model)
	t.Timestamp = t.Timestamp.Truncate(time.Second)
	return t
}

// DisplayLine renders the transaction the way the activity feed shows it,
// for example "[14:03:07] Added 3 x TX-9 (Warehouse)". The quantity is shown
// as a magnitude; the action carries the direction.
func (t Transaction) DisplayLine() string {
	qty := t.Quantity
	if qty < 0 {
		qty = -qty
	}
	return fmt.Sprintf("[%s] %s %d x %s (%s)",
		t.Timestamp.Format("15:04:05"), t.Action, qty, t.Model, t.Location)
}
