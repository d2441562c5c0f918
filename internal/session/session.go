// Package session tracks per-operator state between requests: the login
// session itself and the half-filled entry form. Each operator gets their
// own state, so two people logging stock at once never see each other's
// form values.
package session

import (
	"sync"

	"stocktake/internal/core"
)

// Entry is the stock entry form. The model can arrive two ways, typed
// free-hand or picked from the known-models list, and the two fields are
// mutually exclusive: setting one clears the other, so the active model is
// always whichever the operator touched last.
type Entry struct {
	TypedModel  string        `json:"typed_model"`
	PickedModel string        `json:"picked_model"`
	Location    core.Location `json:"location"`
	Quantity    int           `json:"quantity"`
	Action      core.Action   `json:"action"`
}

// NewEntry returns the form defaults a fresh session starts with.
func NewEntry() Entry {
	return Entry{
		Location: core.Warehouse,
		Quantity: 1,
		Action:   core.Added,
	}
}

// SetTyped records a typed model and drops any pick.
func (e *Entry) SetTyped(model string) {
	e.TypedModel = model
	e.PickedModel = ""
}

// SetPicked records a picked model and drops any typed text.
func (e *Entry) SetPicked(model string) {
	e.PickedModel = model
	e.TypedModel = ""
}

// ActiveModel resolves the model the operator means right now.
func (e Entry) ActiveModel() string {
	if e.TypedModel != "" {
		return e.TypedModel
	}
	return e.PickedModel
}

// Reset clears the model fields and returns the quantity to 1 after a
// successful submission. Location and action stick, matching how an
// operator logs several rows against the same bucket in a row.
func (e *Entry) Reset() {
	e.TypedModel = ""
	e.PickedModel = ""
	e.Quantity = 1
}

// State is everything the server remembers about one logged-in operator.
type State struct {
	mu    sync.Mutex
	entry Entry
}

func newState() *State {
	return &State{entry: NewEntry()}
}

// Form returns a copy of the current entry form.
func (s *State) Form() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// Update mutates the entry form under the session lock.
func (s *State) Update(fn func(*Entry)) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.entry)
	return s.entry
}

// ResetAfterSubmit applies the post-submission form reset.
func (s *State) ResetAfterSubmit() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry.Reset()
	return s.entry
}
