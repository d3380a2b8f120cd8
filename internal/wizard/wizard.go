// Package wizard pages through the quotation form's sections. It holds no
// form data, only the current position.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tripquote/internal/adapters/observability"
)

var ErrSubmitInProgress = errors.New("wizard: submit already in progress")

type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// DefaultSections is the quotation form in display order.
func DefaultSections() []Section {
	return []Section{
		{Key: "basic", Title: "Basic Details"},
		{Key: "cost", Title: "Cost"},
		{Key: "hotels", Title: "Hotels"},
		{Key: "incl-excl", Title: "Inclusions & Exclusions"},
		{Key: "flights", Title: "Flights"},
		{Key: "itinerary", Title: "Itinerary"},
	}
}

// SubmitFunc runs when the advance action is used on the last section.
type SubmitFunc func(ctx context.Context) error

// Wizard tracks the current section. The index always stays in [0, N-1].
type Wizard struct {
	sections []Section
	onSubmit SubmitFunc

	mu         sync.Mutex
	index      int
	submitting bool
}

// New panics on an empty section list; a wizard without sections is a
// programming error.
func New(sections []Section, onSubmit SubmitFunc) *Wizard {
	if len(sections) == 0 {
		panic("wizard: no sections")
	}
	s := make([]Section, len(sections))
	copy(s, sections)
	return &Wizard{sections: s, onSubmit: onSubmit}
}

func (w *Wizard) Len() int { return len(w.sections) }

func (w *Wizard) Sections() []Section {
	out := make([]Section, len(w.sections))
	copy(out, w.sections)
	return out
}

func (w *Wizard) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

func (w *Wizard) Current() Section {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sections[w.index]
}

func (w *Wizard) IsFirst() bool { return w.Index() == 0 }

func (w *Wizard) IsLast() bool { return w.Index() == len(w.sections)-1 }

// PrimaryLabel is the advance button's text: "Submit" on the last section.
func (w *Wizard) PrimaryLabel() string {
	if w.IsLast() {
		return "Submit"
	}
	return "Next"
}

// Counter renders the 1-based position, e.g. "2/6".
func (w *Wizard) Counter() string {
	return fmt.Sprintf("%d/%d", w.Index()+1, len(w.sections))
}

// Next moves forward. Sections are not validated on the way; on the last
// section it calls the submit callback instead and stays put. submitted
// reports whether the callback ran, err is its result.
func (w *Wizard) Next(ctx context.Context) (submitted bool, err error) {
	w.mu.Lock()
	if w.index < len(w.sections)-1 {
		w.index++
		w.mu.Unlock()
		observability.ObserveWizard("next")
		return false, nil
	}
	if w.submitting {
		w.mu.Unlock()
		return false, ErrSubmitInProgress
	}
	w.submitting = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	if w.onSubmit == nil {
		return true, nil
	}
	if err := w.onSubmit(ctx); err != nil {
		observability.ObserveWizard("submit_failed")
		return true, err
	}
	observability.ObserveWizard("submit")
	return true, nil
}

// Previous moves back one section. It reports false at the first section.
func (w *Wizard) Previous() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.index == 0 {
		return false
	}
	w.index--
	observability.ObserveWizard("previous")
	return true
}

// GoTo jumps to section i, clamped to the valid range, and returns the
// resulting index.
func (w *Wizard) GoTo(i int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case i < 0:
		i = 0
	case i > len(w.sections)-1:
		i = len(w.sections) - 1
	}
	w.index = i
	observability.ObserveWizard("goto")
	return i
}
