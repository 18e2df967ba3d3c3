// Package wizard implements a linear, forward/backward-only flow over a draft record.
// Both the booking and the registration flows are instances of it.
package wizard

import (
	"errors"
	"fmt"
)

// ErrIncompleteStep is returned when the current step's validator rejects the draft.
var ErrIncompleteStep = errors.New("step incomplete")

// Mergeable is a draft that accepts partial updates of type P.
type Mergeable[D any, P any] interface {
	Merge(P) D
}

// Step is one ordered stage of a wizard. A nil Validate never blocks.
type Step[D any] struct {
	Name     string
	Validate func(D) error
}

// State is the persistable position of a wizard.
type State[D any] struct {
	Step  int `json:"step"`
	Draft D   `json:"draft"`
}

// StepError names the step that blocked a transition.
type StepError struct {
	Index int
	Name  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{ErrIncompleteStep, e.Err}
}

// Sequencer owns a draft and the 1-based index of the current step.
type Sequencer[D Mergeable[D, P], P any] struct {
	steps   []Step[D]
	current int
	draft   D
	initial D
}

// New returns a sequencer positioned on step 1 with the given initial draft.
// It panics when no step is given.
func New[D Mergeable[D, P], P any](initial D, steps ...Step[D]) *Sequencer[D, P] {
	if len(steps) == 0 {
		panic("wizard: at least one step is required")
	}
	return &Sequencer[D, P]{
		steps:   steps,
		current: 1,
		draft:   initial,
		initial: initial,
	}
}

// Len is the number of steps.
func (s *Sequencer[D, P]) Len() int { return len(s.steps) }

// Current is the 1-based index of the current step.
func (s *Sequencer[D, P]) Current() int { return s.current }

// CurrentStep returns the definition of the current step.
func (s *Sequencer[D, P]) CurrentStep() Step[D] { return s.steps[s.current-1] }

// Names lists the step names in order.
func (s *Sequencer[D, P]) Names() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.Name
	}
	return names
}

// IsFinal reports whether the current step is the last one.
func (s *Sequencer[D, P]) IsFinal() bool { return s.current == len(s.steps) }

// Draft returns a copy of the current draft.
func (s *Sequencer[D, P]) Draft() D { return s.draft }

// Update shallow-merges a partial update into the draft.
func (s *Sequencer[D, P]) Update(p P) {
	s.draft = s.draft.Merge(p)
}

// Replace lets a component rewrite the draft wholesale, e.g. to set derived fields.
func (s *Sequencer[D, P]) Replace(fn func(D) D) {
	s.draft = fn(s.draft)
}

// Check runs the validator of step i (1-based) against the draft.
func (s *Sequencer[D, P]) Check(i int) error {
	if i < 1 || i > len(s.steps) {
		return fmt.Errorf("wizard: step %d out of range 1..%d", i, len(s.steps))
	}
	st := s.steps[i-1]
	if st.Validate == nil {
		return nil
	}
	if err := st.Validate(s.draft); err != nil {
		return &StepError{Index: i, Name: st.Name, Err: err}
	}
	return nil
}

// Next advances one step if the current step validates. On the last step it
// is a no-op. On failure the index is unchanged.
func (s *Sequencer[D, P]) Next() error {
	if err := s.Check(s.current); err != nil {
		return err
	}
	if s.current < len(s.steps) {
		s.current++
	}
	return nil
}

// Prev retreats one step without validation. It reports whether the index moved.
func (s *Sequencer[D, P]) Prev() bool {
	if s.current <= 1 {
		return false
	}
	s.current--
	return true
}

// Ready validates every step before the final one, which is where the terminal
// action is invoked from.
func (s *Sequencer[D, P]) Ready() error {
	for i := 1; i < len(s.steps); i++ {
		if err := s.Check(i); err != nil {
			return err
		}
	}
	return nil
}

// Reset puts the draft back to its initial value and returns to step 1.
func (s *Sequencer[D, P]) Reset() {
	s.draft = s.initial
	s.current = 1
}

// Snapshot captures the position for persistence.
func (s *Sequencer[D, P]) Snapshot() State[D] {
	return State[D]{Step: s.current, Draft: s.draft}
}

// Restore resumes from a persisted position; the step index is clamped into range.
func (s *Sequencer[D, P]) Restore(st State[D]) {
	s.draft = st.Draft
	switch {
	case st.Step < 1:
		s.current = 1
	case st.Step > len(s.steps):
		s.current = len(s.steps)
	default:
		s.current = st.Step
	}
}
