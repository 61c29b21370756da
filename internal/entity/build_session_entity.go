package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionPhase is the explicit state of a build session.
type SessionPhase string

const (
	PhaseCollecting SessionPhase = "COLLECTING"
	PhaseStepping   SessionPhase = "STEPPING"
	PhaseComplete   SessionPhase = "COMPLETE"
)

// StepStatus marks how a category step was resolved.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepSelected StepStatus = "SELECTED"
	StepSkipped  StepStatus = "SKIPPED"
)

// BuildStep is one category in the guided build flow.
type BuildStep struct {
	Category string
	Optional bool
	Status   StepStatus
	Selected *Component
}

// BuildSession is the mutable state of one in-progress guided configuration.
// It is mutated only by the session manager under the per-session lock.
type BuildSession struct {
	Id          uuid.UUID
	Purpose     string
	Budget      int
	Spent       int
	Steps       []BuildStep
	StepIndex   int
	Phase       SessionPhase
	Preferences map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Remaining returns the budget left after all selections so far.
func (s *BuildSession) Remaining() int {
	return s.Budget - s.Spent
}

// CurrentStep returns the step the session is positioned on, or nil when
// the session is not in the stepping phase.
func (s *BuildSession) CurrentStep() *BuildStep {
	if s.Phase != PhaseStepping || s.StepIndex < 0 || s.StepIndex >= len(s.Steps) {
		return nil
	}
	return &s.Steps[s.StepIndex]
}

// Clone returns a deep copy sharing no memory with the receiver. Stores
// that keep sessions in-process hand out clones so readers never alias
// the copy a concurrent request is mutating.
func (s *BuildSession) Clone() *BuildSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.Steps != nil {
		out.Steps = make([]BuildStep, len(s.Steps))
		for i, step := range s.Steps {
			step.Selected = step.Selected.Clone()
			out.Steps[i] = step
		}
	}
	if s.Preferences != nil {
		out.Preferences = make(map[string]string, len(s.Preferences))
		for k, v := range s.Preferences {
			out.Preferences[k] = v
		}
	}
	return &out
}

// SelectedComponents returns the components chosen so far, keyed by category.
func (s *BuildSession) SelectedComponents() map[string]*Component {
	out := make(map[string]*Component)
	for _, step := range s.Steps {
		if step.Status == StepSelected && step.Selected != nil {
			out[step.Category] = step.Selected
		}
	}
	return out
}
