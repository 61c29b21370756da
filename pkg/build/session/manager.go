package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pc-build-advisor-be/internal/constant"
	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/pkg/logger"
	"pc-build-advisor-be/internal/repository/contract"
	"pc-build-advisor-be/pkg/build/compat"
	"pc-build-advisor-be/pkg/document"
	"pc-build-advisor-be/pkg/events"
	"pc-build-advisor-be/pkg/rag/retriever"
)

var (
	// ErrConflict means another request holds the session's lock right now.
	ErrConflict = errors.New("session is busy with another request")

	// ErrNotStepping means the session is not in a phase that accepts
	// step operations.
	ErrNotStepping = errors.New("session is not in the stepping phase")

	ErrStepRequired      = errors.New("current step is required and cannot be skipped")
	ErrCandidateNotFound = errors.New("candidate no longer exists in the catalog")
	ErrWrongCategory     = errors.New("candidate category does not match the current step")
	ErrBudgetRequired    = errors.New("a positive budget is required to start stepping")
)

// BlockedError carries the failing verdicts when a selection is rejected.
// The selection is not recorded; the caller surfaces the reasons and lets
// the user pick again.
type BlockedError struct {
	Verdicts []entity.CompatibilityVerdict
}

func (e *BlockedError) Error() string {
	var reasons []string
	for _, v := range e.Verdicts {
		if v.Severity == entity.SeverityFail {
			reasons = append(reasons, v.Reason)
		}
	}
	return "selection blocked: " + strings.Join(reasons, "; ")
}

// Candidate is one pre-vetted option for the current step. Verdicts never
// contain a fail; blocked candidates are filtered out before they surface.
type Candidate struct {
	Component entity.Component
	Score     float64
	Verdicts  []entity.CompatibilityVerdict
}

// StepView is what the user sees for the step the session is positioned on.
type StepView struct {
	Category   string
	Optional   bool
	Index      int
	Total      int
	Candidates []Candidate
	// AutoSkipped lists optional categories that were passed over because
	// nothing in the catalog survived filtering for them.
	AutoSkipped []string
}

// Summary is the final state of a completed build.
type Summary struct {
	Session  *entity.BuildSession
	Verdicts []entity.CompatibilityVerdict
}

type Config struct {
	CandidatesPerStep int
	// OverFetch widens the retrieval so that compatibility-blocked hits do
	// not leave the step short of options.
	OverFetch int
}

func DefaultConfig() Config {
	return Config{CandidatesPerStep: 5, OverFetch: 3}
}

// Manager owns the guided build flow: one locked, ordered walk through the
// component categories per session. All session mutation happens here,
// under the per-session lock.
type Manager struct {
	sessions  contract.BuildSessionRepository
	retriever *retriever.Retriever
	filter    *compat.Filter
	publisher EventPublisher
	logger    logger.ILogger
	config    Config

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// EventPublisher is satisfied by the NATS publisher. Nil is fine; events
// are best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

func NewManager(
	sessions contract.BuildSessionRepository,
	ret *retriever.Retriever,
	filter *compat.Filter,
	publisher EventPublisher,
	log logger.ILogger,
	config Config,
) *Manager {
	if config.CandidatesPerStep <= 0 {
		config.CandidatesPerStep = DefaultConfig().CandidatesPerStep
	}
	if config.OverFetch <= 0 {
		config.OverFetch = DefaultConfig().OverFetch
	}
	return &Manager{
		sessions:  sessions,
		retriever: ret,
		filter:    filter,
		publisher: publisher,
		logger:    log,
		config:    config,
	}
}

// Start creates a session. With a positive budget it goes straight to the
// stepping phase; without one it stays collecting until SetRequirements
// provides the missing pieces.
func (m *Manager) Start(ctx context.Context, purpose string, budget int, preferences map[string]string) (*entity.BuildSession, error) {
	now := time.Now()
	session := &entity.BuildSession{
		Id:          uuid.New(),
		Purpose:     purpose,
		Budget:      budget,
		Phase:       entity.PhaseCollecting,
		Preferences: preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if budget > 0 {
		m.beginStepping(session)
	}
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	m.logger.Info("SESSION", "Build session started", map[string]interface{}{
		"session_id": session.Id,
		"budget":     budget,
		"phase":      session.Phase,
	})
	return session, nil
}

// SetRequirements fills in purpose and budget on a collecting session and
// moves it into the stepping phase.
func (m *Manager) SetRequirements(ctx context.Context, id uuid.UUID, purpose string, budget int) (*entity.BuildSession, error) {
	if budget <= 0 {
		return nil, ErrBudgetRequired
	}
	unlock, err := m.lock(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := m.sessions.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if purpose != "" {
		session.Purpose = purpose
	}
	session.Budget = budget
	if session.Phase == entity.PhaseCollecting {
		m.beginStepping(session)
	}
	session.UpdatedAt = time.Now()
	if err := m.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Get loads a session without taking the lock.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*entity.BuildSession, error) {
	return m.sessions.FindById(ctx, id)
}

// Candidates retrieves the vetted options for the session's current step.
// Optional steps with nothing viable are skipped on the fly, so the view
// returned always has candidates unless a required step came up empty.
func (m *Manager) Candidates(ctx context.Context, id uuid.UUID) (*StepView, error) {
	unlock, err := m.lock(id)
	if err != nil {
		return nil, err
	}
	var session *entity.BuildSession
	defer func() { m.release(id, unlock, session) }()

	session, err = m.sessions.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Phase != entity.PhaseStepping {
		return nil, ErrNotStepping
	}
	if err := m.revalidate(ctx, session); err != nil {
		return nil, err
	}

	var autoSkipped []string
	for {
		step := session.CurrentStep()
		if step == nil {
			// revalidation or auto-skip walked the session off the end
			if err := m.complete(ctx, session); err != nil {
				return nil, err
			}
			return &StepView{Index: len(session.Steps), Total: len(session.Steps), AutoSkipped: autoSkipped}, nil
		}

		candidates, err := m.stepCandidates(ctx, session, step)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 && step.Optional {
			step.Status = entity.StepSkipped
			autoSkipped = append(autoSkipped, step.Category)
			m.logger.Info("SESSION", "Optional step auto-skipped", map[string]interface{}{
				"session_id": session.Id,
				"category":   step.Category,
			})
			if err := m.advance(ctx, session); err != nil {
				return nil, err
			}
			if session.Phase == entity.PhaseComplete {
				return &StepView{Index: len(session.Steps), Total: len(session.Steps), AutoSkipped: autoSkipped}, nil
			}
			continue
		}

		session.UpdatedAt = time.Now()
		if err := m.sessions.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return &StepView{
			Category:    step.Category,
			Optional:    step.Optional,
			Index:       session.StepIndex,
			Total:       len(session.Steps),
			Candidates:  candidates,
			AutoSkipped: autoSkipped,
		}, nil
	}
}

// Select records a component for the current step and advances. A
// candidate with any fail verdict is rejected with a BlockedError and the
// session stays where it was.
func (m *Manager) Select(ctx context.Context, id uuid.UUID, componentId string) (*entity.BuildSession, []entity.CompatibilityVerdict, error) {
	unlock, err := m.lock(id)
	if err != nil {
		return nil, nil, err
	}
	var session *entity.BuildSession
	defer func() { m.release(id, unlock, session) }()

	session, err = m.sessions.FindById(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session.Phase != entity.PhaseStepping {
		return nil, nil, ErrNotStepping
	}
	step := session.CurrentStep()
	if step == nil {
		return nil, nil, ErrNotStepping
	}

	docs, err := m.retriever.Fetch(ctx, []string{componentId})
	if err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return nil, nil, ErrCandidateNotFound
	}
	component := document.ToComponent(docs[0])
	if component.Category != step.Category {
		return nil, nil, fmt.Errorf("%w: got %s, step wants %s", ErrWrongCategory, component.Category, step.Category)
	}

	verdicts := m.filter.Evaluate(component, session)
	if compat.Blocks(verdicts) {
		return nil, verdicts, &BlockedError{Verdicts: verdicts}
	}

	step.Selected = &component
	step.Status = entity.StepSelected
	session.Spent += component.PriceOrZero()
	m.logger.Info("SESSION", "Component selected", map[string]interface{}{
		"session_id": session.Id,
		"category":   step.Category,
		"component":  component.Name,
		"spent":      session.Spent,
		"remaining":  session.Remaining(),
	})

	if err := m.advance(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, verdicts, nil
}

// Skip passes over the current step. Only optional steps may be skipped.
func (m *Manager) Skip(ctx context.Context, id uuid.UUID) (*entity.BuildSession, error) {
	unlock, err := m.lock(id)
	if err != nil {
		return nil, err
	}
	var session *entity.BuildSession
	defer func() { m.release(id, unlock, session) }()

	session, err = m.sessions.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Phase != entity.PhaseStepping {
		return nil, ErrNotStepping
	}
	step := session.CurrentStep()
	if step == nil {
		return nil, ErrNotStepping
	}
	if !step.Optional {
		return nil, ErrStepRequired
	}

	step.Status = entity.StepSkipped
	if err := m.advance(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Summarize returns the completed session with its final whole-build
// compatibility review.
func (m *Manager) Summarize(ctx context.Context, id uuid.UUID) (*Summary, error) {
	session, err := m.sessions.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Session:  session,
		Verdicts: m.filter.EvaluateAll(session),
	}, nil
}

func (m *Manager) beginStepping(session *entity.BuildSession) {
	session.Steps = session.Steps[:0]
	for _, def := range constant.BuildStepOrder {
		session.Steps = append(session.Steps, entity.BuildStep{
			Category: def.Category,
			Optional: def.Optional,
			Status:   entity.StepPending,
		})
	}
	session.StepIndex = 0
	session.Phase = entity.PhaseStepping
}

// stepCandidates retrieves and vets options for one step. Blocked hits
// are dropped; warning and unknown verdicts ride along for display.
func (m *Manager) stepCandidates(ctx context.Context, session *entity.BuildSession, step *entity.BuildStep) ([]Candidate, error) {
	ceiling := session.Remaining() + m.filter.Headroom(session.Budget)
	results, err := m.retriever.Retrieve(ctx, retriever.Query{
		Text:     m.stepQuery(session, step.Category),
		Category: step.Category,
		MaxPrice: &ceiling,
		Limit:    m.config.CandidatesPerStep * m.config.OverFetch,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, m.config.CandidatesPerStep)
	for _, res := range results {
		component := document.ToComponent(res.Document)
		verdicts := m.filter.Evaluate(component, session)
		if compat.Blocks(verdicts) {
			continue
		}
		candidates = append(candidates, Candidate{
			Component: component,
			Score:     res.Score,
			Verdicts:  verdicts,
		})
		if len(candidates) == m.config.CandidatesPerStep {
			break
		}
	}
	return candidates, nil
}

// stepQuery blends the session purpose with the canonical category text so
// retrieval stays anchored to the step even for vague purposes.
func (m *Manager) stepQuery(session *entity.BuildSession, category string) string {
	desc := constant.CategoryDescription[category]
	if session.Purpose == "" {
		return desc
	}
	if pref, ok := session.Preferences[category]; ok && pref != "" {
		return fmt.Sprintf("%s for %s, preference: %s", desc, session.Purpose, pref)
	}
	return fmt.Sprintf("%s for %s", desc, session.Purpose)
}

// advance moves to the next pending step, completing the session when
// none remain. Saves the session either way.
func (m *Manager) advance(ctx context.Context, session *entity.BuildSession) error {
	for session.StepIndex < len(session.Steps) {
		if session.Steps[session.StepIndex].Status == entity.StepPending {
			break
		}
		session.StepIndex++
	}
	if session.StepIndex >= len(session.Steps) {
		return m.complete(ctx, session)
	}
	session.UpdatedAt = time.Now()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// revalidate drops selections whose components vanished from the index
// (catalog rebuild mid-session). The affected steps return to pending and
// the walk resumes from the earliest of them.
func (m *Manager) revalidate(ctx context.Context, session *entity.BuildSession) error {
	var ids []string
	for _, step := range session.Steps {
		if step.Status == entity.StepSelected && step.Selected != nil {
			ids = append(ids, step.Selected.Id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	alive, err := m.retriever.CheckRetrievable(ctx, ids)
	if err != nil {
		return err
	}

	for i := range session.Steps {
		step := &session.Steps[i]
		if step.Status != entity.StepSelected || step.Selected == nil {
			continue
		}
		if alive[step.Selected.Id] {
			continue
		}
		m.logger.Warn("SESSION", "Selection no longer in catalog, step reset", map[string]interface{}{
			"session_id": session.Id,
			"category":   step.Category,
			"component":  step.Selected.Name,
		})
		session.Spent -= step.Selected.PriceOrZero()
		step.Selected = nil
		step.Status = entity.StepPending
		if i < session.StepIndex {
			session.StepIndex = i
		}
	}
	return nil
}

// complete finalizes the session, runs the whole-build review, and emits
// the completion event.
func (m *Manager) complete(ctx context.Context, session *entity.BuildSession) error {
	session.Phase = entity.PhaseComplete
	session.UpdatedAt = time.Now()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	m.logger.Info("SESSION", "Build session completed", map[string]interface{}{
		"session_id": session.Id,
		"spent":      session.Spent,
		"budget":     session.Budget,
	})

	if m.publisher != nil {
		selections := make(map[string]interface{})
		for _, step := range session.Steps {
			if step.Status == entity.StepSelected && step.Selected != nil {
				selections[step.Category] = step.Selected.Name
			}
		}
		evt := events.BaseEvent{
			Type: "BUILD_SESSION_COMPLETED",
			Data: map[string]interface{}{
				"session_id": session.Id,
				"purpose":    session.Purpose,
				"budget":     session.Budget,
				"spent":      session.Spent,
				"selections": selections,
			},
			OccurredAt: time.Now(),
		}
		if err := m.publisher.Publish(ctx, evt); err != nil {
			m.logger.Warn("SESSION", "Failed to publish completion event", map[string]interface{}{
				"session_id": session.Id,
				"error":      err.Error(),
			})
		}
	}
	return nil
}

// lock takes the per-session mutex without blocking. Concurrent mutation
// of the same session is a client error, not a queueing problem.
func (m *Manager) lock(id uuid.UUID) (func(), error) {
	actual, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, ErrConflict
	}
	return mu.Unlock, nil
}

// release unlocks and, once the session can no longer be mutated, drops
// the lock entry. The delete must happen after the unlock: dropping it
// while the mutex is still held would let a concurrent request store a
// fresh mutex and run alongside this request's tail.
func (m *Manager) release(id uuid.UUID, unlock func(), session *entity.BuildSession) {
	unlock()
	if session != nil && session.Phase == entity.PhaseComplete {
		m.locks.Delete(id)
	}
}
