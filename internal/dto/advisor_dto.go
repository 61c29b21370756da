package dto

import (
	"github.com/google/uuid"
)

type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionId string `json:"session_id,omitempty"`
}

// VerdictView is one compatibility check result as shown to the client.
type VerdictView struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
	Against  string `json:"against,omitempty"`
}

// CandidateView is one selectable option for the current step.
type CandidateView struct {
	Id       string            `json:"id"`
	Category string            `json:"category"`
	Name     string            `json:"name"`
	Price    *int              `json:"price,omitempty"`
	Specs    map[string]string `json:"specs,omitempty"`
	Score    float64           `json:"score"`
	Verdicts []VerdictView     `json:"verdicts,omitempty"`
}

// RecommendedView is one grounded recommendation from the Q&A path.
type RecommendedView struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Price    int      `json:"price,omitempty"`
	Features []string `json:"features,omitempty"`
}

// StepView describes the step a session is positioned on, with its
// candidates and an optional generated commentary.
type StepView struct {
	Category    string          `json:"category"`
	Optional    bool            `json:"optional"`
	Index       int             `json:"index"`
	Total       int             `json:"total"`
	Candidates  []CandidateView `json:"candidates"`
	AutoSkipped []string        `json:"auto_skipped,omitempty"`
	Analysis    string          `json:"analysis,omitempty"`
}

type ChatResponse struct {
	Analysis   string            `json:"analysis"`
	Components []RecommendedView `json:"components,omitempty"`
	SessionId  *uuid.UUID        `json:"session_id,omitempty"`
	Step       *StepView         `json:"step,omitempty"`
	IsFinal    bool              `json:"is_final"`
}

type StartSessionRequest struct {
	Purpose     string            `json:"purpose" validate:"required"`
	Budget      int               `json:"budget" validate:"required,gt=0"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

type StartSessionResponse struct {
	SessionId uuid.UUID `json:"session_id"`
	Phase     string    `json:"phase"`
	Budget    int       `json:"budget"`
	Step      *StepView `json:"step,omitempty"`
}

// StepStateView is one entry of the session's step list.
type StepStateView struct {
	Category string         `json:"category"`
	Optional bool           `json:"optional"`
	Status   string         `json:"status"`
	Selected *CandidateView `json:"selected,omitempty"`
}

type SessionResponse struct {
	SessionId uuid.UUID       `json:"session_id"`
	Phase     string          `json:"phase"`
	Purpose   string          `json:"purpose"`
	Budget    int             `json:"budget"`
	Spent     int             `json:"spent"`
	Remaining int             `json:"remaining"`
	Steps     []StepStateView `json:"steps"`
	// Verdicts is the whole-build compatibility review, present once the
	// session is complete.
	Verdicts []VerdictView `json:"verdicts,omitempty"`
}

type SelectComponentRequest struct {
	ComponentId string `json:"component_id" validate:"required"`
}

type SelectComponentResponse struct {
	Session  SessionResponse `json:"session"`
	Verdicts []VerdictView   `json:"verdicts,omitempty"`
	Step     *StepView       `json:"step,omitempty"`
	IsFinal  bool            `json:"is_final"`
}

type SkipStepResponse struct {
	Session SessionResponse `json:"session"`
	Step    *StepView       `json:"step,omitempty"`
	IsFinal bool            `json:"is_final"`
}
