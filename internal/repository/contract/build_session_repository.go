package contract

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"pc-build-advisor-be/internal/entity"
)

var ErrSessionNotFound = errors.New("build session not found")

// BuildSessionRepository stores in-progress guided build sessions. Sessions
// are short-lived conversational state, so implementations are expected to
// expire idle entries on their own.
type BuildSessionRepository interface {
	Save(ctx context.Context, session *entity.BuildSession) error
	// FindById returns ErrSessionNotFound for unknown or expired sessions.
	FindById(ctx context.Context, id uuid.UUID) (*entity.BuildSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
