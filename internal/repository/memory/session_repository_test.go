package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"
)

func storedSession() *entity.BuildSession {
	price := 429000
	return &entity.BuildSession{
		Id:      uuid.New(),
		Purpose: "gaming",
		Budget:  2000000,
		Spent:   429000,
		Phase:   entity.PhaseStepping,
		Steps: []entity.BuildStep{
			{
				Category: "cpu",
				Status:   entity.StepSelected,
				Selected: &entity.Component{
					Id:       "cpu-1",
					Category: "cpu",
					Name:     "Ryzen 7 7800X3D",
					Price:    &price,
					Specs:    map[string]string{"socket": "AM5"},
				},
			},
			{Category: "motherboard", Status: entity.StepPending},
		},
		StepIndex:   1,
		Preferences: map[string]string{"gpu": "nvidia"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	repo := NewSessionRepository(0, 0)
	sess := storedSession()

	require.NoError(t, repo.Save(context.Background(), sess))

	got, err := repo.FindById(context.Background(), sess.Id)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestSessionRepository_FindByIdUnknown(t *testing.T) {
	repo := NewSessionRepository(0, 0)

	_, err := repo.FindById(context.Background(), uuid.New())
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}

// A session loaded by one request must not alias the copy another request
// mutates: readers hold their session across slow LLM calls.
func TestSessionRepository_FindByIdReturnsIsolatedCopies(t *testing.T) {
	repo := NewSessionRepository(0, 0)
	sess := storedSession()
	require.NoError(t, repo.Save(context.Background(), sess))

	first, err := repo.FindById(context.Background(), sess.Id)
	require.NoError(t, err)
	second, err := repo.FindById(context.Background(), sess.Id)
	require.NoError(t, err)

	second.Spent = 999999
	second.Steps[0].Status = entity.StepPending
	second.Steps[0].Selected.Name = "changed"
	second.Preferences["gpu"] = "amd"

	assert.Equal(t, 429000, first.Spent)
	assert.Equal(t, entity.StepSelected, first.Steps[0].Status)
	assert.Equal(t, "Ryzen 7 7800X3D", first.Steps[0].Selected.Name)
	assert.Equal(t, "nvidia", first.Preferences["gpu"])
}

func TestSessionRepository_SaveDetachesFromCaller(t *testing.T) {
	repo := NewSessionRepository(0, 0)
	sess := storedSession()
	require.NoError(t, repo.Save(context.Background(), sess))

	// mutating the saved pointer afterwards must not change the store
	sess.Phase = entity.PhaseComplete
	sess.Steps[1].Status = entity.StepSkipped

	got, err := repo.FindById(context.Background(), sess.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseStepping, got.Phase)
	assert.Equal(t, entity.StepPending, got.Steps[1].Status)
}

func TestSessionRepository_Delete(t *testing.T) {
	repo := NewSessionRepository(0, 0)
	sess := storedSession()
	require.NoError(t, repo.Save(context.Background(), sess))

	require.NoError(t, repo.Delete(context.Background(), sess.Id))
	_, err := repo.FindById(context.Background(), sess.Id)
	assert.ErrorIs(t, err, contract.ErrSessionNotFound)
}
