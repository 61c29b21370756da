package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-build-advisor-be/internal/pkg/logger"
)

type stubLogReader struct {
	entries   []logger.LogEntry
	lastLevel string
	lastLimit int
}

func (s *stubLogReader) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	s.lastLevel = level
	s.lastLimit = limit
	return s.entries, nil
}

func (s *stubLogReader) GetLogById(id string) (*logger.LogEntry, error) {
	for _, e := range s.entries {
		if e.Id == id {
			return &e, nil
		}
	}
	return nil, errors.New("log not found")
}

func newOpsApp(reader *stubLogReader) *fiber.App {
	app := fiber.New()
	NewOpsController(reader).RegisterRoutes(app.Group("/api"))
	return app
}

func TestOpsController_ListLogs(t *testing.T) {
	reader := &stubLogReader{entries: []logger.LogEntry{
		{Id: "a1", Level: "INFO", Message: "Build session completed"},
	}}
	app := newOpsApp(reader)

	res, err := app.Test(httptest.NewRequest("GET", "/api/ops/v1/logs?level=INFO&limit=10", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	assert.Equal(t, "INFO", reader.lastLevel)
	assert.Equal(t, 10, reader.lastLimit)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var envelope struct {
		Success bool              `json:"success"`
		Data    []logger.LogEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.True(t, envelope.Success)
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Build session completed", envelope.Data[0].Message)
}

func TestOpsController_ShowLogFound(t *testing.T) {
	reader := &stubLogReader{entries: []logger.LogEntry{{Id: "a1", Level: "WARN"}}}
	app := newOpsApp(reader)

	res, err := app.Test(httptest.NewRequest("GET", "/api/ops/v1/logs/a1", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestOpsController_ShowLogMissing(t *testing.T) {
	app := newOpsApp(&stubLogReader{})

	res, err := app.Test(httptest.NewRequest("GET", "/api/ops/v1/logs/nope", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}
