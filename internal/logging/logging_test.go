package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "uiflow.log")

	logger, closer, err := New(Options{Path: path, Level: "info"})
	require.NoError(t, err)

	logger.Info().Str("scenario", "login").Str("step", "authenticate").Msg("step passed")
	logger.Debug().Str("scenario", "login").Msg("hidden at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "login", entry["scenario"])
	assert.Equal(t, "authenticate", entry["step"])
	assert.Equal(t, "step passed", entry["message"])
}

func TestNew_NoWritersIsNop(t *testing.T) {
	logger, closer, err := New(Options{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
	logger.Info().Msg("discarded")
}
