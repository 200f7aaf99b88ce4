package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/op/go-logging"
	"github.com/postscript-blog/postscript/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendKeepsDebug(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POSTSCRIPT_LOG_FOLDER", dir)
	InitLogger(logging.WARNING)
	t.Cleanup(CloseLogger)

	Debugf("cache miss for %s", "like-event:hello")
	Warning("disk almost full")
	CloseLogger()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG - cache miss for like-event:hello")
	assert.Contains(t, string(data), "WARNING - disk almost full")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel(config.Warn)
	assert.NoError(t, err)
	assert.Equal(t, logging.WARNING, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
