package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMessages(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("index built")
	w.Warning("dense path degraded")
	w.Errorf("build failed: %s", "locked")

	out := buf.String()
	assert.Contains(t, out, "✓ index built")
	assert.Contains(t, out, "! dense path degraded")
	assert.Contains(t, out, "✗ build failed: locked")
}

func TestProgress_NonTTYPrintsPlainLines(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Progress(1, 4, "embedding")
	w.Progress(4, 4, "embedding")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "embedding 1/4 (25%)", lines[0])
	assert.Equal(t, "embedding 4/4 (100%)", lines[1])
	assert.NotContains(t, buf.String(), "\r")
}

func TestProgress_ZeroTotalIsSilent(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Progress(0, 0, "embedding")
	assert.Empty(t, buf.String())
}

func TestRenderProgressBar(t *testing.T) {
	bar := renderProgressBar(5, 10, 10)
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	full := renderProgressBar(10, 10, 10)
	assert.Equal(t, 10, strings.Count(full, "█"))
}
