package recognize

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandArgs(t *testing.T) {
	r := NewCommandRecognizer(nil, "", zerolog.Nop())
	assert.Equal(t,
		[]string{"songrec", "audio-file-to-recognized-song", "/tmp/a.wav"},
		r.args("/tmp/a.wav"))

	r = NewCommandRecognizer([]string{"tool", "--in={file}", "-v"}, "", zerolog.Nop())
	assert.Equal(t, []string{"tool", "--in=/tmp/a.wav", "-v"}, r.args("/tmp/a.wav"))

	r = NewCommandRecognizer([]string{"tool", "-v"}, "", zerolog.Nop())
	assert.Equal(t, []string{"tool", "-v", "/tmp/a.wav"}, r.args("/tmp/a.wav"))
}

func TestCommandRecognizer(t *testing.T) {
	requireShell(t)

	payload, err := filepath.Abs("testdata/shazam.json")
	require.NoError(t, err)

	dir := t.TempDir()
	// Only prints the payload if the clip was written.
	r := NewCommandRecognizer([]string{"sh", "-c", `test -s "$1" && cat "$2"`, "sh", FilePlaceholder, payload}, dir, zerolog.Nop())

	md, err := r.Recognize(context.Background(), testClip)
	require.NoError(t, err)
	assert.Equal(t, "Aphex Twin - Windowlicker", md.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "clip should be removed")
}

func TestCommandRecognizerFailure(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	r := NewCommandRecognizer([]string{"sh", "-c", "echo boom >&2; exit 3"}, dir, zerolog.Nop())

	_, err := r.Recognize(context.Background(), testClip)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "command", te.Op)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommandRecognizerMalformedOutput(t *testing.T) {
	requireShell(t)

	r := NewCommandRecognizer([]string{"sh", "-c", "echo not json"}, t.TempDir(), zerolog.Nop())
	_, err := r.Recognize(context.Background(), testClip)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
