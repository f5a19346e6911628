package recognize

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// FilePlaceholder is replaced by the clip path in a command's arguments.
const FilePlaceholder = "{file}"

// DefaultCommand runs SongRec, which prints the Shazam response as JSON.
var DefaultCommand = []string{"songrec", "audio-file-to-recognized-song", FilePlaceholder}

// CommandRecognizer writes the clip to a temporary WAV file and runs an
// external tool on it, parsing its standard output with ParseTrack. The file
// is removed afterwards.
type CommandRecognizer struct {
	argv   []string
	tmpDir string
	log    zerolog.Logger
}

// NewCommandRecognizer creates a recognizer running argv. If no argument
// contains FilePlaceholder the path is appended. An empty argv uses
// DefaultCommand.
func NewCommandRecognizer(argv []string, tmpDir string, log zerolog.Logger) *CommandRecognizer {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	return &CommandRecognizer{
		argv:   append([]string(nil), argv...),
		tmpDir: tmpDir,
		log:    log.With().Str("component", "recognizer").Str("command", argv[0]).Logger(),
	}
}

func (r *CommandRecognizer) Recognize(ctx context.Context, in Input) (TrackMetadata, error) {
	path, err := writeTempWAV(r.tmpDir, in)
	if err != nil {
		return TrackMetadata{}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn().Err(err).Str("path", path).Msg("Failed to remove clip")
		}
	}()

	args := r.args(path)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug().Strs("args", args).Msg("Running recognizer")
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			r.log.Error().Str("stderr", msg).Msg("Recognizer failed")
		}
		return TrackMetadata{}, &TransportError{Op: "command", Err: err}
	}

	return ParseTrack(stdout.Bytes())
}

func (r *CommandRecognizer) args(path string) []string {
	args := make([]string, 0, len(r.argv)+1)
	replaced := false
	for _, a := range r.argv {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, path)
	}
	return args
}
