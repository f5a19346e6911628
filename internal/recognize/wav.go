package recognize

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth     = 16
	wavPCMFormat    = 1
	wavMaxAmplitude = 1<<(wavBitDepth-1) - 1
)

// EncodeWAV writes in as 16-bit PCM mono WAV to w.
func EncodeWAV(w io.WriteSeeker, in Input) error {
	if in.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	data := make([]int, len(in.Samples))
	for i, s := range in.Samples {
		s = max(-1, min(1, s))
		data[i] = int(s * wavMaxAmplitude)
	}

	enc := wav.NewEncoder(w, in.SampleRate, wavBitDepth, 1, wavPCMFormat)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: in.SampleRate, NumChannels: 1},
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}

// WriteWAV saves in as a WAV file at path.
func WriteWAV(path string, in Input) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := EncodeWAV(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeTempWAV saves in to a new temporary file and returns its path. The
// caller removes the file.
func writeTempWAV(dir string, in Input) (string, error) {
	f, err := os.CreateTemp(dir, "tunetray-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	if !utf8.ValidString(path) {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %q", ErrPathEncoding, path)
	}

	if err := EncodeWAV(f, in); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// seekableBuffer extends bytes.Buffer with the Seek the WAV encoder needs to
// patch chunk sizes on Close.
type seekableBuffer struct {
	buf bytes.Buffer
	pos int64
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if grow := end - int64(s.buf.Len()); grow > 0 {
		s.buf.Write(make([]byte, grow))
	}
	copy(s.buf.Bytes()[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = int64(s.buf.Len()) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = abs
	return abs, nil
}

func (s *seekableBuffer) Bytes() []byte {
	return s.buf.Bytes()
}

// encodeWAVBytes returns in encoded as an in-memory WAV file.
func encodeWAVBytes(in Input) ([]byte, error) {
	var sb seekableBuffer
	if err := EncodeWAV(&sb, in); err != nil {
		return nil, err
	}
	return sb.Bytes(), nil
}
