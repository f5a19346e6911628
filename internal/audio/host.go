package audio

import (
	"fmt"
	"slices"
)

// Backend names. Each backend is compiled in only with cgo and without the
// noaudio tag.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

// maxCaptureChannels caps devices that expose large virtual channel counts.
const maxCaptureChannels = 2

var backends = map[string]func() (Host, error){}

func registerBackend(name string, newHost func() (Host, error)) {
	backends[name] = newHost
}

// NewHost initializes the named audio backend. An empty name selects PortAudio.
// The returned host must be closed when no longer needed.
func NewHost(backend string) (Host, error) {
	if backend == "" {
		backend = BackendPortAudio
	}
	newHost, ok := backends[backend]
	if !ok && len(backends) == 0 {
		return nil, fmt.Errorf("%w: %q (built without audio support)", ErrUnknownBackend, backend)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, backend, Backends())
	}
	return newHost()
}

// Backends lists the compiled-in backend names.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasBackend reports whether backend is compiled in.
func HasBackend(backend string) bool {
	return slices.Contains(Backends(), backend)
}
