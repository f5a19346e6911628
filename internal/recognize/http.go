package recognize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 4 << 20
)

// HTTPRecognizer posts the clip as a WAV file to a recognition endpoint and
// parses the JSON reply with ParseTrack.
type HTTPRecognizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      zerolog.Logger
}

// NewHTTPRecognizer creates a recognizer for endpoint. A nil client uses one
// with a 30 second timeout.
func NewHTTPRecognizer(endpoint, apiKey string, client *http.Client, log zerolog.Logger) *HTTPRecognizer {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPRecognizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		log:      log.With().Str("component", "recognizer").Str("endpoint", endpoint).Logger(),
	}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, in Input) (TrackMetadata, error) {
	body, err := encodeWAVBytes(in)
	if err != nil {
		return TrackMetadata{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return TrackMetadata{}, &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	r.log.Debug().Int("bytes", len(body)).Dur("clip", in.Duration()).Msg("Sending clip")

	resp, err := r.client.Do(req)
	if err != nil {
		return TrackMetadata{}, &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return TrackMetadata{}, &TransportError{Op: "response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TrackMetadata{}, &TransportError{
			Op:         "request",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", bytes.TrimSpace(data)),
		}
	}

	return ParseTrack(data)
}
