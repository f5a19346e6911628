package recognize

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "https://recognizer.test/v1/identify"

var testClip = Input{Samples: []float32{0, 0.1, 0.2, 0.1}, SampleRate: 8000}

func TestHTTPRecognizer(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	payload, err := os.ReadFile("testdata/shazam.json")
	require.NoError(t, err)

	var gotType, gotAuth string
	var gotBody []byte
	httpmock.RegisterResponder("POST", testEndpoint, func(req *http.Request) (*http.Response, error) {
		gotType = req.Header.Get("Content-Type")
		gotAuth = req.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(req.Body)
		return httpmock.NewBytesResponse(http.StatusOK, payload), nil
	})

	r := NewHTTPRecognizer(testEndpoint, "secret", nil, zerolog.Nop())
	md, err := r.Recognize(context.Background(), testClip)
	require.NoError(t, err)

	assert.Equal(t, "Aphex Twin - Windowlicker", md.String())
	assert.Equal(t, "audio/wav", gotType)
	assert.Equal(t, "Bearer secret", gotAuth)

	_, samples := decodeWAV(t, gotBody)
	assert.Len(t, samples, len(testClip.Samples))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPRecognizerWithoutKey(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	var gotAuth string
	httpmock.RegisterResponder("POST", testEndpoint, func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		return httpmock.NewStringResponse(http.StatusOK, `{"matches": []}`), nil
	})

	r := NewHTTPRecognizer(testEndpoint, "", nil, zerolog.Nop())
	md, err := r.Recognize(context.Background(), testClip)
	require.NoError(t, err)
	assert.False(t, md.Matched())
	assert.Empty(t, gotAuth)
}

func TestHTTPRecognizerStatusError(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down"))

	r := NewHTTPRecognizer(testEndpoint, "secret", nil, zerolog.Nop())
	_, err := r.Recognize(context.Background(), testClip)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	assert.Contains(t, te.Err.Error(), "slow down")
	assert.Contains(t, err.Error(), "HTTP 429")
}

func TestHTTPRecognizerTransportError(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	offline := errors.New("network unreachable")
	httpmock.RegisterResponder("POST", testEndpoint, httpmock.NewErrorResponder(offline))

	r := NewHTTPRecognizer(testEndpoint, "", nil, zerolog.Nop())
	_, err := r.Recognize(context.Background(), testClip)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.ErrorIs(t, err, offline)
}

func TestHTTPRecognizerMalformedBody(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("POST", testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, "<html>oops</html>"))

	r := NewHTTPRecognizer(testEndpoint, "", nil, zerolog.Nop())
	_, err := r.Recognize(context.Background(), testClip)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
