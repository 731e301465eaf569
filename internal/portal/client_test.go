package portal

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxpilot/internal/orchestrator/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		APISecret: "test-secret",
	}, nil)
	client.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return client
}

func testSubmission() ports.Submission {
	return ports.Submission{
		Portal:         "gstn",
		Payload:        []byte(`{"form":"GSTR1"}`),
		IdempotencyKey: "filing:tx:gstn:hash",
	}
}

func TestClient_SubmitAccepted(t *testing.T) {
	var gotReq *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"confirmation_id":"ACK-123"}`))
	})

	confirmation, err := client.Submit(context.Background(), testSubmission())

	require.NoError(t, err)
	assert.Equal(t, "ACK-123", confirmation)
	assert.Equal(t, "/v1/filings/gstn", gotReq.URL.Path)
	assert.Equal(t, "filing:tx:gstn:hash", gotReq.Header.Get("X-Idempotency-Key"))
}

func TestClient_SignsRequests(t *testing.T) {
	var headers http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		w.Write([]byte(`{"confirmation_id":"ACK-1"}`))
	})

	_, err := client.Submit(context.Background(), testSubmission())
	require.NoError(t, err)

	timestamp := headers.Get("X-Timestamp")
	require.NotEmpty(t, timestamp)
	assert.Equal(t, "test-key", headers.Get("X-Api-Key"))

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("test-key" + timestamp))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), headers.Get("X-Signature"))
}

func TestClient_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		transient bool
		reason    string
	}{
		{name: "503 is transient", status: 503, body: `{}`, transient: true},
		{name: "429 is transient", status: 429, body: `{}`, transient: true},
		{name: "408 is transient", status: 408, body: `{}`, transient: true},
		{
			name:   "422 is a permanent rejection with the portal reason",
			status: 422,
			body:   `{"error":"invalid_filing","error_description":"registration number not recognized"}`,
			reason: "registration number not recognized",
		},
		{
			name:   "400 without description falls back to the error code",
			status: 400,
			body:   `{"error":"bad_request"}`,
			reason: "bad_request",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := client.Submit(context.Background(), testSubmission())
			require.Error(t, err)

			var transient *ports.TransientError
			var rejection *ports.PermanentRejection
			if tc.transient {
				assert.True(t, errors.As(err, &transient), "expected transient, got %v", err)
			} else {
				require.True(t, errors.As(err, &rejection), "expected rejection, got %v", err)
				assert.Equal(t, tc.reason, rejection.Reason)
			}
		})
	}
}

func TestClient_SuccessWithoutConfirmationIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.Submit(context.Background(), testSubmission())

	var transient *ports.TransientError
	require.Error(t, err)
	assert.True(t, errors.As(err, &transient))
}

func TestClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Submit(context.Background(), testSubmission())
		require.Error(t, err)
	}
	require.Equal(t, 5, calls)

	// Circuit is now open: one probe goes through, then requests fail fast
	// until the probe interval elapses.
	_, err := client.Submit(context.Background(), testSubmission())
	require.Error(t, err)
	assert.Equal(t, 6, calls)

	_, err = client.Submit(context.Background(), testSubmission())
	var transient *ports.TransientError
	require.Error(t, err)
	assert.True(t, errors.As(err, &transient))
	assert.Equal(t, 6, calls, "open circuit fails fast inside the probe interval")
}

func TestFake_IdempotencyKeyDeduplicates(t *testing.T) {
	fake := NewFake()
	sub := testSubmission()

	first, err := fake.Submit(context.Background(), sub)
	require.NoError(t, err)
	second, err := fake.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other := sub
	other.IdempotencyKey = "filing:tx2:gstn:hash"
	third, err := fake.Submit(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestFake_FailTransientThenSucceed(t *testing.T) {
	fake := NewFake()
	fake.FailTransient = 2
	sub := testSubmission()

	var transient *ports.TransientError
	_, err := fake.Submit(context.Background(), sub)
	require.True(t, errors.As(err, &transient))
	_, err = fake.Submit(context.Background(), sub)
	require.True(t, errors.As(err, &transient))

	confirmation, err := fake.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.NotEmpty(t, confirmation)
}
