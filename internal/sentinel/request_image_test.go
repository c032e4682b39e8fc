package sentinel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	token   *httptest.Server
	process *httptest.Server
	calls   atomic.Int32
}

func newFakeAPI(t *testing.T, validSecret string, handler http.HandlerFunc) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	api.token = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, secret, ok := r.BasicAuth()
		if !ok {
			_ = r.ParseForm()
			secret = r.PostForm.Get("client_secret")
		}
		if secret != validSecret {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-`+secret+`","token_type":"Bearer","expires_in":3600}`)
	}))
	api.process = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(func() {
		api.token.Close()
		api.process.Close()
	})
	return api
}

func (a *fakeAPI) config(creds ...properties.Credential) *properties.Config {
	cfg := testConfig()
	cfg.Credentials = creds
	cfg.TokenURL = a.token.URL
	cfg.ProcessURL = a.process.URL
	cfg.Retries = 3
	cfg.RetryDelay = 0
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func testDescriptor(t *testing.T, cfg *properties.Config) *RequestDescriptor {
	desc, err := NewBuilder(cfg, nil).Build(mustRange(t, "2024-01-01", "2024-01-10"), OutputOptions{FileFormat: FormatPNG})
	require.NoError(t, err)
	return desc
}

func TestFetchSuccess(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-secret", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "evalscript")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})

	data, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), data)
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestFetchMissingCredentials(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {})
	cfg := api.config()

	_, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Zero(t, api.calls.Load())
}

func TestFetchInvalidCredentials(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("never"))
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "wrong"})

	_, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	var authErr *AuthenticationError
	assert.True(t, errors.As(err, &authErr), "got %v", err)
	assert.Zero(t, api.calls.Load())
}

func TestFetchForbiddenIsAuthenticationError(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})

	_, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	var authErr *AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestFetchFallsBackToNextCredential(t *testing.T) {
	api := newFakeAPI(t, "good", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("DATA"))
	})
	cfg := api.config(
		properties.Credential{ClientID: "a", ClientSecret: "bad"},
		properties.Credential{ClientID: "b", ClientSecret: "good"},
	)

	data, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	require.NoError(t, err)
	assert.Equal(t, []byte("DATA"), data)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})

	_, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Error(), "upstream down")
	assert.EqualValues(t, 3, api.calls.Load())
}

func TestFetchRecoversAfterTransientError(t *testing.T) {
	var n atomic.Int32
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})

	data, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	require.NoError(t, err)
	assert.Equal(t, []byte("OK"), data)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestFetchBadRequestNotRetried(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad evalscript"}`)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})

	_, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadRequest, fetchErr.StatusCode)
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestFetchEmptyResult(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})

	_, err := NewClient(cfg, nil).Fetch(context.Background(), testDescriptor(t, cfg))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestFetchHonoursCancellation(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})
	cfg.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(cfg, nil).Fetch(ctx, testDescriptor(t, cfg))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRepeatedAuthFailuresStayAuthenticationErrors(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "wrong"})
	client := NewClient(cfg, nil)
	desc := testDescriptor(t, cfg)

	for i := 0; i < 7; i++ {
		_, err := client.Fetch(context.Background(), desc)
		var authErr *AuthenticationError
		require.True(t, errors.As(err, &authErr), "attempt %d: %v", i+1, err)
	}
}

func TestEmptyResultsDoNotOpenBreaker(t *testing.T) {
	var healthy atomic.Bool
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			_, _ = w.Write([]byte("DATA"))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})
	client := NewClient(cfg, nil)
	desc := testDescriptor(t, cfg)

	for i := 0; i < 6; i++ {
		_, err := client.Fetch(context.Background(), desc)
		require.ErrorIs(t, err, ErrEmptyResult)
	}

	healthy.Store(true)
	data, err := client.Fetch(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, []byte("DATA"), data)
	assert.EqualValues(t, 7, api.calls.Load())
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	var healthy atomic.Bool
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			_, _ = w.Write([]byte("DATA"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})
	client := NewClient(cfg, nil)
	desc := testDescriptor(t, cfg)

	for i := 0; i < 6; i++ {
		_, err := client.Fetch(context.Background(), desc)
		var fetchErr *FetchError
		require.True(t, errors.As(err, &fetchErr))
		require.Equal(t, http.StatusBadRequest, fetchErr.StatusCode)
	}

	healthy.Store(true)
	_, err := client.Fetch(context.Background(), desc)
	require.NoError(t, err)
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	api := newFakeAPI(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	cfg := api.config(properties.Credential{ClientID: "id", ClientSecret: "secret"})
	client := NewClient(cfg, nil)
	desc := testDescriptor(t, cfg)

	_, _ = client.Fetch(context.Background(), desc)
	_, _ = client.Fetch(context.Background(), desc)
	assert.EqualValues(t, 5, api.calls.Load())

	_, err := client.Fetch(context.Background(), desc)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 5, api.calls.Load())
}

func TestUpstreamHealthy(t *testing.T) {
	assert.True(t, upstreamHealthy(nil))
	assert.True(t, upstreamHealthy(ErrEmptyResult))
	assert.True(t, upstreamHealthy(&AuthenticationError{Err: errors.New("invalid_client")}))
	assert.True(t, upstreamHealthy(&FetchError{StatusCode: http.StatusNotFound}))
	assert.True(t, upstreamHealthy(&FetchError{Err: context.Canceled}))
	assert.False(t, upstreamHealthy(&FetchError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, upstreamHealthy(&FetchError{StatusCode: http.StatusBadGateway}))
	assert.False(t, upstreamHealthy(&FetchError{Err: errors.New("connection refused")}))
}
