package sentinel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forest-guardian/truecolor-cli/internal/logger"
	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const maxErrorBody = 512

// Client executes request descriptors against the Process API.
type Client struct {
	cfg     *properties.Config
	breaker *gobreaker.CircuitBreaker
	base    *http.Client
	log     *zerolog.Logger
}

func NewClient(cfg *properties.Config, log *zerolog.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sentinelhub-process",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: upstreamHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &Client{cfg: cfg, breaker: cb, base: &http.Client{}, log: log}
}

// Fetch posts the descriptor and returns the raw response body. Each configured
// credential pair is tried in turn until one succeeds.
func (c *Client) Fetch(ctx context.Context, desc *RequestDescriptor) ([]byte, error) {
	if !c.cfg.HasCredentials() {
		return nil, &AuthenticationError{Err: errMissingCredentials}
	}

	requestBody, err := desc.Payload()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	log := logger.FromContext(ctx, c.log)

	var lastErr error
	for i, cred := range c.cfg.Credentials {
		if cred.ClientID == "" || cred.ClientSecret == "" {
			continue
		}
		data, err := c.fetchWithCredential(ctx, cred, requestBody)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrEmptyResult) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		log.Warn().Err(err).Int("credential", i).Msg("image request failed with credential")
	}
	return nil, lastErr
}

func (c *Client) fetchWithCredential(ctx context.Context, cred properties.Credential, requestBody []byte) ([]byte, error) {
	config := &clientcredentials.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		TokenURL:     c.cfg.TokenURL,
	}
	httpClient := config.Client(context.WithValue(ctx, oauth2.HTTPClient, c.base))
	log := logger.FromContext(ctx, c.log)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		var retry bool
		result, err := c.breaker.Execute(func() (interface{}, error) {
			data, retryable, postErr := c.post(ctx, httpClient, requestBody)
			retry = retryable
			return data, postErr
		})
		if err == nil {
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Err: err}
		}
		if !retry {
			return nil, err
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("retries", c.cfg.Retries).Msg("image request attempt failed")
		if attempt == c.cfg.Retries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, &FetchError{Err: ctx.Err()}
		case <-time.After(c.cfg.RetryDelay):
		}
	}
	return nil, lastErr
}

// post performs one request and classifies the outcome. The boolean reports
// whether the failure is worth retrying.
func (c *Client) post(ctx context.Context, httpClient *http.Client, requestBody []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ProcessURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, false, &FetchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, false, &AuthenticationError{Err: retrieveErr}
		}
		if ctx.Err() != nil {
			return nil, false, &FetchError{Err: ctx.Err()}
		}
		return nil, true, &FetchError{Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, true, &FetchError{StatusCode: response.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	switch {
	case response.StatusCode == http.StatusOK:
		if len(body) == 0 {
			return nil, false, ErrEmptyResult
		}
		return body, false, nil
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return nil, false, &AuthenticationError{Err: fmt.Errorf("status %d: %s", response.StatusCode, truncate(body))}
	case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500:
		return nil, true, &FetchError{StatusCode: response.StatusCode, Body: truncate(body)}
	default:
		return nil, false, &FetchError{StatusCode: response.StatusCode, Body: truncate(body)}
	}
}

// upstreamHealthy reports whether err says nothing about the health of the
// Process API. Only transport failures, 429 and 5xx count against the breaker.
func upstreamHealthy(err error) bool {
	if err == nil || errors.Is(err, ErrEmptyResult) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return true
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode >= 400 && fetchErr.StatusCode < 500 {
		return fetchErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
