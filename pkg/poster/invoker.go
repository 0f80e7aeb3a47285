package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
	"github.com/tendant/social-post-imgur/pkg/linkage"
	"github.com/tendant/social-post-imgur/pkg/metrics"
)

const (
	DefaultEndpoint       = "https://api.imgur.com/3/image"
	DefaultRequestTimeout = 5 * time.Second
	DefaultRetryLimit     = 3
	defaultRetryDelay     = 200 * time.Millisecond
	defaultMaxRetryDelay  = 5 * time.Second
	maxResponseBody       = 1 << 20
)

// Message is the content posted on behalf of a linked user.
type Message struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Image is an http(s) URL or a base64 payload.
	Image string `json:"image"`
}

// Result is what the provider created.
type Result struct {
	ID       string `json:"id"`
	Link     string `json:"link"`
	Attempts int    `json:"attempts"`
}

// Invoker performs authenticated provider API calls with the tokens of linked accounts.
// It only reads linkages.
type Invoker struct {
	linkages      linkage.Repository
	provider      string
	httpClient    *http.Client
	endpoint      string
	timeout       time.Duration
	retryLimit    uint
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	metrics       *metrics.Metrics
}

// Option configures the Invoker
type Option func(*Invoker)

func WithHTTPClient(client *http.Client) Option {
	return func(i *Invoker) {
		i.httpClient = client
	}
}

// WithEndpoint overrides the upload URL
func WithEndpoint(endpoint string) Option {
	return func(i *Invoker) {
		i.endpoint = endpoint
	}
}

// WithRequestTimeout bounds each individual attempt
func WithRequestTimeout(timeout time.Duration) Option {
	return func(i *Invoker) {
		if timeout > 0 {
			i.timeout = timeout
		}
	}
}

// WithRetryLimit sets the total number of attempts for transient failures
func WithRetryLimit(limit int) Option {
	return func(i *Invoker) {
		if limit > 0 {
			i.retryLimit = uint(limit)
		}
	}
}

// WithRetryDelay sets the initial and maximum backoff delay
func WithRetryDelay(initial, max time.Duration) Option {
	return func(i *Invoker) {
		i.retryDelay = initial
		i.maxRetryDelay = max
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Invoker) {
		i.metrics = m
	}
}

// NewInvoker creates an invoker posting to provider's API
func NewInvoker(linkages linkage.Repository, provider string, opts ...Option) *Invoker {
	i := &Invoker{
		linkages:      linkages,
		provider:      provider,
		httpClient:    &http.Client{},
		endpoint:      DefaultEndpoint,
		timeout:       DefaultRequestTimeout,
		retryLimit:    DefaultRetryLimit,
		retryDelay:    defaultRetryDelay,
		maxRetryDelay: defaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Post uploads msg as the provider account providerUserID.
//
// Errors are API_CALL_FAILED tagged with a reason: unlinked when no token is stored,
// unauthorized on 401/403, rejected on any other 4xx, transient-exhausted when timeouts,
// network errors, 429 or 5xx persist for every attempt. An invalid message is INVALID_INPUT.
func (i *Invoker) Post(ctx context.Context, providerUserID string, msg Message) (*Result, error) {
	if strings.TrimSpace(msg.Image) == "" {
		return nil, apperrors.InvalidInput("image", "must not be empty")
	}

	token, err := i.linkages.GetToken(ctx, i.provider, providerUserID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			i.metrics.RecordCall(i.provider, string(apperrors.ReasonUnlinked), 0)
			return nil, apperrors.APICallFailed(apperrors.ReasonUnlinked, err)
		}
		return nil, apperrors.InternalWrap(err, "failed to load token")
	}

	started := time.Now()
	attempts := 0
	var result *Result

	err = retry.Do(
		func() error {
			attempts++
			r, err := i.attempt(ctx, token.AccessToken, msg)
			i.metrics.RecordAttempt(i.provider, outcomeOf(err))
			if err != nil {
				slog.Warn("Provider API attempt failed", "provider", i.provider, "attempt", attempts, "error", err)
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(i.retryLimit),
		retry.Delay(i.retryDelay),
		retry.MaxDelay(i.maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		reason := reasonOf(err)
		i.metrics.RecordCall(i.provider, string(reason), time.Since(started))
		slog.Error("Provider API call failed",
			"provider", i.provider,
			"provider_user_id", providerUserID,
			"reason", reason,
			"attempts", attempts,
			"error", err)
		return nil, apperrors.APICallFailed(reason, err).WithDetail("attempts", attempts)
	}

	i.metrics.RecordCall(i.provider, "ok", time.Since(started))
	result.Attempts = attempts
	slog.Info("Provider API call succeeded", "provider", i.provider, "provider_user_id", providerUserID, "id", result.ID, "attempts", attempts)
	return result, nil
}

// attemptError classifies a single failed HTTP attempt.
type attemptError struct {
	status    int
	transient bool
	err       error
}

func (e *attemptError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("provider returned status %d", e.status)
	}
	return e.err.Error()
}

func (e *attemptError) Unwrap() error {
	return e.err
}

type uploadEnvelope struct {
	Data struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func (i *Invoker) attempt(ctx context.Context, accessToken string, msg Message) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("image", msg.Image)
	form.Set("type", imageType(msg.Image))
	if msg.Title != "" {
		form.Set("title", msg.Title)
	}
	if msg.Description != "" {
		form.Set("description", msg.Description)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &attemptError{err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		// timeouts and connection failures
		return nil, &attemptError{transient: true, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &attemptError{transient: true, err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &attemptError{status: resp.StatusCode, transient: true}
	default:
		return nil, &attemptError{status: resp.StatusCode}
	}

	var envelope uploadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		// the upload happened; retrying would post twice
		return nil, &attemptError{status: resp.StatusCode, err: fmt.Errorf("malformed response: %w", err)}
	}
	return &Result{ID: envelope.Data.ID, Link: envelope.Data.Link}, nil
}

func imageType(image string) string {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return "url"
	}
	return "base64"
}

func isTransient(err error) bool {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.transient
	}
	return false
}

func reasonOf(err error) apperrors.APICallReason {
	var ae *attemptError
	if errors.As(err, &ae) && !ae.transient {
		if ae.status == http.StatusUnauthorized || ae.status == http.StatusForbidden {
			return apperrors.ReasonUnauthorized
		}
		return apperrors.ReasonRejected
	}
	return apperrors.ReasonTransientExhausted
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if isTransient(err) {
		return "transient"
	}
	return string(reasonOf(err))
}

// Outcome is the result of posting to one linkage.
type Outcome struct {
	Provider       string
	ProviderUserID string
	Result         *Result
	Err            error
}

// PostForLocalUser posts msg to every linkage of localUserID for this provider, one at a time.
// Per-linkage failures are reported in the outcomes; the error is only set when listing fails.
func (i *Invoker) PostForLocalUser(ctx context.Context, localUserID uuid.UUID, msg Message) ([]Outcome, error) {
	linkages, err := i.linkages.ListForLocalUser(ctx, localUserID)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to list linkages")
	}

	outcomes := make([]Outcome, 0, len(linkages))
	for _, l := range linkages {
		if l.Provider != i.provider {
			continue
		}
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Provider: l.Provider, ProviderUserID: l.ProviderUserID, Err: ctx.Err()})
			continue
		}
		result, err := i.Post(ctx, l.ProviderUserID, msg)
		outcomes = append(outcomes, Outcome{
			Provider:       l.Provider,
			ProviderUserID: l.ProviderUserID,
			Result:         result,
			Err:            err,
		})
	}
	return outcomes, nil
}
