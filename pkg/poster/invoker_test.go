package poster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
	"github.com/tendant/social-post-imgur/pkg/linkage"
	"github.com/tendant/social-post-imgur/pkg/metrics"
)

var owner = uuid.MustParse("0b8c5a3e-5d1c-4f7a-9a55-2b1f4b7d9e01")

type fakeAPI struct {
	server *httptest.Server
	calls  int32
	// statuses are returned in order; the last one repeats.
	statuses []int
	lastAuth atomic.Value
	lastType atomic.Value
	delay    time.Duration
}

func newFakeAPI(t *testing.T, statuses ...int) *fakeAPI {
	f := &fakeAPI{statuses: statuses}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&f.calls, 1))
		f.lastAuth.Store(r.Header.Get("Authorization"))
		if err := r.ParseForm(); err == nil {
			f.lastType.Store(r.PostForm.Get("type"))
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		status := f.statuses[len(f.statuses)-1]
		if n <= len(f.statuses) {
			status = f.statuses[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"data":{"id":"img1","link":"https://i.imgur.com/img1.png"},"success":true,"status":200}`))
			return
		}
		w.Write([]byte(`{"data":{"error":"nope"},"success":false}`))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func setupInvoker(t *testing.T, f *fakeAPI, opts ...Option) (*Invoker, *linkage.InMemoryRepository) {
	repo := linkage.NewInMemoryRepository()
	_, _, err := repo.Upsert(context.Background(), linkage.UpsertParams{
		Provider:       "imgur",
		ProviderUserID: "u42",
		LocalUserID:    owner,
		Token:          linkage.Token{AccessToken: "tok"},
	})
	require.NoError(t, err)

	base := []Option{
		WithEndpoint(f.server.URL + "/3/image"),
		WithRetryLimit(3),
		WithRetryDelay(time.Millisecond, 5*time.Millisecond),
		WithRequestTimeout(time.Second),
	}
	return NewInvoker(repo, "imgur", append(base, opts...)...), repo
}

var msg = Message{Title: "hello", Image: "https://example.com/cat.png"}

func TestPostSuccess(t *testing.T) {
	f := newFakeAPI(t, http.StatusOK)
	inv, _ := setupInvoker(t, f)

	res, err := inv.Post(context.Background(), "u42", msg)
	require.NoError(t, err)
	assert.Equal(t, "img1", res.ID)
	assert.Equal(t, "https://i.imgur.com/img1.png", res.Link)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "Bearer tok", f.lastAuth.Load())
	assert.Equal(t, "url", f.lastType.Load())
}

func TestPostBase64Image(t *testing.T) {
	f := newFakeAPI(t, http.StatusOK)
	inv, _ := setupInvoker(t, f)

	_, err := inv.Post(context.Background(), "u42", Message{Image: "aGVsbG8="})
	require.NoError(t, err)
	assert.Equal(t, "base64", f.lastType.Load())
}

func TestPostUnlinked(t *testing.T) {
	f := newFakeAPI(t, http.StatusOK)
	inv, _ := setupInvoker(t, f)

	_, err := inv.Post(context.Background(), "nobody", msg)
	require.Error(t, err)
	reason, ok := apperrors.GetAPICallReason(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ReasonUnlinked, reason)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
}

func TestPostInvalidMessage(t *testing.T) {
	f := newFakeAPI(t, http.StatusOK)
	inv, _ := setupInvoker(t, f)

	_, err := inv.Post(context.Background(), "u42", Message{Title: "no image"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
}

func TestPostFailures(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		reason   apperrors.APICallReason
		calls    int32
	}{
		{"UnauthorizedNotRetried", []int{http.StatusUnauthorized}, apperrors.ReasonUnauthorized, 1},
		{"ForbiddenNotRetried", []int{http.StatusForbidden}, apperrors.ReasonUnauthorized, 1},
		{"BadRequestNotRetried", []int{http.StatusBadRequest}, apperrors.ReasonRejected, 1},
		{"ServerErrorExhausted", []int{http.StatusServiceUnavailable}, apperrors.ReasonTransientExhausted, 3},
		{"RateLimitedExhausted", []int{http.StatusTooManyRequests}, apperrors.ReasonTransientExhausted, 3},
		{"ServerErrorThenUnauthorized", []int{http.StatusBadGateway, http.StatusUnauthorized}, apperrors.ReasonUnauthorized, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI(t, tt.statuses...)
			inv, _ := setupInvoker(t, f)

			_, err := inv.Post(context.Background(), "u42", msg)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAPICallFailed))
			reason, ok := apperrors.GetAPICallReason(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.calls, atomic.LoadInt32(&f.calls))
		})
	}
}

func TestPostRecoversFromTransientFailure(t *testing.T) {
	f := newFakeAPI(t, http.StatusInternalServerError, http.StatusOK)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	inv, _ := setupInvoker(t, f, WithMetrics(m))

	res, err := inv.Post(context.Background(), "u42", msg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptCounter().WithLabelValues("imgur", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptCounter().WithLabelValues("imgur", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallCounter().WithLabelValues("imgur", "ok")))
}

func TestPostTimeoutIsTransient(t *testing.T) {
	f := newFakeAPI(t, http.StatusOK)
	f.delay = 200 * time.Millisecond
	inv, _ := setupInvoker(t, f, WithRequestTimeout(20*time.Millisecond), WithRetryLimit(2))

	_, err := inv.Post(context.Background(), "u42", msg)
	require.Error(t, err)
	reason, ok := apperrors.GetAPICallReason(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ReasonTransientExhausted, reason)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestPostDoesNotMutateLinkage(t *testing.T) {
	f := newFakeAPI(t, http.StatusUnauthorized)
	inv, repo := setupInvoker(t, f)

	before, err := repo.Get(context.Background(), "imgur", "u42")
	require.NoError(t, err)

	_, err = inv.Post(context.Background(), "u42", msg)
	require.Error(t, err)

	after, err := repo.Get(context.Background(), "imgur", "u42")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPostForLocalUser(t *testing.T) {
	f := newFakeAPI(t, http.StatusOK)
	inv, repo := setupInvoker(t, f)
	ctx := context.Background()

	_, _, err := repo.Upsert(ctx, linkage.UpsertParams{
		Provider: "imgur", ProviderUserID: "u43", LocalUserID: owner,
		Token: linkage.Token{AccessToken: "tok2"},
	})
	require.NoError(t, err)
	_, _, err = repo.Upsert(ctx, linkage.UpsertParams{
		Provider: "other", ProviderUserID: "x1", LocalUserID: owner,
		Token: linkage.Token{AccessToken: "tok3"},
	})
	require.NoError(t, err)

	outcomes, err := inv.PostForLocalUser(ctx, owner, msg)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Equal(t, "imgur", o.Provider)
		require.NotNil(t, o.Result)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))

	none, err := inv.PostForLocalUser(ctx, uuid.New(), msg)
	require.NoError(t, err)
	assert.Empty(t, none)
}
