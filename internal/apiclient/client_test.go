package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
)

type recorded struct {
	method    string
	path      string
	query     string
	auth      string
	requestID string
	body      string
}

// fakeServer answers every request with the same status and body.
type fakeServer struct {
	mu     sync.Mutex
	calls  []recorded
	status int
	body   string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recorded{
		method:    r.Method,
		path:      r.URL.EscapedPath(),
		query:     r.URL.RawQuery,
		auth:      r.Header.Get("Authorization"),
		requestID: r.Header.Get("X-Request-Id"),
		body:      string(b),
	})
	status, body := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeServer) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, status int, body string) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{status: status, body: body}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithToken("tok"), WithRateLimit(1000, 100))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, fake
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080/api")
	assert.Error(t, err)
}

func TestListContent(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK,
		`{"v":1,"success":true,"data":{"items":[{"id":"story-a","title":"Dragon's Call","category":"Fantasy"}]}}`)

	items, err := c.ListContent(context.Background(), "Fantasy", "drag")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "story-a", items[0].ID)
	assert.Equal(t, domain.CategoryFantasy, items[0].Category)

	call := fake.last(t)
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/api/v1/content", call.path)
	assert.Equal(t, "category=Fantasy&q=drag", call.query)
	assert.Equal(t, "Bearer tok", call.auth)
	assert.Len(t, call.requestID, 36)
}

func TestAddAndRemove(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK,
		`{"v":1,"success":true,"data":{"content_id":"story-a","kind":"favorite","state":"present"}}`)
	key := domain.RelationKey{UserID: "user-1", ContentID: "story-a", Kind: domain.RelationFavorite}

	require.NoError(t, c.Add(context.Background(), key))
	assert.Equal(t, http.MethodPut, fake.last(t).method)
	assert.Equal(t, "/api/v1/me/favorites/story-a", fake.last(t).path)

	require.NoError(t, c.Remove(context.Background(), key))
	assert.Equal(t, http.MethodDelete, fake.last(t).method)
}

func TestToggle(t *testing.T) {
	c, fake := newTestClient(t, http.StatusOK,
		`{"v":1,"success":true,"data":{"content_id":"story-a","kind":"bookmark","state":"absent"}}`)

	state, err := c.Toggle(context.Background(), domain.RelationBookmark, "story-a")
	require.NoError(t, err)
	assert.Equal(t, domain.Absent, state)
	assert.Equal(t, "/api/v1/me/bookmarks/story-a/toggle", fake.last(t).path)
}

func TestCreateSendsDraft(t *testing.T) {
	c, fake := newTestClient(t, http.StatusCreated,
		`{"v":1,"success":true,"data":{"id":"story-new","title":"T"}}`)

	item, err := c.Create(context.Background(), domain.ContentDraft{Title: "T", Description: "D", Body: "<p>B</p>", Category: domain.CategoryHorror})
	require.NoError(t, err)
	assert.Equal(t, "story-new", item.ID)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.last(t).body), &sent))
	assert.Equal(t, "Horror", sent["category"])
}

func TestIncrementReadCount_NoContent(t *testing.T) {
	c, fake := newTestClient(t, http.StatusNoContent, "")

	require.NoError(t, c.IncrementReadCount(context.Background(), "story-a"))
	assert.Equal(t, "/api/v1/content/story-a/reads", fake.last(t).path)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      *domainerrors.Error
		message   string
		retryable bool
	}{
		{
			name:    "detailed not found",
			status:  http.StatusNotFound,
			body:    `{"v":1,"success":false,"code":"NOT_FOUND","message":"content not found"}`,
			want:    domainerrors.ErrNotFound,
			message: "content not found",
		},
		{
			name:    "simple unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"v":1,"success":false,"error":"must be signed in"}`,
			want:    domainerrors.ErrUnauthorized,
			message: "must be signed in",
		},
		{
			name:      "unavailable",
			status:    http.StatusServiceUnavailable,
			body:      `{"v":1,"success":false,"code":"UNAVAILABLE","message":"list bookmarks"}`,
			want:      domainerrors.ErrUnavailable,
			message:   "list bookmarks",
			retryable: true,
		},
		{
			name:      "rate limited without body",
			status:    http.StatusTooManyRequests,
			body:      "",
			want:      domainerrors.ErrRateLimited,
			message:   "Too Many Requests",
			retryable: true,
		},
		{
			name:    "internal",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			want:    domainerrors.ErrInternal,
			message: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.status, tt.body)

			_, err := c.View(context.Background(), "story-a", "")

			require.ErrorIs(t, err, tt.want)
			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.message, domainErr.Message)
			assert.Equal(t, tt.retryable, domainerrors.IsRetryable(err))
		})
	}
}

func TestValidationDetails(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadRequest,
		`{"v":1,"success":false,"code":"VALIDATION","message":"validation failed","details":{"title":"title is required"}}`)

	_, err := c.Create(context.Background(), domain.ContentDraft{})

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, map[string]any{"title": "title is required"}, domainErr.Details)
}

func TestUnreachableServerIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Library(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
	assert.True(t, domainerrors.IsRetryable(err))
}
