package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talespring/talespring-server/internal/apiclient"
	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
	"github.com/talespring/talespring-server/internal/engagement"
	"github.com/talespring/talespring-server/internal/store/storetest"
)

// newRemoteClient serves ts over a real listener and returns a client for it.
func newRemoteClient(t *testing.T, ts *testServer, userID string) *apiclient.Client {
	t.Helper()

	httpServer := httptest.NewServer(ts)
	t.Cleanup(httpServer.Close)

	var opts []apiclient.Option
	if userID != "" {
		token := strings.TrimPrefix(ts.bearer(t, userID), "Authorization: Bearer ")
		opts = append(opts, apiclient.WithToken(token))
	}
	opts = append(opts, apiclient.WithRateLimit(1000, 1000))

	client, err := apiclient.New(httpServer.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

type notifications struct {
	mu  sync.Mutex
	got []engagement.Notification
}

func (n *notifications) add(note engagement.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
}

func (n *notifications) all() []engagement.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]engagement.Notification(nil), n.got...)
}

func TestRemoteToggle_RoundTrip(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, storetest.Item("story-1", domain.CategoryMystery, "Fog", "x", 0))
	client := newRemoteClient(t, ts, "user-1")

	inbox := &notifications{}
	ctrl := engagement.New(client, engagement.WithNotifier(inbox.add))
	ctx := context.Background()

	pending, err := ctrl.ToggleFavorite(ctx, "user-1", "story-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Present, pending.Optimistic().Value)

	final, err := pending.Wait()
	require.NoError(t, err)
	assert.Equal(t, engagement.State{Value: domain.Present, Previous: domain.Absent, Confirmed: true}, final)

	status, err := client.Status(ctx, "story-1")
	require.NoError(t, err)
	assert.True(t, status.Favorite)

	view, err := client.Library(ctx)
	require.NoError(t, err)
	require.Len(t, view.Favorited, 1)
	assert.Equal(t, "story-1", view.Favorited[0].ID)

	pending, err = ctrl.ToggleFavorite(ctx, "user-1", "story-1")
	require.NoError(t, err)
	final, err = pending.Wait()
	require.NoError(t, err)
	assert.Equal(t, domain.Absent, final.Value)

	notes := inbox.all()
	require.Len(t, notes, 2)
	for _, note := range notes {
		assert.Equal(t, engagement.NotifyConfirmed, note.Kind)
	}
}

func TestRemoteToggle_MissingContentReverts(t *testing.T) {
	ts := setupTestServer(t)
	client := newRemoteClient(t, ts, "user-1")

	inbox := &notifications{}
	ctrl := engagement.New(client, engagement.WithNotifier(inbox.add))

	pending, err := ctrl.ToggleBookmark(context.Background(), "user-1", "story-404")
	require.NoError(t, err)

	final, err := pending.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Equal(t, domain.Absent, final.Value)

	notes := inbox.all()
	require.Len(t, notes, 1)
	assert.Equal(t, engagement.NotifyFailed, notes[0].Kind)
}

func TestRemoteClient_ContentFlow(t *testing.T) {
	ts := setupTestServer(t)
	client := newRemoteClient(t, ts, "author-9")
	ctx := context.Background()

	created, err := client.Create(ctx, domain.ContentDraft{
		Title:       "Harbor Lights",
		Description: "A night at the docks",
		Body:        "<p>Salt and <em>rope</em></p>",
		Category:    domain.CategoryAdventure,
	})
	require.NoError(t, err)
	assert.Equal(t, "author-9", created.AuthorID)

	items, err := client.ListContent(ctx, "Adventure", "harbor")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)

	require.NoError(t, client.IncrementReadCount(ctx, created.ID))

	viewed, err := client.View(ctx, created.ID, "markdown")
	require.NoError(t, err)
	assert.Contains(t, viewed.Body, "*rope*")

	byAuthor, err := client.ListByAuthor(ctx, "author-9")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)

	_, err = client.ListContent(ctx, "Cooking", "")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRemoteClient_AnonymousRejected(t *testing.T) {
	ts := setupTestServer(t)
	client := newRemoteClient(t, ts, "")

	_, err := client.Library(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.False(t, domainerrors.IsRetryable(err))
}
