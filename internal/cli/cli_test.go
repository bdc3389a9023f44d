package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talespring/talespring-server/internal/api"
	"github.com/talespring/talespring-server/internal/auth"
	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
	"github.com/talespring/talespring-server/internal/metrics"
	"github.com/talespring/talespring-server/internal/sanitize"
	"github.com/talespring/talespring-server/internal/service"
	"github.com/talespring/talespring-server/internal/store"
	"github.com/talespring/talespring-server/internal/store/memory"
	"github.com/talespring/talespring-server/internal/store/storetest"
)

type harness struct {
	url    string
	keyHex string
	store  *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	key := bytes.Repeat([]byte{3}, 32)
	tokens, err := auth.NewTokenServiceFromKey(key, time.Hour)
	require.NoError(t, err)

	st := memory.New()
	logger := slog.New(slog.DiscardHandler)
	m := metrics.New(prometheus.NewRegistry())
	sanitizer := sanitize.New()
	content := service.NewContentService(st, sanitizer, m, logger, time.Second)

	srv := api.NewServer(api.Config{RateLimitPerMinute: 1000, RateLimitBurst: 1000}, &api.Services{
		Content:   content,
		Relations: service.NewRelationService(st, st, m, logger),
		Library:   service.NewLibraryService(st, st, sanitizer, m, logger, 2),
		Tokens:    tokens,
		Metrics:   m,
		Health:    map[string]store.Pinger{"memory": st},
	}, logger)

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = content.Drain(ctx)
		_ = srv.Shutdown(ctx)
	})

	return &harness{url: ts.URL, keyHex: hex.EncodeToString(key), store: st}
}

// run executes talectl with args and returns stdout.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--server", h.url}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	out, err := h.run(t, "token", "--user", userID, "--name", "Reader", "--key-hex", h.keyHex)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func TestList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.CreateContent(ctx, storetest.Item("story-1", domain.CategoryFantasy, "Wyrm", "x", 0)))
	require.NoError(t, h.store.CreateContent(ctx, storetest.Item("story-2", domain.CategoryHorror, "Attic", "x", time.Hour)))

	out, err := h.run(t, "list", "--category", "Fantasy")
	require.NoError(t, err)
	assert.Contains(t, out, "story-1")
	assert.NotContains(t, out, "story-2")

	out, err = h.run(t, "--json", "list")
	require.NoError(t, err)
	var items []*domain.ContentItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "story-2", items[0].ID)
}

func TestPublishAndView(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "author-7")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("<p>The <strong>tide</strong> turned.</p>"))
	cmd.SetArgs([]string{"--server", h.url, "--token", token, "--json",
		"publish", "--title", "Tides", "--description", "Sea story", "--category", "Adventure"})
	require.NoError(t, cmd.Execute())

	var created domain.ContentItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &created))
	assert.Equal(t, "author-7", created.AuthorID)

	viewed, err := h.run(t, "view", created.ID)
	require.NoError(t, err)
	assert.Contains(t, viewed, "Tides")
	assert.Contains(t, viewed, "**tide**")

	byAuthor, err := h.run(t, "author", "author-7")
	require.NoError(t, err)
	assert.Contains(t, byAuthor, created.ID)
}

func TestToggleAndLibrary(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.CreateContent(context.Background(), storetest.Item("story-1", domain.CategoryMystery, "Fog", "x", 0)))
	token := h.token(t, "reader-1")

	out, err := h.run(t, "--token", token, "favorite", "story-1")
	require.NoError(t, err)
	assert.Contains(t, out, "favorite story-1: present (confirmed)")

	out, err = h.run(t, "--token", token, "status", "story-1")
	require.NoError(t, err)
	assert.Contains(t, out, "favorite: present")
	assert.Contains(t, out, "bookmark: absent")

	out, err = h.run(t, "--token", token, "library")
	require.NoError(t, err)
	assert.Contains(t, out, "story-1")

	// A second toggle starts from the server's state.
	out, err = h.run(t, "--token", token, "--json", "favorite", "story-1")
	require.NoError(t, err)
	var result toggleResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, domain.Absent, result.Optimistic)
	assert.Equal(t, domain.Absent, result.Final.Value)
	assert.True(t, result.Final.Confirmed)
}

func TestToggle_Failures(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "reader-1")

	_, err := h.run(t, "bookmark", "story-1")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	out, err := h.run(t, "--token", token, "bookmark", "story-404")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, out, "reverted to absent")
}

func TestTokenRequiresKey(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "token", "--user", "u1", "--key-hex", "not-hex")
	assert.Error(t, err)
}
