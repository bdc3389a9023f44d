// Package engagement implements the optimistic toggle state kept by clients
// for favorites and bookmarks.
//
// A toggle flips the locally known presence immediately and writes to the
// relation store in the background. On failure the presence reverts to the
// value captured when that toggle started, unless a newer toggle or a Seed
// has since replaced it, and a failure notification is emitted either way.
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talespring/talespring-server/internal/domain"
	domainerrors "github.com/talespring/talespring-server/internal/errors"
)

// DefaultTimeout bounds one background write.
const DefaultTimeout = 15 * time.Second

// Writer performs idempotent relation writes.
type Writer interface {
	Add(ctx context.Context, key domain.RelationKey) error
	Remove(ctx context.Context, key domain.RelationKey) error
}

// State is the locally presumed presence of one relation.
type State struct {
	Value     domain.Presence `json:"value"`
	Previous  domain.Presence `json:"previous"`
	Confirmed bool            `json:"confirmed"`
}

// NotificationKind classifies a Notification.
type NotificationKind string

// Notification kinds.
const (
	NotifyConfirmed      NotificationKind = "confirmed"
	NotifyFailed         NotificationKind = "failed"
	NotifySignInRequired NotificationKind = "sign_in_required"
)

// Notification is the user-visible outcome of a toggle.
type Notification struct {
	Kind    NotificationKind
	Key     domain.RelationKey
	State   State
	Message string
	Err     error
}

type entry struct {
	State
	gen uint64
}

// Controller holds toggle state per relation key. It is safe for concurrent use.
type Controller struct {
	writer  Writer
	notify  func(Notification)
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	states map[domain.RelationKey]*entry

	inflight sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier receives every notification. It is called from background
// goroutines and must not block for long.
func WithNotifier(fn func(Notification)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithTimeout bounds each background write. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// New creates a controller writing through w.
func New(w Writer, opts ...Option) *Controller {
	c := &Controller{
		writer:  w,
		notify:  func(Notification) {},
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultTimeout,
		states:  make(map[domain.RelationKey]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the presumed state of key. Unknown keys are absent and confirmed.
func (c *Controller) State(key domain.RelationKey) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.states[key]; ok {
		return e.State
	}
	return State{Value: domain.Absent, Previous: domain.Absent, Confirmed: true}
}

// Seed installs the last known presence of key, for example from a status
// read. In-flight toggles of key no longer change its state when they finish.
func (c *Controller) Seed(key domain.RelationKey, p domain.Presence) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.State = State{Value: p, Previous: p, Confirmed: true}
	e.gen++
}

func (c *Controller) entryLocked(key domain.RelationKey) *entry {
	e, ok := c.states[key]
	if !ok {
		e = &entry{State: State{Value: domain.Absent, Previous: domain.Absent, Confirmed: true}}
		c.states[key] = e
	}
	return e
}

// ToggleFavorite toggles the favorite relation.
func (c *Controller) ToggleFavorite(ctx context.Context, userID, contentID string) (*Pending, error) {
	return c.Toggle(ctx, userID, contentID, domain.RelationFavorite)
}

// ToggleBookmark toggles the bookmark relation.
func (c *Controller) ToggleBookmark(ctx context.Context, userID, contentID string) (*Pending, error) {
	return c.Toggle(ctx, userID, contentID, domain.RelationBookmark)
}

// Toggle flips the presumed presence and starts the matching write. Without a
// user it fails with Unauthorized and changes nothing. The write runs to
// completion even if ctx is cancelled.
func (c *Controller) Toggle(ctx context.Context, userID, contentID string, kind domain.RelationKind) (*Pending, error) {
	key := domain.RelationKey{UserID: userID, ContentID: contentID, Kind: kind}
	if userID == "" {
		err := domainerrors.Unauthorized("must be signed in")
		c.notify(Notification{Kind: NotifySignInRequired, Key: key, Message: err.Message, Err: err})
		return nil, err
	}
	if !kind.Valid() {
		return nil, domainerrors.Validationf("unknown relation kind %q", kind)
	}

	c.mu.Lock()
	e := c.entryLocked(key)
	prev := e.Value
	e.State = State{Value: prev.Flip(), Previous: prev, Confirmed: false}
	e.gen++
	gen := e.gen
	optimistic := e.State
	c.mu.Unlock()

	p := &Pending{key: key, optimistic: optimistic, done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)
	c.inflight.Go(func() {
		c.apply(detached, p, gen)
	})
	return p, nil
}

func (c *Controller) apply(ctx context.Context, p *Pending, gen uint64) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var err error
	if p.optimistic.Value.Exists() {
		err = c.writer.Add(ctx, p.key)
	} else {
		err = c.writer.Remove(ctx, p.key)
	}

	c.mu.Lock()
	e := c.entryLocked(p.key)
	current := e.gen == gen
	if current {
		if err != nil {
			e.State = State{Value: p.optimistic.Previous, Previous: p.optimistic.Previous, Confirmed: true}
		} else {
			e.Confirmed = true
		}
	}
	final := e.State
	c.mu.Unlock()

	defer p.finish(final, err)

	if err != nil {
		c.logger.Warn("relation toggle failed",
			"user_id", p.key.UserID,
			"content_id", p.key.ContentID,
			"kind", p.key.Kind,
			"reverted", current,
			"error", err,
		)
		c.notify(Notification{
			Kind:    NotifyFailed,
			Key:     p.key,
			State:   final,
			Message: fmt.Sprintf("couldn't update %s, please try again", p.key.Kind),
			Err:     err,
		})
		return
	}
	c.notify(Notification{Kind: NotifyConfirmed, Key: p.key, State: final})
}

// Drain waits for every in-flight write or for ctx to end.
func (c *Controller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is one toggle's background write.
type Pending struct {
	key        domain.RelationKey
	optimistic State

	done  chan struct{}
	final State
	err   error
}

// Key returns the toggled relation.
func (p *Pending) Key() domain.RelationKey { return p.key }

// Optimistic returns the state applied when the toggle started.
func (p *Pending) Optimistic() State { return p.optimistic }

// Done is closed once the write has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the write finishes and its notification has been
// delivered, then returns the state of the key at that moment together with
// the write error.
func (p *Pending) Wait() (State, error) {
	<-p.done
	return p.final, p.err
}

func (p *Pending) finish(final State, err error) {
	p.final = final
	p.err = err
	close(p.done)
}
