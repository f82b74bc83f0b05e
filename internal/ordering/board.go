package ordering

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var errMissingRemote = errors.New("ordering: remote is required")

// Remote is the subset of the API a Board needs.
type Remote interface {
	List(ctx context.Context) ([]Item, error)
	Reorder(ctx context.Context, ids []string) (int, error)
}

// Board holds a user's bookmark list on the client side. Reorders are
// applied locally at once and committed to the server in the background;
// the local view is reconciled with the server on the next Refresh.
type Board struct {
	remote Remote
	logger *zap.Logger

	mu          sync.Mutex
	items       []Item
	selectedTag string
	lastErr     error

	// queued holds the newest sequence not yet sent. A single committer
	// drains it, so the server always ends on the latest sequence.
	queued     []string
	queuedCtx  context.Context
	committing bool
	pending    sync.WaitGroup
}

// NewBoard builds an empty Board backed by remote.
func NewBoard(remote Remote, logger *zap.Logger) (*Board, error) {
	if remote == nil {
		return nil, errMissingRemote
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{remote: remote, logger: logger}, nil
}

// Refresh replaces the local list with the server's.
func (b *Board) Refresh(ctx context.Context) error {
	items, err := b.remote.List(ctx)
	if err != nil {
		b.setLastErr(err)
		return err
	}
	b.mu.Lock()
	b.items = ApplyOrder(items, nil)
	b.lastErr = nil
	b.mu.Unlock()
	return nil
}

// Items returns every bookmark in display order.
func (b *Board) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Item(nil), b.items...)
}

// Visible returns the bookmarks matching the selected tag.
func (b *Board) Visible() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return FilterByTag(b.items, b.selectedTag)
}

// SelectTag narrows Visible to tag. An empty tag clears the filter.
func (b *Board) SelectTag(tag string) {
	b.mu.Lock()
	b.selectedTag = tag
	b.mu.Unlock()
}

// LastError reports the most recent failed refresh or background commit.
func (b *Board) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Drag moves activeID onto the slot of overID within the visible list and
// reorders accordingly. Hidden bookmarks keep their slots, so the committed
// sequence is always a full permutation. It reports false when the gesture
// changes nothing.
func (b *Board) Drag(ctx context.Context, activeID, overID string) bool {
	b.mu.Lock()
	ids, ok := MoveInView(b.items, b.selectedTag, activeID, overID)
	b.mu.Unlock()
	if !ok {
		return false
	}
	b.Reorder(ctx, ids)
	return true
}

// Reorder applies ids to the local list immediately and queues them for the
// server without waiting for the response. Sequences queued while a commit
// is in flight collapse into the newest one.
func (b *Board) Reorder(ctx context.Context, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = ApplyOrder(b.items, ids)
	b.lastErr = nil
	b.queued = append([]string(nil), ids...)
	b.queuedCtx = context.WithoutCancel(ctx)
	if b.committing {
		return
	}
	b.committing = true
	b.pending.Add(1)
	go b.commitQueued()
}

func (b *Board) commitQueued() {
	defer b.pending.Done()
	for {
		b.mu.Lock()
		ids, ctx := b.queued, b.queuedCtx
		if ids == nil {
			b.committing = false
			b.mu.Unlock()
			return
		}
		b.queued, b.queuedCtx = nil, nil
		b.mu.Unlock()

		applied, err := b.remote.Reorder(ctx, ids)
		if err != nil {
			b.logger.Warn("bookmark reorder commit failed", zap.Int("count", len(ids)), zap.Error(err))
			b.setLastErr(err)
			continue
		}
		b.logger.Debug("bookmark reorder committed", zap.Int("requested", len(ids)), zap.Int("applied", applied))
	}
}

// Wait blocks until every background commit has finished.
func (b *Board) Wait() {
	b.pending.Wait()
}

func (b *Board) setLastErr(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}
