package likes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ladle/internal/logging"
)

// LikeState is the per-recipe optimistic like view. Observers receive value
// copies; only the Coordinator mutates it.
type LikeState struct {
	Liked      bool
	LikesCount int
	IsLoading  bool
	Err        string
}

// ToggleResult is the server's authoritative like state for one recipe.
type ToggleResult struct {
	Liked      bool
	LikesCount int
}

// Gateway is the remote like surface the coordinator depends on.
type Gateway interface {
	ToggleLike(ctx context.Context, recipeID string, liked bool) (ToggleResult, error)
	FetchLikes(ctx context.Context, recipeIDs []string) (map[string]ToggleResult, error)
}

const (
	defaultDebounceWindow     = 500 * time.Millisecond
	defaultPreloadConcurrency = 4
	preloadBatchSize          = 50
)

// CoordinatorOptions tunes coordinator behavior. Zero values select defaults.
type CoordinatorOptions struct {
	DebounceWindow     time.Duration
	PreloadConcurrency int
	Logger             *slog.Logger
}

// Coordinator lets many recipe surfaces toggle like state concurrently with
// instant local feedback and eventual server consistency. Each recipe id
// owns an independent debounce slot: a burst of toggles on one recipe
// collapses into a single network call carrying the final requested state,
// while toggles on different recipes never interact. Safe for concurrent use.
type Coordinator struct {
	gateway            Gateway
	window             time.Duration
	preloadConcurrency int
	logger             *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	slots  map[string]*slot
	subs   map[string][]chan LikeState
	closed bool
	wg     sync.WaitGroup
}

// slot is the per-recipe debounce/in-flight unit. The generation token
// supersedes in-flight work: a late response whose generation no longer
// matches is dropped before publication.
type slot struct {
	state      LikeState
	server     *ToggleResult
	preToggle  LikeState
	burst      bool
	pending    bool
	timer      *time.Timer
	generation uint64
}

// NewCoordinator constructs a coordinator bound to the provided gateway.
func NewCoordinator(gateway Gateway, opts CoordinatorOptions) *Coordinator {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = defaultDebounceWindow
	}
	if opts.PreloadConcurrency <= 0 {
		opts.PreloadConcurrency = defaultPreloadConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		gateway:            gateway,
		window:             opts.DebounceWindow,
		preloadConcurrency: opts.PreloadConcurrency,
		logger:             logger.With(logging.String(logging.FieldComponent, "like-coordinator")),
		ctx:                ctx,
		cancel:             cancel,
		slots:              make(map[string]*slot),
		subs:               make(map[string][]chan LikeState),
	}
}

// State returns the current view for a recipe. Ids never seen before
// observe the zero default until first known.
func (c *Coordinator) State(recipeID string) LikeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.slots[recipeID]; ok {
		return entry.state
	}
	return LikeState{}
}

// Updates returns a channel carrying like-state snapshots for one recipe.
// The channel coalesces (a slow reader observes the latest state), is
// primed with the current value, and is closed by Close.
func (c *Coordinator) Updates(recipeID string) <-chan LikeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan LikeState, 1)
	if c.closed {
		close(ch)
		return ch
	}
	if entry, ok := c.slots[recipeID]; ok {
		ch <- entry.state
	} else {
		ch <- LikeState{}
	}
	c.subs[recipeID] = append(c.subs[recipeID], ch)
	return ch
}

// Toggle applies the optimistic flip immediately and schedules the network
// call behind the debounce window. Calling again for the same recipe inside
// the window cancels and replaces the scheduled call, so a burst of taps
// produces exactly one request carrying the final requested state.
func (c *Coordinator) Toggle(recipeID string, currentlyLiked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	entry := c.ensureSlotLocked(recipeID)
	if !entry.burst {
		entry.preToggle = entry.state
		entry.preToggle.IsLoading = false
		entry.preToggle.Err = ""
		entry.burst = true
	}

	desired := !currentlyLiked
	entry.state.Liked = desired
	if desired {
		entry.state.LikesCount++
	} else if entry.state.LikesCount > 0 {
		entry.state.LikesCount--
	}
	entry.state.Err = ""
	entry.pending = desired
	entry.generation++
	c.publishLocked(recipeID, entry.state)

	gen := entry.generation
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.timer = time.AfterFunc(c.window, func() {
		c.flush(recipeID, gen)
	})
}

// flush runs once the debounce window closes with no further toggles.
func (c *Coordinator) flush(recipeID string, gen uint64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	entry, ok := c.slots[recipeID]
	if !ok || entry.generation != gen {
		c.mu.Unlock()
		return
	}
	entry.burst = false
	entry.timer = nil
	desired := entry.pending

	// When the burst lands back on the last known server state the call is
	// elided; the display reverts to that authoritative value.
	if entry.server != nil && entry.server.Liked == desired {
		entry.state = LikeState{Liked: entry.server.Liked, LikesCount: entry.server.LikesCount}
		c.publishLocked(recipeID, entry.state)
		c.mu.Unlock()
		return
	}
	if entry.server == nil && desired == entry.preToggle.Liked {
		entry.state = entry.preToggle
		c.publishLocked(recipeID, entry.state)
		c.mu.Unlock()
		return
	}

	entry.state.IsLoading = true
	c.publishLocked(recipeID, entry.state)
	rollback := entry.preToggle
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		result, err := c.gateway.ToggleLike(c.ctx, recipeID, desired)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		entry, ok := c.slots[recipeID]
		if !ok || entry.generation != gen {
			// Superseded by a newer toggle; that burst owns the outcome.
			return
		}
		if err != nil {
			c.logger.Warn("like toggle failed",
				logging.String(logging.FieldRecipeID, recipeID),
				logging.Error(err))
			entry.state = rollback
			entry.state.Err = err.Error()
			c.publishLocked(recipeID, entry.state)
			return
		}
		entry.server = &result
		entry.state = LikeState{Liked: result.Liked, LikesCount: result.LikesCount}
		c.publishLocked(recipeID, entry.state)
	}()
}

// Preload populates like state for a set of recipes ahead of display.
// Batches are fetched with bounded concurrency; failures are silent and the
// affected recipes keep their defaults. Recipes with a toggle burst or
// in-flight call are left alone so preload can never clobber an optimistic
// update.
func (c *Coordinator) Preload(ctx context.Context, recipeIDs []string) {
	if len(recipeIDs) == 0 {
		return
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.preloadConcurrency)
	for start := 0; start < len(recipeIDs); start += preloadBatchSize {
		end := min(start+preloadBatchSize, len(recipeIDs))
		batch := recipeIDs[start:end]
		group.Go(func() error {
			results, err := c.gateway.FetchLikes(ctx, batch)
			if err != nil {
				c.logger.Debug("like preload batch failed",
					logging.Int("batch_size", len(batch)),
					logging.Error(err))
				return nil
			}
			c.applyPreload(results)
			return nil
		})
	}
	_ = group.Wait()
}

func (c *Coordinator) applyPreload(results map[string]ToggleResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for recipeID, result := range results {
		entry := c.ensureSlotLocked(recipeID)
		if entry.burst || entry.state.IsLoading {
			continue
		}
		entry.server = &ToggleResult{Liked: result.Liked, LikesCount: result.LikesCount}
		entry.state = LikeState{Liked: result.Liked, LikesCount: result.LikesCount}
		c.publishLocked(recipeID, entry.state)
	}
}

// Close cancels all pending debounce timers and in-flight toggles. Already
// published state stays as-is; after Close returns, no further updates are
// observable and all update channels are closed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, entry := range c.slots {
		if entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
		}
	}
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	for _, channels := range subs {
		for _, ch := range channels {
			close(ch)
		}
	}
}

func (c *Coordinator) ensureSlotLocked(recipeID string) *slot {
	entry, ok := c.slots[recipeID]
	if !ok {
		entry = &slot{}
		c.slots[recipeID] = entry
	}
	return entry
}

func (c *Coordinator) publishLocked(recipeID string, state LikeState) {
	for _, ch := range c.subs[recipeID] {
		select {
		case ch <- state:
		default:
			// Replace the stale buffered snapshot with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
