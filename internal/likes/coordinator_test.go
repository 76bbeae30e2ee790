package likes_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ladle/internal/likes"
)

type toggleCall struct {
	recipeID string
	liked    bool
}

// fakeLikeGateway records toggle calls and serves scripted like state. When
// gate is set, ToggleLike blocks until the gate closes, deliberately ignoring
// context cancellation so tests can deliver superseded responses.
type fakeLikeGateway struct {
	mu          sync.Mutex
	toggleCalls []toggleCall
	toggleErr   error
	gate        chan struct{}
	results     map[string]likes.ToggleResult
	fetchCalls  int
	fetchErr    error
}

func (f *fakeLikeGateway) ToggleLike(ctx context.Context, recipeID string, liked bool) (likes.ToggleResult, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggleCalls = append(f.toggleCalls, toggleCall{recipeID: recipeID, liked: liked})
	if f.toggleErr != nil {
		return likes.ToggleResult{}, f.toggleErr
	}
	if result, ok := f.results[recipeID]; ok {
		return result, nil
	}
	count := 0
	if liked {
		count = 1
	}
	return likes.ToggleResult{Liked: liked, LikesCount: count}, nil
}

func (f *fakeLikeGateway) FetchLikes(ctx context.Context, recipeIDs []string) (map[string]likes.ToggleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make(map[string]likes.ToggleResult, len(recipeIDs))
	for _, id := range recipeIDs {
		if result, ok := f.results[id]; ok {
			out[id] = result
		}
	}
	return out, nil
}

func (f *fakeLikeGateway) calls() []toggleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toggleCall(nil), f.toggleCalls...)
}

func newTestCoordinator(gateway likes.Gateway) *likes.Coordinator {
	return likes.NewCoordinator(gateway, likes.CoordinatorOptions{
		DebounceWindow: 10 * time.Millisecond,
	})
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func TestToggleAppliesOptimisticallyBeforeAnyCall(t *testing.T) {
	gateway := &fakeLikeGateway{}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Toggle("r1", false)
	state := coordinator.State("r1")
	if !state.Liked || state.LikesCount != 1 {
		t.Fatalf("expected instant optimistic flip, got %+v", state)
	}
	if len(gateway.calls()) != 0 {
		t.Fatal("toggle must not reach the gateway inside the debounce window")
	}
}

func TestBurstCollapsesIntoSingleCallWithFinalState(t *testing.T) {
	gateway := &fakeLikeGateway{}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	// like, unlike, like again: one call carrying liked=true.
	coordinator.Toggle("r1", false)
	coordinator.Toggle("r1", true)
	coordinator.Toggle("r1", false)

	waitFor(t, 2*time.Second, func() bool { return len(gateway.calls()) > 0 })
	waitFor(t, 2*time.Second, func() bool { return !coordinator.State("r1").IsLoading })
	calls := gateway.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one gateway call, got %d", len(calls))
	}
	if !calls[0].liked || calls[0].recipeID != "r1" {
		t.Fatalf("expected final state liked=true for r1, got %+v", calls[0])
	}
	state := coordinator.State("r1")
	if !state.Liked || state.LikesCount != 1 || state.Err != "" {
		t.Fatalf("expected server-confirmed like, got %+v", state)
	}
}

func TestFailureRollsBackToPreToggleState(t *testing.T) {
	gateway := &fakeLikeGateway{
		toggleErr: errors.New("server unavailable"),
		results:   map[string]likes.ToggleResult{"r1": {Liked: false, LikesCount: 12}},
	}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Preload(context.Background(), []string{"r1"})
	if state := coordinator.State("r1"); state.Liked || state.LikesCount != 12 {
		t.Fatalf("expected preloaded state, got %+v", state)
	}

	coordinator.Toggle("r1", false)
	if state := coordinator.State("r1"); !state.Liked || state.LikesCount != 13 {
		t.Fatalf("expected optimistic increment, got %+v", state)
	}

	waitFor(t, 2*time.Second, func() bool { return coordinator.State("r1").Err != "" })
	state := coordinator.State("r1")
	if state.Liked || state.LikesCount != 12 {
		t.Fatalf("expected rollback to pre-toggle state, got %+v", state)
	}
	if state.Err != "server unavailable" || state.IsLoading {
		t.Fatalf("expected surfaced error, got %+v", state)
	}
}

func TestBurstReturningToServerStateElidesCall(t *testing.T) {
	gateway := &fakeLikeGateway{
		results: map[string]likes.ToggleResult{"r1": {Liked: true, LikesCount: 8}},
	}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Preload(context.Background(), []string{"r1"})

	// unlike then like again: net zero against the known server state.
	coordinator.Toggle("r1", true)
	coordinator.Toggle("r1", false)

	waitFor(t, 2*time.Second, func() bool {
		state := coordinator.State("r1")
		return state.Liked && state.LikesCount == 8
	})
	time.Sleep(30 * time.Millisecond)
	if calls := gateway.calls(); len(calls) != 0 {
		t.Fatalf("expected no gateway calls for a net-zero burst, got %d", len(calls))
	}
}

func TestBurstReturningToInitialStateWithoutServerElides(t *testing.T) {
	gateway := &fakeLikeGateway{}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Toggle("r1", false)
	coordinator.Toggle("r1", true)

	waitFor(t, 2*time.Second, func() bool {
		state := coordinator.State("r1")
		return !state.Liked && state.LikesCount == 0
	})
	time.Sleep(30 * time.Millisecond)
	if calls := gateway.calls(); len(calls) != 0 {
		t.Fatalf("expected no gateway calls, got %d", len(calls))
	}
}

func TestRecipesDebouncedIndependently(t *testing.T) {
	gateway := &fakeLikeGateway{}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Toggle("r1", false)
	coordinator.Toggle("r2", false)

	waitFor(t, 2*time.Second, func() bool { return len(gateway.calls()) == 2 })
	seen := map[string]bool{}
	for _, call := range gateway.calls() {
		seen[call.recipeID] = true
		if !call.liked {
			t.Fatalf("expected liked=true for %s", call.recipeID)
		}
	}
	if !seen["r1"] || !seen["r2"] {
		t.Fatalf("expected one call per recipe, saw %v", seen)
	}
}

func TestSupersededInFlightResponseIsDropped(t *testing.T) {
	gate := make(chan struct{})
	gateway := &fakeLikeGateway{gate: gate}
	coordinator := newTestCoordinator(gateway)

	coordinator.Toggle("r1", false)
	waitFor(t, 2*time.Second, func() bool { return coordinator.State("r1").IsLoading })

	// A new toggle while the first call is still in flight supersedes it.
	coordinator.Toggle("r1", true)
	state := coordinator.State("r1")
	if state.Liked || state.LikesCount != 0 {
		t.Fatalf("expected optimistic unlike, got %+v", state)
	}

	close(gate)
	time.Sleep(30 * time.Millisecond)
	// The first call's liked=true result must not overwrite the newer burst.
	if state := coordinator.State("r1"); state.Liked {
		t.Fatalf("superseded response was applied: %+v", state)
	}
	coordinator.Close()
}

func TestPreloadFailureIsSilent(t *testing.T) {
	gateway := &fakeLikeGateway{fetchErr: errors.New("offline")}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Preload(context.Background(), []string{"r1", "r2"})
	if state := coordinator.State("r1"); state.Err != "" || state.Liked {
		t.Fatalf("preload failure must not surface, got %+v", state)
	}
}

func TestPreloadNeverClobbersActiveBurst(t *testing.T) {
	gateway := &fakeLikeGateway{
		results: map[string]likes.ToggleResult{"r1": {Liked: false, LikesCount: 3}},
	}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Toggle("r1", false)
	coordinator.Preload(context.Background(), []string{"r1"})
	if state := coordinator.State("r1"); !state.Liked {
		t.Fatalf("preload overwrote an optimistic toggle: %+v", state)
	}
}

func TestUnlikeClampsCountAtZero(t *testing.T) {
	gateway := &fakeLikeGateway{}
	coordinator := newTestCoordinator(gateway)
	t.Cleanup(coordinator.Close)

	coordinator.Toggle("r1", true)
	if state := coordinator.State("r1"); state.Liked || state.LikesCount != 0 {
		t.Fatalf("expected unlike clamped at zero, got %+v", state)
	}
}

func TestUpdatesCoalesceAndCloseOnShutdown(t *testing.T) {
	gateway := &fakeLikeGateway{}
	coordinator := newTestCoordinator(gateway)

	updates := coordinator.Updates("r1")
	select {
	case state := <-updates:
		if state.Liked || state.LikesCount != 0 {
			t.Fatalf("unexpected primed state: %+v", state)
		}
	default:
		t.Fatal("expected a primed snapshot")
	}

	// Two rapid toggles; a reader that never drained sees only the latest.
	coordinator.Toggle("r1", false)
	coordinator.Toggle("r1", true)
	state := <-updates
	if state.Liked || state.LikesCount != 0 {
		t.Fatalf("expected coalesced latest state, got %+v", state)
	}

	coordinator.Close()
	waitFor(t, 2*time.Second, func() bool {
		_, ok := <-updates
		return !ok
	})
}
