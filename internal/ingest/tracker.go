package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ladle/internal/logging"
)

// ErrJobNotFound is returned by gateways when the server reports that a job
// id does not exist. The tracker treats it as fatal for the poll loop.
var ErrJobNotFound = errors.New("ingest job not found")

// Gateway is the remote job surface the tracker depends on.
type Gateway interface {
	SubmitJob(ctx context.Context, url string) (SubmitResult, error)
	FetchJob(ctx context.Context, jobID string) (*JobRecord, error)
	ListActiveJobs(ctx context.Context) ([]JobRecord, error)
}

// SessionState is the tracker's continuously published view of one ingest
// session. Observers receive value copies; only the tracker mutates it.
type SessionState struct {
	Job *JobRecord

	CurrentStep     int
	TotalSteps      int
	StepTitle       string
	StepDescription string
	IsComplete      bool
	HasError        bool

	IsSubmitting      bool
	IsPolling         bool
	IsValidURL        bool
	ActiveJobCount    int
	IsJobLimitReached bool

	ErrorMessage string
	ErrorPending bool
}

const (
	defaultPollInterval    = 2500 * time.Millisecond
	defaultMaxPollFailures = 5
	defaultMaxActiveJobs   = 3
)

// TrackerOptions tunes tracker behavior. Zero values select defaults.
type TrackerOptions struct {
	PollInterval    time.Duration
	MaxPollFailures int
	MaxActiveJobs   int
	Logger          *slog.Logger
}

// Tracker drives a single ingest job from submission to a terminal state.
// Instances are caller-owned and explicitly constructed; there is no shared
// process-wide tracker. Safe for concurrent use.
type Tracker struct {
	gateway         Gateway
	pollInterval    time.Duration
	maxPollFailures int
	maxActiveJobs   int
	logger          *slog.Logger

	mu         sync.Mutex
	state      SessionState
	generation uint64
	pollCancel context.CancelFunc
	subs       []chan SessionState
	closed     bool
	wg         sync.WaitGroup
}

// NewTracker constructs a tracker bound to the provided gateway.
func NewTracker(gateway Gateway, opts TrackerOptions) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollFailures <= 0 {
		opts.MaxPollFailures = defaultMaxPollFailures
	}
	if opts.MaxActiveJobs <= 0 {
		opts.MaxActiveJobs = defaultMaxActiveJobs
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		gateway:         gateway,
		pollInterval:    opts.PollInterval,
		maxPollFailures: opts.MaxPollFailures,
		maxActiveJobs:   opts.MaxActiveJobs,
		logger:          logger.With(logging.String(logging.FieldComponent, "ingest-tracker")),
		state:           SessionState{TotalSteps: TotalSteps},
	}
}

// ValidateURL updates the submit gate for the candidate URL. Unrecognized
// hosts fail soft: they only flip IsValidURL, never raise an error.
func (t *Tracker) ValidateURL(candidate string) {
	ok := ValidIngestURL(candidate)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.state.IsValidURL = ok
	t.publishLocked()
}

// Submit sends a new ingest job to the server and, on success, starts the
// poll loop for the returned job id. Outcomes are reported through session
// state only; validation failures and the job cap never reach the gateway.
func (t *Tracker) Submit(ctx context.Context, rawURL string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if !ValidIngestURL(rawURL) {
		t.state.IsValidURL = false
		t.state.ErrorMessage = "unsupported video link"
		t.state.ErrorPending = true
		t.publishLocked()
		t.mu.Unlock()
		return
	}
	t.state.IsValidURL = true
	if t.state.ActiveJobCount >= t.maxActiveJobs {
		t.state.IsJobLimitReached = true
		t.state.ErrorMessage = fmt.Sprintf("limit of %d videos processing at once reached", t.maxActiveJobs)
		t.state.ErrorPending = true
		t.publishLocked()
		t.mu.Unlock()
		return
	}
	t.state.IsSubmitting = true
	t.state.ErrorMessage = ""
	t.state.ErrorPending = false
	t.state.HasError = false
	gen := t.generation
	t.publishLocked()
	t.mu.Unlock()

	result, err := t.gateway.SubmitJob(ctx, rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.generation {
		return
	}
	t.state.IsSubmitting = false
	if err != nil {
		t.logger.Warn("job submission failed", logging.Error(err))
		t.state.ErrorMessage = err.Error()
		t.state.ErrorPending = true
		t.publishLocked()
		return
	}
	status := result.Status
	if status == "" {
		status = StatusQueued
	}
	record := &JobRecord{JobID: result.JobID, RecipeID: result.RecipeID, Status: status}
	t.state.ActiveJobCount++
	t.state.IsJobLimitReached = t.state.ActiveJobCount >= t.maxActiveJobs
	t.applyRecordLocked(record)
	t.logger.Info("job submitted", logging.String(logging.FieldJobID, record.JobID))
	if !record.Status.IsTerminal() {
		t.startPollingLocked(record.JobID)
	}
	t.publishLocked()
}

// Attach adopts an existing job id, fetches its current record, and resumes
// polling when the job is still in flight. Used to re-watch a job submitted
// by an earlier session.
func (t *Tracker) Attach(ctx context.Context, jobID string) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	gen := t.generation
	t.mu.Unlock()

	record, err := t.gateway.FetchJob(ctx, jobID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.generation {
		return
	}
	if err != nil {
		t.state.ErrorMessage = err.Error()
		t.state.ErrorPending = true
		t.publishLocked()
		return
	}
	normalizeRecord(record)
	t.applyRecordLocked(record)
	if !record.Status.IsTerminal() {
		t.startPollingLocked(jobID)
	}
	t.publishLocked()
}

// Retry restarts polling for a failed job whose error is recoverable. The
// server re-runs the failed stage under the same job id, so progress resets
// to the queued step and no new submission happens. Anything else is a no-op.
func (t *Tracker) Retry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	job := t.state.Job
	if job == nil || job.Status != StatusFailed || !job.ErrorCode.Recoverable() {
		t.logger.Debug("retry rejected", logging.Bool("has_job", job != nil))
		return
	}
	reset := job.Clone()
	reset.Status = StatusQueued
	reset.ErrorCode = ""
	t.applyRecordLocked(reset)
	t.state.ErrorMessage = ""
	t.state.ErrorPending = false
	t.logger.Info("retrying failed job", logging.String(logging.FieldJobID, reset.JobID))
	t.startPollingLocked(reset.JobID)
	t.publishLocked()
}

// CancelSession tears the session down. After it returns no further state
// updates are observable, even from fetches already in flight: the
// generation bump and publication share one mutex, so a late response is
// dropped before it can publish.
func (t *Tracker) CancelSession() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.generation++
	if t.pollCancel != nil {
		t.pollCancel()
		t.pollCancel = nil
	}
	t.state.IsPolling = false
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	t.wg.Wait()
	for _, ch := range subs {
		close(ch)
	}
}

// ClearCurrentJob resets session state for a fresh submission attempt.
// Network calls already committed keep running server-side; the generation
// bump just stops their results from landing in the cleared state. The
// active-job count survives the reset since it reflects server state.
func (t *Tracker) ClearCurrentJob() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.generation++
	if t.pollCancel != nil {
		t.pollCancel()
		t.pollCancel = nil
	}
	active := t.state.ActiveJobCount
	t.state = SessionState{
		TotalSteps:        TotalSteps,
		ActiveJobCount:    active,
		IsJobLimitReached: active >= t.maxActiveJobs,
	}
	t.publishLocked()
}

// RefreshActiveJobs recomputes the active-job count from the server.
// Fetch failures are soft: the previous count stands.
func (t *Tracker) RefreshActiveJobs(ctx context.Context) {
	jobs, err := t.gateway.ListActiveJobs(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if err != nil {
		t.logger.Debug("active job listing failed", logging.Error(err))
		return
	}
	count := 0
	for i := range jobs {
		if !jobs[i].Status.IsTerminal() {
			count++
		}
	}
	t.state.ActiveJobCount = count
	t.state.IsJobLimitReached = count >= t.maxActiveJobs
	t.publishLocked()
}

// AcknowledgeError consumes the pending error signal after it has been
// surfaced to the user.
func (t *Tracker) AcknowledgeError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.state.ErrorPending = false
	t.state.ErrorMessage = ""
	t.publishLocked()
}

// State returns a snapshot of the current session state.
func (t *Tracker) State() SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Updates returns a channel carrying session snapshots. The channel
// coalesces: a slow reader observes the latest state, not every
// intermediate one. It is primed with the current state and closed by
// CancelSession.
func (t *Tracker) Updates() <-chan SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan SessionState, 1)
	if t.closed {
		close(ch)
		return ch
	}
	ch <- t.snapshotLocked()
	t.subs = append(t.subs, ch)
	return ch
}

func (t *Tracker) snapshotLocked() SessionState {
	snapshot := t.state
	snapshot.Job = t.state.Job.Clone()
	return snapshot
}

func (t *Tracker) publishLocked() {
	snapshot := t.snapshotLocked()
	for _, ch := range t.subs {
		select {
		case ch <- snapshot:
		default:
			// Replace the stale buffered snapshot with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (t *Tracker) applyRecordLocked(record *JobRecord) {
	if prev := t.state.Job; prev != nil && prev.RecipeID != "" && record.RecipeID == "" {
		// RecipeID is never cleared once set.
		record.RecipeID = prev.RecipeID
	}
	t.state.Job = record
	info := StepFor(record.Status)
	t.state.CurrentStep = info.Step
	t.state.StepTitle = info.Title
	t.state.StepDescription = info.Description
	t.state.IsComplete = record.Status == StatusCompleted
	t.state.HasError = record.Status.IsError()
	if t.state.HasError {
		t.state.ErrorMessage = DescribeError(record.ErrorCode).Message
		t.state.ErrorPending = true
	}
}

func (t *Tracker) startPollingLocked(jobID string) {
	if t.pollCancel != nil {
		t.pollCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.pollCancel = cancel
	t.state.IsPolling = true
	gen := t.generation
	t.wg.Add(1)
	go t.pollLoop(ctx, gen, jobID)
}

func (t *Tracker) pollLoop(ctx context.Context, gen uint64, jobID string) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		record, err := t.gateway.FetchJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrJobNotFound) {
				t.failPolling(gen, "job no longer exists on the server")
				return
			}
			failures++
			t.logger.Debug("poll fetch failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Int("consecutive_failures", failures),
				logging.Error(err))
			if failures >= t.maxPollFailures {
				t.failPolling(gen, "lost connection to job")
				return
			}
			continue
		}
		failures = 0
		if t.applyPoll(gen, record) {
			return
		}
	}
}

// applyPoll installs one poll response. Returns true when the loop should
// stop, either because the job reached a terminal status or because the
// response is stale (cancelled or superseded session).
func (t *Tracker) applyPoll(gen uint64, record *JobRecord) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.generation {
		return true
	}
	normalizeRecord(record)
	t.applyRecordLocked(record)
	if record.Status.IsTerminal() {
		t.state.IsPolling = false
		t.pollCancel = nil
		if t.state.ActiveJobCount > 0 {
			t.state.ActiveJobCount--
		}
		t.state.IsJobLimitReached = t.state.ActiveJobCount >= t.maxActiveJobs
		t.logger.Info("job reached terminal status",
			logging.String(logging.FieldJobID, record.JobID),
			logging.String(logging.FieldStatus, string(record.Status)))
		t.publishLocked()
		return true
	}
	t.publishLocked()
	return false
}

func (t *Tracker) failPolling(gen uint64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.generation {
		return
	}
	t.state.IsPolling = false
	t.pollCancel = nil
	t.state.HasError = true
	t.state.IsComplete = false
	t.state.ErrorMessage = message
	t.state.ErrorPending = true
	t.logger.Warn("polling stopped", logging.String("reason", message))
	t.publishLocked()
}

func normalizeRecord(record *JobRecord) {
	if record.Status == StatusFailed && record.ErrorCode == "" {
		record.ErrorCode = ErrorUnknown
	}
	if record.Status != StatusFailed {
		record.ErrorCode = ""
	}
}
