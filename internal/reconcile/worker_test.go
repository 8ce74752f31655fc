package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"corpauth/internal/reconcile/metrics"
	id "corpauth/pkg/domain"
	"corpauth/pkg/requestcontext"
)

// recordingRunner logs calls in order and signals each one on calls.
type recordingRunner struct {
	mu     sync.Mutex
	log    []string
	actors []string
	calls  chan string

	panicOnJoin bool
	passErr     error
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{calls: make(chan string, 16)}
}

func (r *recordingRunner) record(ctx context.Context, entry string) {
	r.mu.Lock()
	r.log = append(r.log, entry)
	r.actors = append(r.actors, requestcontext.Actor(ctx))
	r.mu.Unlock()
	r.calls <- entry
}

func (r *recordingRunner) RunPass(ctx context.Context) (Summary, error) {
	r.record(ctx, "pass")
	return Summary{}, r.passErr
}

func (r *recordingRunner) Sweep(ctx context.Context) (SweepSummary, error) {
	r.record(ctx, "sweep")
	return SweepSummary{}, nil
}

func (r *recordingRunner) HandleJoin(ctx context.Context, chatUserID id.ChatUserID) error {
	if r.panicOnJoin {
		r.calls <- "join-panic"
		panic("boom")
	}
	r.record(ctx, "join:"+string(chatUserID))
	return nil
}

func (r *recordingRunner) HandleLeave(ctx context.Context, chatUserID id.ChatUserID) error {
	r.record(ctx, "leave:"+string(chatUserID))
	return nil
}

func (r *recordingRunner) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func waitFor(t *testing.T, calls <-chan string, n int) {
	t.Helper()
	for range n {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for worker")
		}
	}
}

func startWorker(t *testing.T, w *Worker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	}
}

func TestWorkerSerializesJobsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := newRecordingRunner()
	w := NewWorker(runner, WithWorkerLogger(discardLogger()))
	ctx := context.Background()

	require.True(t, w.SubmitPass("admin:alice"))
	w.MemberJoined(ctx, "111")
	w.MemberLeft(ctx, "222")
	require.True(t, w.SubmitSweep())

	stop := startWorker(t, w)
	waitFor(t, runner.calls, 4)
	stop()

	assert.Equal(t, []string{"pass", "join:111", "leave:222", "sweep"}, runner.entries())
	assert.Equal(t, "admin:alice", runner.actors[0])
}

func TestWorkerCoalescesPendingPasses(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := newRecordingRunner()
	w := NewWorker(runner, WithWorkerLogger(discardLogger()))

	assert.True(t, w.SubmitPass("scheduler"))
	assert.False(t, w.SubmitPass("scheduler"), "a pass is already pending")

	stop := startWorker(t, w)
	waitFor(t, runner.calls, 1)

	// Once the pending pass started another one may be queued.
	assert.Eventually(t, func() bool { return w.SubmitPass("scheduler") }, time.Second, 10*time.Millisecond)
	waitFor(t, runner.calls, 1)
	stop()

	assert.Equal(t, []string{"pass", "pass"}, runner.entries())
}

func TestWorkerSweepsBeforePass(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := newRecordingRunner()
	w := NewWorker(runner, WithSweepBeforePass(true), WithWorkerLogger(discardLogger()))
	require.True(t, w.SubmitPass("scheduler"))

	stop := startWorker(t, w)
	waitFor(t, runner.calls, 2)
	stop()

	assert.Equal(t, []string{"sweep", "pass"}, runner.entries())
}

func TestWorkerSurvivesPanickingJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := newRecordingRunner()
	runner.panicOnJoin = true
	runner.passErr = ErrPassInProgress
	w := NewWorker(runner, WithWorkerLogger(discardLogger()))
	ctx := context.Background()

	w.MemberJoined(ctx, "111")
	w.MemberLeft(ctx, "111")
	require.True(t, w.SubmitPass("scheduler"))

	stop := startWorker(t, w)
	waitFor(t, runner.calls, 3)
	stop()

	assert.Equal(t, []string{"leave:111", "pass"}, runner.entries())
}

func TestWorkerFullInboxDropsWithoutBlocking(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := metrics.New(prometheus.NewRegistry())
	w := NewWorker(newRecordingRunner(), WithInboxSize(1), WithWorkerMetrics(m), WithWorkerLogger(discardLogger()))

	require.True(t, w.SubmitSweep())
	assert.False(t, w.SubmitSweep())
	assert.False(t, w.SubmitPass("scheduler"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.MemberJoined(ctx, "111")

	assert.InDelta(t, 3, testutil.ToFloat64(m.JobsDropped), 0)
	// The rejected pass must not leave the pending flag set.
	assert.False(t, w.passPending.Load())
}
