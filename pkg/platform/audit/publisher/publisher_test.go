package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	id "corpauth/pkg/domain"
	audit "corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	event := audit.Event{
		CharacterID: 90000001,
		Action:      string(audit.EventIdentityLinked),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), 90000001)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventIdentityLinked), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			CharacterID: 90000001,
			Action:      string(audit.EventAffiliationChanged),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByCharacter(context.Background(), 90000001)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventPassCompleted)})
	assert.Error(t, err)
}

func TestPublisher_BufferFullDoesNotBlock(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventMemberJoined)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())

	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{CharacterID: 1, Action: string(audit.EventMemberLeft)}))
	after := time.Now()

	events, err := pub.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		CharacterID: 1,
		Action:      string(audit.EventMemberLeft),
		Timestamp:   customTime,
	}))

	events, err := pub.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (r *recordingSink) Append(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func TestPublisher_SinkFailureIsNotReturned(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &recordingSink{err: errors.New("broker unavailable")}
	pub := NewPublisher(store, WithSinks(sink, nil))

	err := pub.Emit(context.Background(), audit.Event{CharacterID: id.CharacterID(7), Action: string(audit.EventCharacterVanished)})
	require.NoError(t, err)

	assert.Len(t, sink.events, 1)
	recent, err := pub.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

// storeCheckingSink records whether the primary store already held each
// event when the sink saw it.
type storeCheckingSink struct {
	store   *memory.InMemoryStore
	inStore []bool
}

func (c *storeCheckingSink) Append(ctx context.Context, e audit.Event) error {
	events, err := c.store.ListByCharacter(ctx, e.CharacterID)
	if err != nil {
		return err
	}
	c.inStore = append(c.inStore, len(events) == 1)
	return nil
}

func TestPublisher_StoreIsWrittenBeforeSinks(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &storeCheckingSink{store: store}
	pub := NewPublisher(store, WithSinks(sink))

	err := pub.Emit(context.Background(), audit.Event{CharacterID: id.CharacterID(7), Action: string(audit.EventIdentityLinked)})
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, sink.inStore)
}
