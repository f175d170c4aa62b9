package fleet

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/tpunanny/internal/worker"
)

func listing(zone, id string, state worker.State) worker.Listing {
	return worker.Listing{
		Identity:      worker.Identity{Project: "proj", Zone: zone, ID: id},
		State:         state,
		ProviderState: state.String(),
	}
}

func TestReapPolicy_Selects(t *testing.T) {
	t.Parallel()
	assert.True(t, ReapPolicy{}.Selects(worker.StateSuspended))
	assert.False(t, ReapPolicy{}.Selects(worker.StateFailed))
	assert.True(t, ReapPolicy{IncludeFailed: true}.Selects(worker.StateFailed))
	for _, s := range []worker.State{worker.StateMissing, worker.StatePending, worker.StateActive} {
		assert.False(t, ReapPolicy{IncludeFailed: true}.Selects(s))
	}
}

func TestReap_DeletesExactlySuspendedWorkers(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		return []worker.Listing{
			listing("us-east5-b", "a", worker.StateSuspended),
			listing("us-east5-b", "b", worker.StateActive),
			listing("europe-west4-a", "c", worker.StateSuspended),
			listing("europe-west4-a", "d", worker.StateFailed),
			listing("us-central2-b", "e", worker.StatePending),
			listing("us-central2-b", "f", worker.StateSuspended),
		}, nil
	}
	client.DeleteFunc = func(_ context.Context, id worker.Identity) error {
		if id.ID == "c" {
			return worker.ErrNotFound
		}
		return nil
	}
	reaper := NewReaper(client, ReapPolicy{}, logr.Discard())

	report, err := reaper.Reap(context.Background(), "proj")
	require.NoError(t, err)

	var deleted []string
	for _, id := range client.DeleteCalls {
		deleted = append(deleted, id.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c", "f"}, deleted)
	assert.Equal(t, []worker.Ref{{ID: "a", Zone: "us-east5-b"}, {ID: "f", Zone: "us-central2-b"}}, report.Deleted)
	assert.Equal(t, []worker.Ref{{ID: "c", Zone: "europe-west4-a"}}, report.AlreadyGone)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"proj"}, client.ListCalls)
}

func TestReap_IncludeFailed(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		return []worker.Listing{
			listing("z", "a", worker.StateSuspended),
			listing("z", "b", worker.StateFailed),
		}, nil
	}
	client.DeleteFunc = func(context.Context, worker.Identity) error { return nil }

	report, err := NewReaper(client, ReapPolicy{IncludeFailed: true}, logr.Discard()).Reap(context.Background(), "proj")
	require.NoError(t, err)
	assert.Len(t, report.Deleted, 2)
}

func TestReap_FailuresDoNotAbortBatch(t *testing.T) {
	t.Parallel()
	boom := errors.New("permission denied")
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		return []worker.Listing{
			listing("z", "a", worker.StateSuspended),
			listing("z", "b", worker.StateSuspended),
			listing("z", "c", worker.StateSuspended),
		}, nil
	}
	client.DeleteFunc = func(_ context.Context, id worker.Identity) error {
		if id.ID == "b" {
			return boom
		}
		return nil
	}

	report, err := NewReaper(client, ReapPolicy{}, logr.Discard()).Reap(context.Background(), "proj")
	require.NoError(t, err)

	assert.Equal(t, []worker.Ref{{ID: "a", Zone: "z"}, {ID: "c", Zone: "z"}}, report.Deleted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, worker.Ref{ID: "b", Zone: "z"}, report.Failed[0].Ref)
	assert.ErrorIs(t, report.Failed[0].Err, boom)
}

func TestReap_ListError(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		return nil, errors.New("503")
	}

	report, err := NewReaper(client, ReapPolicy{}, logr.Discard()).Reap(context.Background(), "proj")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, worker.ErrProviderUnavailable)
	assert.Empty(t, client.DeleteCalls)
}

func TestReap_NothingToDo(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.SetState("a", worker.StateActive)

	report, err := NewReaper(client, ReapPolicy{}, logr.Discard()).Reap(context.Background(), "proj")
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
	assert.Empty(t, client.DeleteCalls)
}

func TestReap_IssuesDeletesConcurrently(t *testing.T) {
	t.Parallel()
	const n = 4
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		out := make([]worker.Listing, n)
		for i := range out {
			out[i] = listing("z", string(rune('a'+i)), worker.StateSuspended)
		}
		return out, nil
	}

	// Every delete blocks until all of them have started.
	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()
	client.DeleteFunc = func(context.Context, worker.Identity) error {
		started.Done()
		select {
		case <-allStarted:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("deletes ran sequentially")
		}
	}

	report, err := NewReaper(client, ReapPolicy{}, logr.Discard()).Reap(context.Background(), "proj")
	require.NoError(t, err)
	assert.Len(t, report.Deleted, n)
	assert.Empty(t, report.Failed)
}

func TestReap_ConcurrencyLimit(t *testing.T) {
	t.Parallel()
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		out := make([]worker.Listing, 6)
		for i := range out {
			out[i] = listing("z", string(rune('a'+i)), worker.StateSuspended)
		}
		return out, nil
	}
	var inFlight, peak atomic.Int32
	client.DeleteFunc = func(context.Context, worker.Identity) error {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	report, err := NewReaper(client, ReapPolicy{Concurrency: 2}, logr.Discard()).Reap(context.Background(), "proj")
	require.NoError(t, err)
	assert.Len(t, report.Deleted, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestReap_RecordsMetrics(t *testing.T) {
	client := newMockResourceClient()
	client.ListFunc = func(context.Context, string) ([]worker.Listing, error) {
		return []worker.Listing{listing("z", "gone", worker.StateSuspended)}, nil
	}
	client.DeleteFunc = func(context.Context, worker.Identity) error { return worker.ErrNotFound }

	before := testutil.ToFloat64(reaperDeletesTotal.WithLabelValues("already_gone"))
	_, err := NewReaper(client, ReapPolicy{}, logr.Discard()).Reap(context.Background(), "proj")
	require.NoError(t, err)

	after := testutil.ToFloat64(reaperDeletesTotal.WithLabelValues("already_gone"))
	assert.Equal(t, before+1, after)
}
