package fleet

import (
	"context"
	"sync"

	"github.com/imamik/tpunanny/internal/worker"
)

// MockResourceClient is an in-memory ResourceClient for testing. Without
// hooks it behaves like a provider: created workers become ACTIVE, deleted
// workers disappear, unknown workers are missing.
type MockResourceClient struct {
	mu sync.Mutex

	// Workers holds the current state per worker ID.
	Workers map[string]worker.State
	// Endpoints are reported for every ACTIVE worker.
	Endpoints []string
	// CreateState is the state of freshly created workers. Defaults to ACTIVE.
	CreateState worker.State

	// Configurable responses
	DescribeFunc func(ctx context.Context, id worker.Identity) (worker.Status, error)
	CreateFunc   func(ctx context.Context, req worker.CreateRequest) error
	DeleteFunc   func(ctx context.Context, id worker.Identity) error
	ListFunc     func(ctx context.Context, project string) ([]worker.Listing, error)

	// Call tracking
	DescribeCalls []worker.Identity
	CreateCalls   []worker.CreateRequest
	DeleteCalls   []worker.Identity
	ListCalls     []string
	// Ops records "describe", "create" and "delete" in call order.
	Ops []string
}

func newMockResourceClient() *MockResourceClient {
	return &MockResourceClient{
		Workers:     make(map[string]worker.State),
		Endpoints:   []string{"10.0.0.1"},
		CreateState: worker.StateActive,
	}
}

func (m *MockResourceClient) Describe(ctx context.Context, id worker.Identity) (worker.Status, error) {
	m.mu.Lock()
	m.DescribeCalls = append(m.DescribeCalls, id)
	m.Ops = append(m.Ops, "describe")
	m.mu.Unlock()

	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.Workers[id.ID]
	if !ok {
		return worker.Missing(), nil
	}
	status := worker.Status{State: state, ProviderState: state.String()}
	if state == worker.StateActive {
		status.Endpoints = append([]string(nil), m.Endpoints...)
	}
	return status, nil
}

func (m *MockResourceClient) Create(ctx context.Context, req worker.CreateRequest) error {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, req)
	m.Ops = append(m.Ops, "create")
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Workers[req.Identity.ID] = m.CreateState
	return nil
}

func (m *MockResourceClient) Delete(ctx context.Context, id worker.Identity) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	m.Ops = append(m.Ops, "delete")
	m.mu.Unlock()

	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Workers[id.ID]; !ok {
		return worker.ErrNotFound
	}
	delete(m.Workers, id.ID)
	return nil
}

func (m *MockResourceClient) List(ctx context.Context, project string) ([]worker.Listing, error) {
	m.mu.Lock()
	m.ListCalls = append(m.ListCalls, project)
	m.mu.Unlock()

	if m.ListFunc != nil {
		return m.ListFunc(ctx, project)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []worker.Listing
	for id, state := range m.Workers {
		out = append(out, worker.Listing{
			Identity: worker.Identity{Project: project, Zone: "zone-a", ID: id},
			State:    state,
		})
	}
	return out, nil
}

// SetState sets the stored state of a worker.
func (m *MockResourceClient) SetState(id string, state worker.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Workers[id] = state
}

func (m *MockResourceClient) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreateCalls)
}

func (m *MockResourceClient) deleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DeleteCalls)
}

func (m *MockResourceClient) createdIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.CreateCalls))
	for _, req := range m.CreateCalls {
		ids = append(ids, req.Identity.ID)
	}
	return ids
}

func (m *MockResourceClient) ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Ops...)
}

// MockExecutor is a mock implementation of RemoteExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	RunFunc func(ctx context.Context, req worker.ScriptRequest) (worker.ScriptResult, error)

	RunCalls []worker.ScriptRequest
}

func (m *MockExecutor) Run(ctx context.Context, req worker.ScriptRequest) (worker.ScriptResult, error) {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, req)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}
	return worker.ScriptResult{Address: req.Addresses[0]}, nil
}

func (m *MockExecutor) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RunCalls)
}

// MockArchiver records archived transcripts.
type MockArchiver struct {
	mu sync.Mutex

	ArchiveFunc func(ctx context.Context, transcript worker.Transcript) error

	Transcripts []worker.Transcript
}

func (m *MockArchiver) Archive(ctx context.Context, transcript worker.Transcript) error {
	m.mu.Lock()
	m.Transcripts = append(m.Transcripts, transcript)
	m.mu.Unlock()

	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, transcript)
	}
	return nil
}

// stateSequence returns a DescribeFunc reporting the given states in order,
// repeating the last one once exhausted.
func stateSequence(states ...worker.State) func(context.Context, worker.Identity) (worker.Status, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, worker.Identity) (worker.Status, error) {
		mu.Lock()
		defer mu.Unlock()
		state := states[i]
		if i < len(states)-1 {
			i++
		}
		status := worker.Status{State: state, ProviderState: state.String()}
		if state == worker.StateActive {
			status.Endpoints = []string{"10.0.0.1", "10.0.0.2"}
		}
		return status, nil
	}
}
