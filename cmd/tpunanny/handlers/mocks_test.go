package handlers

import (
	"bytes"
	"context"
	"sync"

	"github.com/imamik/tpunanny/internal/config"
	"github.com/imamik/tpunanny/internal/fleet"
	"github.com/imamik/tpunanny/internal/worker"
)

// fakeClient is a fleet.ResourceClient serving a fixed listing.
type fakeClient struct {
	mu        sync.Mutex
	listings  []worker.Listing
	endpoints map[string][]string
	listErr   error
	deleteErr map[string]error
	deleted   []string
	described []string
}

func (f *fakeClient) Describe(_ context.Context, id worker.Identity) (worker.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.described = append(f.described, id.ID)
	return worker.Status{State: worker.StateActive, Endpoints: f.endpoints[id.ID]}, nil
}

func (f *fakeClient) Create(context.Context, worker.CreateRequest) error { return nil }

func (f *fakeClient) Delete(_ context.Context, id worker.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id.ID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id.ID)
	return nil
}

func (f *fakeClient) List(context.Context, string) ([]worker.Listing, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listings, nil
}

func listing(id, zone string, state worker.State) worker.Listing {
	return worker.Listing{
		Identity: worker.Identity{Project: "research", Zone: zone, ID: id, AcceleratorType: "v5p-8"},
		State:    state,
	}
}

// withFakeProvider swaps the provider factory and the output streams for the
// duration of a test.
func withFakeProvider(t interface{ Cleanup(func()) }, client fleet.ResourceClient) *bytes.Buffer {
	origClient := newResourceClient
	origStdout, origStderr := stdout, stderr
	origExists := fileExists
	t.Cleanup(func() {
		newResourceClient = origClient
		stdout, stderr = origStdout, origStderr
		fileExists = origExists
	})

	newResourceClient = func(context.Context, *config.Fleet) (fleet.ResourceClient, fleet.RuntimeSelector, error) {
		return client, func(string) string { return "runtime" }, nil
	}
	fileExists = func(string) bool { return false }

	var out bytes.Buffer
	stdout = &out
	stderr = &bytes.Buffer{}
	return &out
}
