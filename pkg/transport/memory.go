package transport

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/coho-storage/blobwarden/core"
)

var _ Client = (*MemClient)(nil)

// NewMem constructs an in-memory transport. Blob ids are derived from the
// payload's sha256, matching the content-addressed behavior of the real
// network. Per-endpoint failures can be injected for failover tests.
func NewMem() *MemClient {
	return &MemClient{
		blobs:     map[core.BlobID][]byte{},
		failures:  map[string]int{},
		providers: map[core.BlobID][]string{},
	}
}

type MemClient struct {
	mu        sync.Mutex
	blobs     map[core.BlobID][]byte
	failures  map[string]int
	providers map[core.BlobID][]string

	writeErr error
	reads    int
}

func DeriveBlobID(data []byte) core.BlobID {
	sum := sha256.Sum256(data)
	return core.BlobID(base64.RawURLEncoding.EncodeToString(sum[:]))
}

func (m *MemClient) Write(_ context.Context, data []byte) (core.BlobID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return "", m.writeErr
	}

	blobID := DeriveBlobID(data)
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[blobID] = stored

	return blobID, nil
}

func (m *MemClient) ReadFrom(_ context.Context, endpoint string, blobID core.BlobID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++

	if n := m.failures[endpoint]; n > 0 {
		m.failures[endpoint] = n - 1
		return nil, fmt.Errorf("read blob from %s: connection refused", endpoint)
	}

	data, ok := m.blobs[blobID]
	if !ok {
		return nil, fmt.Errorf("read blob from %s: not found", endpoint)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemClient) Providers(_ context.Context, blobID core.BlobID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.providers[blobID], nil
}

// Seed stores a payload directly, bypassing Write bookkeeping.
func (m *MemClient) Seed(blobID core.BlobID, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[blobID] = data
}

// Corrupt replaces a stored payload to simulate silent data corruption.
func (m *MemClient) Corrupt(blobID core.BlobID, data []byte) {
	m.Seed(blobID, data)
}

// FailEndpoint makes the next n reads against the endpoint fail with a
// network error.
func (m *MemClient) FailEndpoint(endpoint string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[endpoint] = n
}

func (m *MemClient) SetWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeErr = err
}

func (m *MemClient) SetProviders(blobID core.BlobID, providers []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.providers[blobID] = providers
}

func (m *MemClient) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reads
}
