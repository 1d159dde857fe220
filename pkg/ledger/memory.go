package ledger

import (
	"context"
	"sync"

	"github.com/coho-storage/blobwarden/core"
)

var _ API = (*MemLedger)(nil)

// NewMem constructs an in-memory ledger for tests and offline runs.
func NewMem() *MemLedger {
	return &MemLedger{
		objects:   map[core.BlobID]*core.BlobObject{},
		available: map[core.BlobID]bool{},
	}
}

type MemLedger struct {
	mu        sync.Mutex
	objects   map[core.BlobID]*core.BlobObject
	available map[core.BlobID]bool
	usage     core.StorageUsage
	usageErr  error
}

func (m *MemLedger) GetBlobObject(_ context.Context, blobID core.BlobID) (*core.BlobObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[blobID]
	if !ok {
		return nil, core.ErrUnavailable
	}

	cp := *obj
	if obj.CertifiedEpoch != nil {
		ce := *obj.CertifiedEpoch
		cp.CertifiedEpoch = &ce
	}
	return &cp, nil
}

func (m *MemLedger) GetStorageUsage(_ context.Context) (core.StorageUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usageErr != nil {
		return core.StorageUsage{}, m.usageErr
	}
	return m.usage, nil
}

func (m *MemLedger) VerifyAvailability(_ context.Context, blobID core.BlobID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.available[blobID], nil
}

func (m *MemLedger) SetObject(obj *core.BlobObject) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[obj.ID] = obj
	m.available[obj.ID] = true
}

// Certify marks the blob object as certified at the given epoch.
func (m *MemLedger) Certify(blobID core.BlobID, at core.Epoch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj, ok := m.objects[blobID]; ok {
		obj.CertifiedEpoch = &at
	}
}

func (m *MemLedger) SetAvailable(blobID core.BlobID, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.available[blobID] = ok
}

func (m *MemLedger) SetUsage(used, total uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage = core.StorageUsage{Used: used, Total: total}
}

func (m *MemLedger) SetUsageErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usageErr = err
}
