package txexec

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/coho-storage/blobwarden/core"
)

var _ API = (*MemExecutor)(nil)

// NewMem constructs an in-memory transaction executor recording every
// extension it is asked to create.
func NewMem() *MemExecutor {
	return &MemExecutor{}
}

type Extension struct {
	BlobID           core.BlobID
	AdditionalEpochs core.Epoch
	SignerAddr       string
	Digest           core.TxDigest
}

type MemExecutor struct {
	mu         sync.Mutex
	extensions []Extension
	err        error
}

func (m *MemExecutor) CreateStorageExtension(
	_ context.Context,
	blobID core.BlobID,
	additionalEpochs core.Epoch,
	signer core.Signer,
) (core.TxDigest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	if additionalEpochs <= 0 {
		return "", fmt.Errorf("storage extension of %d epochs", additionalEpochs)
	}

	ext := Extension{
		BlobID:           blobID,
		AdditionalEpochs: additionalEpochs,
		SignerAddr:       signer.Address(),
		Digest:           core.TxDigest(uuid.New().String()),
	}
	m.extensions = append(m.extensions, ext)

	return ext.Digest, nil
}

func (m *MemExecutor) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *MemExecutor) Extensions() []Extension {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Extension, len(m.extensions))
	copy(out, m.extensions)
	return out
}
