package core

import (
	"context"
	"time"
)

const (
	APINamespace = "Warden"
	MajorVersion = 0
)

// VerifierAPI is the read/verify surface of the engine, exposed over
// jsonrpc by the daemon.
type VerifierAPI interface {
	VerifyBlob(
		ctx context.Context,
		blobID BlobID,
		expected []byte,
		meta *BlobMetadata,
		opts VerificationOptions,
	) (*VerificationResult, error)

	VerifyUpload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error)

	MonitorBlobAvailability(ctx context.Context, blobID BlobID, opts MonitorOptions) (*MonitorResult, error)

	StorageProviders(ctx context.Context, blobID BlobID) ([]string, error)
}

// LifecycleAPI is the lease-management surface of the engine.
type LifecycleAPI interface {
	RenewBlob(ctx context.Context, blobID BlobID, vaultID string) (*BlobRecord, error)

	ExpiringBlobs(ctx context.Context, within time.Duration) ([]BlobRecord, error)
}

type APIFull interface {
	VerifierAPI
	LifecycleAPI
}

// VaultStore is the external vault holding BlobRecords. The engine reads
// records and requests expiry updates; it never deletes them.
type VaultStore interface {
	ExpiringBlobs(ctx context.Context, within time.Duration) ([]BlobRecord, error)
	BlobRecord(ctx context.Context, blobID BlobID, vaultID string) (*BlobRecord, error)
	PutBlobRecord(ctx context.Context, record *BlobRecord) error
	UpdateBlobExpiry(ctx context.Context, blobID BlobID, vaultID string, newExpiry time.Time) error
}

// Signer authorizes storage-extension transactions. The engine treats it as
// opaque and never inspects key material.
type Signer interface {
	Address() string
}

// StaticSigner is a Signer backed by a fixed, externally-managed address.
type StaticSigner string

func (s StaticSigner) Address() string {
	return string(s)
}
