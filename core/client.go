package core

import (
	"context"
	"time"
)

// APIClient is the struct-bound jsonrpc client for APIFull, filled in by
// jsonrpc.NewMergeClient.
type APIClient struct {
	VerifierAPIClient
	LifecycleAPIClient
}

type VerifierAPIClient struct {
	Internal struct {
		VerifyBlob func(
			ctx context.Context,
			blobID BlobID,
			expected []byte,
			meta *BlobMetadata,
			opts VerificationOptions,
		) (*VerificationResult, error)
		VerifyUpload            func(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error)
		MonitorBlobAvailability func(ctx context.Context, blobID BlobID, opts MonitorOptions) (*MonitorResult, error)
		StorageProviders        func(ctx context.Context, blobID BlobID) ([]string, error)
	}
}

func (c *VerifierAPIClient) VerifyBlob(
	ctx context.Context,
	blobID BlobID,
	expected []byte,
	meta *BlobMetadata,
	opts VerificationOptions,
) (*VerificationResult, error) {
	return c.Internal.VerifyBlob(ctx, blobID, expected, meta, opts)
}

func (c *VerifierAPIClient) VerifyUpload(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	return c.Internal.VerifyUpload(ctx, data, opts)
}

func (c *VerifierAPIClient) MonitorBlobAvailability(
	ctx context.Context,
	blobID BlobID,
	opts MonitorOptions,
) (*MonitorResult, error) {
	return c.Internal.MonitorBlobAvailability(ctx, blobID, opts)
}

func (c *VerifierAPIClient) StorageProviders(ctx context.Context, blobID BlobID) ([]string, error) {
	return c.Internal.StorageProviders(ctx, blobID)
}

type LifecycleAPIClient struct {
	Internal struct {
		RenewBlob     func(ctx context.Context, blobID BlobID, vaultID string) (*BlobRecord, error)
		ExpiringBlobs func(ctx context.Context, within time.Duration) ([]BlobRecord, error)
	}
}

func (c *LifecycleAPIClient) RenewBlob(ctx context.Context, blobID BlobID, vaultID string) (*BlobRecord, error) {
	return c.Internal.RenewBlob(ctx, blobID, vaultID)
}

func (c *LifecycleAPIClient) ExpiringBlobs(ctx context.Context, within time.Duration) ([]BlobRecord, error) {
	return c.Internal.ExpiringBlobs(ctx, within)
}

var _ APIFull = (*APIClient)(nil)
