package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/pkg/kvstore"
	"github.com/coho-storage/blobwarden/pkg/transport"
)

func testRecord(t *testing.T, payload string, expiresIn time.Duration) *core.BlobRecord {
	t.Helper()

	now := time.Now()
	return &core.BlobRecord{
		BlobID:     transport.DeriveBlobID([]byte(payload)),
		VaultID:    core.DefaultVaultID,
		FileName:   payload + ".bin",
		Size:       uint64(len(payload)),
		UploadedAt: now,
		ExpiresAt:  now.Add(expiresIn),
	}
}

func TestPutAndGetRecord(t *testing.T) {
	v := New(kvstore.NewMemKVStore())
	ctx := context.Background()

	record := testRecord(t, "payload-a", 30*24*time.Hour)
	require.NoError(t, v.PutBlobRecord(ctx, record))

	got, err := v.BlobRecord(ctx, record.BlobID, record.VaultID)
	require.NoError(t, err)
	require.Equal(t, record.BlobID, got.BlobID)
	require.Equal(t, record.FileName, got.FileName)
	require.True(t, record.ExpiresAt.Equal(got.ExpiresAt))
}

func TestGetRecordNotFound(t *testing.T) {
	v := New(kvstore.NewMemKVStore())

	_, err := v.BlobRecord(context.Background(), transport.DeriveBlobID([]byte("absent")), "")
	require.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestPutRejectsInvalidBlobID(t *testing.T) {
	v := New(kvstore.NewMemKVStore())

	err := v.PutBlobRecord(context.Background(), &core.BlobRecord{BlobID: "garbage"})
	require.ErrorIs(t, err, core.ErrInvalidBlobID)
}

func TestExpiringBlobsWindowAndOrder(t *testing.T) {
	v := New(kvstore.NewMemKVStore())
	ctx := context.Background()

	soon := testRecord(t, "expires-soon", 2*24*time.Hour)
	later := testRecord(t, "expires-later", 5*24*time.Hour)
	distant := testRecord(t, "expires-distant", 90*24*time.Hour)

	for _, r := range []*core.BlobRecord{distant, later, soon} {
		require.NoError(t, v.PutBlobRecord(ctx, r))
	}

	expiring, err := v.ExpiringBlobs(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	require.Equal(t, soon.BlobID, expiring[0].BlobID, "soonest expiry first")
	require.Equal(t, later.BlobID, expiring[1].BlobID)
}

func TestExpiringBlobsIncludesAlreadyExpired(t *testing.T) {
	v := New(kvstore.NewMemKVStore())
	ctx := context.Background()

	expired := testRecord(t, "already-expired", -24*time.Hour)
	require.NoError(t, v.PutBlobRecord(ctx, expired))

	expiring, err := v.ExpiringBlobs(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	require.Negative(t, expiring[0].Remaining(time.Now()))
}

func TestUpdateBlobExpiryForwardOnly(t *testing.T) {
	v := New(kvstore.NewMemKVStore())
	ctx := context.Background()

	record := testRecord(t, "renewable", 3*24*time.Hour)
	require.NoError(t, v.PutBlobRecord(ctx, record))

	forward := record.ExpiresAt.Add(30 * 24 * time.Hour)
	require.NoError(t, v.UpdateBlobExpiry(ctx, record.BlobID, record.VaultID, forward))

	got, err := v.BlobRecord(ctx, record.BlobID, record.VaultID)
	require.NoError(t, err)
	require.True(t, forward.Equal(got.ExpiresAt))

	// a stale renewal must not move the expiry backward
	require.NoError(t, v.UpdateBlobExpiry(ctx, record.BlobID, record.VaultID, record.ExpiresAt))

	got, err = v.BlobRecord(ctx, record.BlobID, record.VaultID)
	require.NoError(t, err)
	require.True(t, forward.Equal(got.ExpiresAt))
}

func TestVaultsAreIsolated(t *testing.T) {
	v := New(kvstore.NewMemKVStore())
	ctx := context.Background()

	record := testRecord(t, "scoped", 24*time.Hour)
	record.VaultID = "tenant-a"
	require.NoError(t, v.PutBlobRecord(ctx, record))

	_, err := v.BlobRecord(ctx, record.BlobID, "tenant-b")
	require.ErrorIs(t, err, core.ErrRecordNotFound)
}
