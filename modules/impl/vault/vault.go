// Package vault persists blob bookkeeping records in the local kv store.
// Records are keyed by vault and blob id; the expiry monitor scans them to
// find leases approaching their end.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/pkg/kvstore"
	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("vault")

var _ core.VaultStore = (*Vault)(nil)

const keyPrefix = "blob/"

func recordKey(vaultID string, blobID core.BlobID) kvstore.Key {
	return []byte(fmt.Sprintf("%s%s/%s", keyPrefix, vaultID, blobID))
}

func New(kv kvstore.KVStore) *Vault {
	return &Vault{kv: kv}
}

type Vault struct {
	kv kvstore.KVStore
}

func (v *Vault) PutBlobRecord(ctx context.Context, record *core.BlobRecord) error {
	if record.VaultID == "" {
		record.VaultID = core.DefaultVaultID
	}

	if !record.BlobID.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidBlobID, record.BlobID)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal blob record: %w", err)
	}

	return v.kv.Put(ctx, recordKey(record.VaultID, record.BlobID), data)
}

func (v *Vault) BlobRecord(ctx context.Context, blobID core.BlobID, vaultID string) (*core.BlobRecord, error) {
	if vaultID == "" {
		vaultID = core.DefaultVaultID
	}

	var record core.BlobRecord
	err := v.kv.View(ctx, recordKey(vaultID, blobID), func(data kvstore.Val) error {
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		if err == kvstore.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: blob %s in vault %s", core.ErrRecordNotFound, blobID, vaultID)
		}
		return nil, err
	}

	return &record, nil
}

// ExpiringBlobs returns every record whose lease ends within the given
// window, soonest first. Already-expired records are included; their
// remaining lifetime is simply negative.
func (v *Vault) ExpiringBlobs(ctx context.Context, within time.Duration) ([]core.BlobRecord, error) {
	deadline := time.Now().Add(within)

	iter, err := v.kv.Scan(ctx, []byte(keyPrefix))
	if err != nil {
		return nil, fmt.Errorf("scan blob records: %w", err)
	}
	defer iter.Close()

	var expiring []core.BlobRecord
	for iter.Next() {
		var record core.BlobRecord
		if err := iter.View(ctx, func(data kvstore.Val) error {
			return json.Unmarshal(data, &record)
		}); err != nil {
			log.Warnw("skip undecodable blob record", "key", string(iter.Key()), "err", err)
			continue
		}

		if record.ExpiresAt.After(deadline) {
			continue
		}

		expiring = append(expiring, record)
	}

	sort.Slice(expiring, func(i, j int) bool {
		return expiring[i].ExpiresAt.Before(expiring[j].ExpiresAt)
	})

	return expiring, nil
}

// UpdateBlobExpiry moves a record's expiry forward. Requests that would
// move it backward are ignored, which makes repeated renewals of the same
// lease harmless.
func (v *Vault) UpdateBlobExpiry(ctx context.Context, blobID core.BlobID, vaultID string, newExpiry time.Time) error {
	record, err := v.BlobRecord(ctx, blobID, vaultID)
	if err != nil {
		return err
	}

	if !newExpiry.After(record.ExpiresAt) {
		log.Debugw("expiry update ignored, not a forward move",
			"blob", blobID, "current", record.ExpiresAt, "requested", newExpiry)
		return nil
	}

	record.ExpiresAt = newExpiry
	return v.PutBlobRecord(ctx, record)
}
