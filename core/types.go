package core

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Epoch is the storage network's discrete time unit. Storage leases are
// expressed as [StartEpoch, EndEpoch) ranges.
type Epoch int64

// TxDigest identifies a committed ledger transaction.
type TxDigest string

// BlobID is the content-derived identifier of a stored blob, encoded as
// unpadded url-safe base64 of a 32-byte digest.
type BlobID string

const blobIDRawLen = 32

func ParseBlobID(s string) (BlobID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %s", ErrInvalidBlobID, s, err)
	}

	if len(raw) != blobIDRawLen {
		return "", fmt.Errorf("%w: %q: expected %d raw bytes, got %d", ErrInvalidBlobID, s, blobIDRawLen, len(raw))
	}

	return BlobID(s), nil
}

func (b BlobID) String() string {
	return string(b)
}

func (b BlobID) Valid() bool {
	_, err := ParseBlobID(string(b))
	return err == nil
}

// ChecksumSet maps digest algorithm names to lowercase hex digests.
// Sha256 and Sha512 entries are always present in computed sets; other
// algorithms are included on a best-effort basis.
type ChecksumSet map[string]string

const (
	AlgoSha256     = "sha256"
	AlgoSha512     = "sha512"
	AlgoBlake2b256 = "blake2b-256"
)

// Equal reports whether both sets agree on every algorithm they share and
// both carry the mandatory algorithms. The comparison is symmetric.
func (cs ChecksumSet) Equal(other ChecksumSet) bool {
	return len(cs.Diff(other)) == 0
}

// Diff returns the algorithm names for which the two sets disagree,
// including mandatory algorithms missing from either side.
func (cs ChecksumSet) Diff(other ChecksumSet) []string {
	var diff []string
	seen := map[string]struct{}{}

	for algo, digest := range cs {
		seen[algo] = struct{}{}
		otherDigest, ok := other[algo]
		if !ok {
			if algo == AlgoSha256 || algo == AlgoSha512 {
				diff = append(diff, algo)
			}
			continue
		}
		if digest != otherDigest {
			diff = append(diff, algo)
		}
	}

	for algo := range other {
		if _, ok := seen[algo]; ok {
			continue
		}
		if algo == AlgoSha256 || algo == AlgoSha512 {
			diff = append(diff, algo)
		}
	}

	return diff
}

// BlobMetadata carries the attributes a caller expects a stored blob to
// have. Used for soft attribute cross-checks during verification.
type BlobMetadata struct {
	FileName string
	Size     uint64
	MimeType string
}

// StorageResource describes the on-ledger storage lease backing a blob.
type StorageResource struct {
	StartEpoch Epoch
	EndEpoch   Epoch
	Size       uint64
}

// BlobObjectMetadata is a tagged union over the metadata shapes the ledger
// has used across object versions. Exactly one variant is set.
type BlobObjectMetadata struct {
	V1 *BlobObjectMetadataV1
}

type BlobObjectMetadataV1 struct {
	FileName string
	Size     uint64
	MimeType string
}

func (m BlobObjectMetadata) Version() (string, error) {
	if m.V1 != nil {
		return "V1", nil
	}

	return "", fmt.Errorf("blob object metadata: no variant set")
}

// BlobObject is the on-ledger object tracking a stored blob.
// CertifiedEpoch is nil until the network has durably replicated the blob.
type BlobObject struct {
	ID              BlobID
	RegisteredEpoch Epoch
	CertifiedEpoch  *Epoch
	Storage         StorageResource
	Metadata        BlobObjectMetadata
}

func (o *BlobObject) Certified() bool {
	return o != nil && o.CertifiedEpoch != nil
}

// StorageUsage is a point-in-time view of the account's storage quota.
type StorageUsage struct {
	Used  uint64
	Total uint64
}

func (u StorageUsage) UsedPercent() float64 {
	if u.Total == 0 {
		return 100
	}

	return float64(u.Used) / float64(u.Total) * 100
}

// VerificationOptions select the optional checks of VerifyBlob. All off by
// default.
type VerificationOptions struct {
	VerifySmartContract  bool
	RequireCertification bool
	VerifyAttributes     bool
}

type VerificationDetails struct {
	Certified           bool
	AttributeMismatches []string
}

// VerificationResult reports a verification outcome. Attempts counts every
// fetch attempt across all nodes tried, failed ones included.
type VerificationResult struct {
	Success  bool
	Attempts int
	Details  *VerificationDetails
}

// MonitorOptions bound the certification poll loop.
type MonitorOptions struct {
	Interval    time.Duration
	MaxAttempts int
}

// MonitorResult carries the last observed ledger state when the poll loop
// resolved or exhausted its attempt budget.
type MonitorResult struct {
	Certified bool
	Attempts  int
	Object    *BlobObject
}

// UploadOptions configure VerifyUpload.
type UploadOptions struct {
	WaitForCertification bool
	WaitTimeout          time.Duration
	MinProviders         int
}

// UploadResult aggregates the write-then-verify outcome. HasMinProviders is
// advisory and never fails the call by itself.
type UploadResult struct {
	BlobID          BlobID
	Checksums       ChecksumSet
	Certified       bool
	PoAComplete     bool
	Providers       int
	HasMinProviders bool
}

// DefaultVaultID groups records the engine creates on its own behalf, as
// opposed to records created by an external application vault.
const DefaultVaultID = "default"

// BlobRecord is the vault's persisted bookkeeping entry for a stored blob.
// ExpiresAt is only ever moved forward, by successful renewals.
type BlobRecord struct {
	BlobID     BlobID    `json:"blob_id"`
	VaultID    string    `json:"vault_id"`
	FileName   string    `json:"file_name"`
	Size       uint64    `json:"size"`
	MimeType   string    `json:"mime_type"`
	Checksum   string    `json:"checksum"`
	UploadedAt time.Time `json:"uploaded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Remaining returns the blob's remaining lease lifetime relative to now.
func (r *BlobRecord) Remaining(now time.Time) time.Duration {
	return r.ExpiresAt.Sub(now)
}
