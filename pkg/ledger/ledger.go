// Package ledger is the client side of the ownership ledger's query API:
// blob object state, storage quota, and proof-of-availability checks.
package ledger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("ledger")

const (
	APINamespace = "Ledger"
	MajorVersion = 0
)

type API interface {
	// GetBlobObject returns the on-ledger object for the blob, or
	// core.ErrUnavailable if the ledger does not know the blob.
	GetBlobObject(ctx context.Context, blobID core.BlobID) (*core.BlobObject, error)

	// GetStorageUsage reports the account's current storage quota usage.
	GetStorageUsage(ctx context.Context) (core.StorageUsage, error)

	// VerifyAvailability runs the proof-of-availability check: whether the
	// blob object still corresponds to retrievable storage.
	VerifyAvailability(ctx context.Context, blobID core.BlobID) (bool, error)
}

type Struct struct {
	Internal struct {
		GetBlobObject      func(ctx context.Context, blobID core.BlobID) (*core.BlobObject, error)
		GetStorageUsage    func(ctx context.Context) (core.StorageUsage, error)
		VerifyAvailability func(ctx context.Context, blobID core.BlobID) (bool, error)
	}
}

func (s *Struct) GetBlobObject(ctx context.Context, blobID core.BlobID) (*core.BlobObject, error) {
	return s.Internal.GetBlobObject(ctx, blobID)
}

func (s *Struct) GetStorageUsage(ctx context.Context) (core.StorageUsage, error) {
	return s.Internal.GetStorageUsage(ctx)
}

func (s *Struct) VerifyAvailability(ctx context.Context, blobID core.BlobID) (bool, error) {
	return s.Internal.VerifyAvailability(ctx, blobID)
}

var _ API = (*Struct)(nil)

// New dials the ledger node's jsonrpc endpoint.
func New(ctx context.Context, addr string, token string) (API, jsonrpc.ClientCloser, error) {
	endpoint := fmt.Sprintf("%s/rpc/v%d", addr, MajorVersion)

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	var res Struct
	closer, err := jsonrpc.NewMergeClient(
		ctx,
		endpoint,
		APINamespace,
		[]interface{}{&res.Internal},
		header,
		jsonrpc.WithRetry(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial ledger rpc %s: %w", endpoint, err)
	}

	log.Infow("ledger client ready", "endpoint", endpoint)
	return &res, closer, nil
}
