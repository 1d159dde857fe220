// Package transport abstracts the blob network's write/read primitives.
// Two implementations are provided: an HTTP client speaking to
// publisher/aggregator endpoints, and an in-memory client for tests and
// offline runs.
package transport

import (
	"context"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("transport")

type Client interface {
	// Write stores the payload through the publisher endpoint and returns
	// the blob id the network assigned.
	Write(ctx context.Context, data []byte) (core.BlobID, error)

	// ReadFrom fetches blob bytes from one specific endpoint. Failures are
	// reported per-endpoint so callers can fail over.
	ReadFrom(ctx context.Context, endpoint string, blobID core.BlobID) ([]byte, error)

	// Providers enumerates the storage providers currently holding the blob.
	Providers(ctx context.Context, blobID core.BlobID) ([]string, error)
}
