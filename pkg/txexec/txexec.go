// Package txexec executes ledger transactions on behalf of the engine. The
// only transaction this core issues is the storage extension that pushes a
// blob's lease end-epoch forward.
package txexec

import (
	"context"
	"fmt"
	"net/http"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("txexec")

const (
	APINamespace = "TxExec"
	MajorVersion = 0
)

type API interface {
	CreateStorageExtension(
		ctx context.Context,
		blobID core.BlobID,
		additionalEpochs core.Epoch,
		signer core.Signer,
	) (core.TxDigest, error)
}

type Struct struct {
	Internal struct {
		CreateStorageExtension func(
			ctx context.Context,
			blobID core.BlobID,
			additionalEpochs core.Epoch,
			signerAddr string,
		) (core.TxDigest, error)
	}
}

// CreateStorageExtension forwards the request with the signer reduced to
// its address. Key material stays with the remote executor.
func (s *Struct) CreateStorageExtension(
	ctx context.Context,
	blobID core.BlobID,
	additionalEpochs core.Epoch,
	signer core.Signer,
) (core.TxDigest, error) {
	return s.Internal.CreateStorageExtension(ctx, blobID, additionalEpochs, signer.Address())
}

var _ API = (*Struct)(nil)

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
		return nil, nil, fmt.Errorf("dial txexec rpc %s: %w", endpoint, err)
	}

	log.Infow("txexec client ready", "endpoint", endpoint)
	return &res, closer, nil
}
