package dep

import (
	"context"

	"github.com/dtynn/dix"

	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("dep")

// GlobalContext is the process-lifetime context shared by every component.
type GlobalContext context.Context

const (
	ignoredInvoke dix.Invoke = iota // nolint:deadcode,varcheck

	// InvokePopulate should always be the last Invoke
	InvokePopulate
)
