package core

import "errors"

// Error kinds callers are expected to branch on with errors.Is. Correctness
// failures (mismatch, missing certification, malformed id) are never
// retried; transient transport failures surface as ErrRetryExhausted only
// after the attempt budget is spent.
var (
	ErrVerificationFailed    = errors.New("verification failed")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrInvalidBlobID         = errors.New("invalid blob id")
	ErrCertificationRequired = errors.New("certification required")
	ErrCertificationTimeout  = errors.New("timeout waiting for certification")
	ErrRetryExhausted        = errors.New("fetch attempts exhausted")
	ErrQuotaExceeded         = errors.New("storage capacity exceeded")
	ErrRecordNotFound        = errors.New("blob record not found")
	ErrUnavailable           = errors.New("blob not available on ledger")
)
