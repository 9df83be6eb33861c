package vault

import "errors"

// Caller-facing error taxonomy. The Service is the only layer that maps
// internal failures onto these values.
var (
	// ErrUnauthorized: authorization denied. Never retried, always audited.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound: workspace, folder or file absent.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity: checksum mismatch on decrypt. Fatal for that read; the
	// stored object is preserved for forensic inspection.
	ErrIntegrity = errors.New("integrity failure")
	// ErrPayloadTooLarge: upload exceeds the configured maximum.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrStorageUnavailable: transient object store failure, retryable with
	// backoff at the caller's discretion.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnknownRole: the namespace grammar has no segment for this role.
	// A configuration error, not retried.
	ErrUnknownRole = errors.New("unknown principal role")
	// ErrInvalidCategory: category is not part of the folder category set.
	ErrInvalidCategory = errors.New("invalid file category")
	// ErrGrantExceedsGrantor: a delegated grant may never broaden access
	// beyond what the grantor itself holds.
	ErrGrantExceedsGrantor = errors.New("grant exceeds grantor's own access")
)
