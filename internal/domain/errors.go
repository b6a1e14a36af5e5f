package domain

import "errors"

var (
	ErrJobNotFound      = errors.New("sync job not found")
	ErrJobNotCancelable = errors.New("only pending jobs can be cancelled")
	ErrNoMapping        = errors.New("sku has no catalog mapping")
	ErrNoFxRate         = errors.New("no fx rate available at or before date")
	ErrUnsupportedCcy   = errors.New("currency not supported")

	// ErrUpstreamUnavailable wraps provider client failures; retried
	// with backoff up to the configured attempt limit.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrPartialWrite marks the case where the upstream call succeeded
	// but local persistence failed. Retrying must not re-hit the
	// external API.
	ErrPartialWrite = errors.New("upstream succeeded, snapshots not persisted")
)
