package source

import "errors"

var (
	// ErrProviderUnavailable indicates the metadata provider is not configured.
	ErrProviderUnavailable = errors.New("video metadata provider unavailable")
	// ErrEmptyMetadata indicates the remote tool returned no usable details.
	ErrEmptyMetadata = errors.New("remote source returned empty metadata")
)
