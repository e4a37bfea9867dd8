package project

import "errors"

// Errors reported while loading or synchronizing package manifests.
// They are wrapped with the offending manifest path and can be tested
// with errors.Is.
var (
	// ErrManifestNotFound reports a manifest path that does not exist or
	// cannot be read. It indicates a configuration error, not a transient
	// fault: callers should surface it, not retry.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrManifestMalformed reports a manifest that cannot be parsed, lacks
	// a name or version declaration, or declares its version ambiguously.
	ErrManifestMalformed = errors.New("manifest malformed")
)
