package compat

import "errors"

// Common errors. Every diagnostic outcome short of "compatible" carries
// exactly one of these, so automation can branch with errors.Is instead
// of parsing report text.
var (
	ErrRuntimeMissing        = errors.New("torch runtime is not importable in this environment")
	ErrExtensionNotInstalled = errors.New("flash-attn extension is not installed")
	ErrExtensionABIMismatch  = errors.New("flash-attn extension was built against a different runtime ABI")
	ErrMetadataUnavailable   = errors.New("build metadata unavailable")
	ErrInspection            = errors.New("environment inspection failed unexpectedly")
)
