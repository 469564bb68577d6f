package inference

import "errors"

var (
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("inference: pool closed")

	// ErrRaggedFeatures indicates feature rows of differing dimension.
	ErrRaggedFeatures = errors.New("inference: feature rows differ in dimension")

	// ErrSessionClosed is returned by Infer after Close.
	ErrSessionClosed = errors.New("inference: session closed")
)
