package uap

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrFeaturesNotFound indicates no feature data exists for a video.
	ErrFeaturesNotFound = errors.New("uap: features not found")

	// ErrInvalidFPS indicates a non-positive frame rate.
	ErrInvalidFPS = errors.New("uap: invalid frame rate")

	// ErrGeneratorFailed indicates the proposal generator returned an error.
	ErrGeneratorFailed = errors.New("uap: proposal generation failed")

	// ErrInvalidProposals indicates the generator returned mismatched proposals and scores.
	ErrInvalidProposals = errors.New("uap: invalid proposal output")

	// ErrUnknownConvention indicates no frame-to-time convention is registered for a dataset.
	ErrUnknownConvention = errors.New("uap: unknown dataset convention")
)

// VideoError reports the video on which an aggregation was aborted.
type VideoError struct {
	Index   int
	VideoID string
	Err     error
}

func (e *VideoError) Error() string {
	return fmt.Sprintf("video %d (%s): %v", e.Index, e.VideoID, e.Err)
}

func (e *VideoError) Unwrap() error {
	return e.Err
}
