package sholl

import "errors"

var (
	// ErrInvalidSelection is returned when a center policy matches no primary path.
	ErrInvalidSelection = errors.New("no paths match center selection")
	// ErrIllegalReconfiguration is returned when center or step size change
	// after a successful parse.
	ErrIllegalReconfiguration = errors.New("parameters are frozen once a profile exists")
	// ErrEmptyIndex is returned when querying an index built from zero segments.
	ErrEmptyIndex = errors.New("crossing index is empty")
	// ErrInvalidState is returned when parsing without a structure or center.
	ErrInvalidState = errors.New("invalid parser state")
	// ErrInvalidDistance is returned for negative or NaN squared distances.
	ErrInvalidDistance = errors.New("invalid squared distance")
	// ErrNotReady is returned when rasterizing before a successful parse.
	ErrNotReady = errors.New("profile has not been computed")
	// ErrPixelRange is returned when a crossing count does not fit the pixel type.
	ErrPixelRange = errors.New("crossing count out of pixel range")
	// ErrTooManySamples is returned when a step size is too small for the
	// profile's extent.
	ErrTooManySamples = errors.New("too many discrete samples")
	// ErrUnknownPolicy is returned for unrecognised center policy names.
	ErrUnknownPolicy = errors.New("center choice was not understood")
)
