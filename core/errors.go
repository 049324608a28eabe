package core

import "errors"

var (
	// ErrInvalidParameter is returned, before any computation, when an input
	// falls outside its documented domain. Callers match it with errors.Is; the
	// wrapped message names the offending field.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoImpact is returned when a geodetic impact site is requested for a
	// trajectory that misses the target sphere.
	ErrNoImpact = errors.New("trajectory does not impact")
)
