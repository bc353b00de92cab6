package resolve

import (
	"errors"
	"fmt"
)

// ErrInvalidZip is returned for input that is not exactly five ASCII digits.
// No store is queried.
var ErrInvalidZip = errors.New("resolve: invalid ZIP code format")

// Step names the store call that failed during a resolution.
type Step string

const (
	StepPrimaryLookup    Step = "primary_lookup"
	StepCrosswalkLookup  Step = "crosswalk_lookup"
	StepCountyZips       Step = "county_zips"
	StepCountyAggregate  Step = "county_aggregate"
	StepNationalAverages Step = "national_averages"
)

// StepError reports a store failure. It is never a not-found outcome.
type StepError struct {
	Step       Step
	Zip        string
	CountyFIPS string
	Err        error
}

func (e *StepError) Error() string {
	if e.CountyFIPS != "" {
		return fmt.Sprintf("resolve: %s for %s (county %s): %v", e.Step, e.Zip, e.CountyFIPS, e.Err)
	}
	return fmt.Sprintf("resolve: %s for %s: %v", e.Step, e.Zip, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsStoreFailure reports whether err came from a failed store call.
func IsStoreFailure(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}

// FailedStep returns the step of a StepError in err's chain.
func FailedStep(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
