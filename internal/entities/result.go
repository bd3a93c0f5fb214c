package entities

import (
	"errors"
	"fmt"
)

// FailureReason is the tag text shown on the order platform UI. The values
// are fixed: tags are created on the platform front end and matched here by
// exact text.
type FailureReason string

const (
	ReasonMultiOrder     FailureReason = "Multi-Order"
	ReasonDoubleOrder    FailureReason = "Double-Order"
	ReasonNoDims         FailureReason = "No-Dims"
	ReasonNoDeliveryDate FailureReason = "No-DeliveryDate"
	ReasonNoAPIKeys      FailureReason = "No API Keys"
	ReasonNoPlatformRate FailureReason = "No SS Carrier Rates"
	ReasonNoUPSRate      FailureReason = "No UPS Rate"
	ReasonNoUSPSRate     FailureReason = "No USPS Rate"
	ReasonNoFedexRate    FailureReason = "No Fedex Rate"
	ReasonShippingNotSet FailureReason = "Shipping not set"
	ReasonReady          FailureReason = "Ready"
)

type Outcome int

const (
	OutcomeUpdated Outcome = iota
	OutcomeSkipped
	OutcomeRetry
	OutcomeFatal
)

// ProcessResult is the explicit per-order outcome of one pipeline pass.
// The runner collects Retry results into the second-pass queue instead of
// the pipeline mutating shared state.
type ProcessResult struct {
	Outcome Outcome
	Reason  FailureReason
	Err     error
}

func Updated() ProcessResult              { return ProcessResult{Outcome: OutcomeUpdated} }
func Skipped() ProcessResult              { return ProcessResult{Outcome: OutcomeSkipped} }
func Retry(r FailureReason) ProcessResult { return ProcessResult{Outcome: OutcomeRetry, Reason: r} }
func Fatal(err error) ProcessResult       { return ProcessResult{Outcome: OutcomeFatal, Err: err} }

// FatalError marks operator-configuration failures that abort the whole
// run: unrecognized warehouse ids, missing credentials.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
