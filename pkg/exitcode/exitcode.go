// Package exitcode defines tsdba's stable process exit codes (spec §6:
// "Exit codes form a dense enumeration... Each is distinct and stable").
// Named after the original pipeline's exit_codes.hpp enumeration, renamed
// from its CUDA-specific framing (memcpy, device allocation) to the
// equivalent host-side failure each now maps to.
package exitcode

// Code is a stable, dense process exit code.
type Code int

const (
	// OK is a successful run.
	OK Code = 0
	// CopyFailure is the Go analogue of the original's memcpy failure: a
	// host<->device buffer transfer in a real accelerator backend failed.
	CopyFailure Code = 1
	// CannotAllocatePairwiseArray is returned when the packed N(N-1)/2
	// distance matrix cannot be allocated (spec §4.E).
	CannotAllocatePairwiseArray Code = 2
	// MedoidFindingError covers a failure during clustering or medoid
	// selection (spec §4.F), including ErrReservedCutPolicy.
	MedoidFindingError Code = 3
	// CannotWriteDistanceMatrix is returned when pair_dists.txt cannot
	// be opened for writing (spec §4.E/§4.H).
	CannotWriteDistanceMatrix Code = 4
	// CannotWriteAverages is returned when avg.txt cannot be opened for
	// writing (spec §4.H).
	CannotWriteAverages Code = 5
	// CannotWriteMembership is returned when cluster_membership.txt
	// cannot be opened for writing (spec §4.H).
	CannotWriteMembership Code = 6
	// CannotWritePath is returned when a path<i>.txt file cannot be
	// opened for writing (spec §4.H).
	CannotWritePath Code = 7
	// CannotReadAverages is returned when avg.txt exists but cannot be
	// parsed when a consensus run (CONSENSUS_ONLY or
	// CLUSTER_AND_CONSENSUS) resumes.
	CannotReadAverages Code = 8
	// CannotReadMembership is returned when cluster_membership.txt
	// cannot be read during a CONSENSUS_ONLY run (spec §4.G: "Read from
	// a previous call to this method").
	CannotReadMembership Code = 9
	// UnknownAlgoMode is returned for an algo_mode outside {1,2,3}
	// (spec §6).
	UnknownAlgoMode Code = 10
	// PrefixChoppedCopyFailure is the Go analogue of the original's
	// prefix-chopping utility failing to copy a zero-length sequence;
	// out of scope for tsdba's core (spec §1) but kept as a stable code
	// for the CLI surface that wraps it.
	PrefixChoppedCopyFailure Code = 11
)

// Error pairs a stable exit code with the underlying error, so cmd/tsdba
// can translate any failure in pkg/pipeline into the right os.Exit value
// without pkg/pipeline importing os itself.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "tsdba: unknown error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error from a code and an underlying error. Returns nil
// if err is nil, so call sites can write `return exitcode.Wrap(Code, err)`
// unconditionally after an `if err != nil` guard without double-checking.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}
