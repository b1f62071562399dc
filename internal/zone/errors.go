package zone

import "errors"

// Sentinel errors matching spec.md §7's error taxonomy for ZoneIndex.
// Callers compare against these with errors.Is.
var (
	// ErrWrongState is returned when a method is called outside the
	// state it requires (e.g. AddTerm before PrepForBuild, Retrieve
	// before the zone is Readable).
	ErrWrongState = errors.New("zone: operation invalid in current state")

	// ErrEmptyBuild is returned by Merge when PrepForBuild was called but
	// no AddTerm calls ever recorded a term — an empty corpus pass. The
	// zone is still left Readable, with no terms.
	ErrEmptyBuild = errors.New("zone: merge found no recorded terms")

	// ErrTermNotFound is returned by Retrieve for a term absent from the
	// final index.
	ErrTermNotFound = errors.New("zone: term not found")

	// ErrIndexCorrupt is returned when a final or partial index file's
	// on-disk shape doesn't match its own term LUT.
	ErrIndexCorrupt = errors.New("zone: index file corrupt")
)
