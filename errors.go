package strata

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the strata package.
var (
	// ErrMalformedChunk is returned when a chunk violates a structural
	// invariant (mismatched column lengths, mixed static and temporal rows).
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrEmptyChunk is returned when building a chunk with no rows or no
	// component columns.
	ErrEmptyChunk = errors.New("chunk has no rows")

	// ErrUnknownTimeline is returned when a chunk operation references a
	// timeline the chunk does not carry.
	ErrUnknownTimeline = errors.New("unknown timeline")

	// ErrStreamingDisabled is returned when streaming operations are
	// attempted on a store without an attached hub.
	ErrStreamingDisabled = errors.New("streaming not enabled")

	// ErrInvalidConfig is returned for configuration that cannot be applied.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MalformedChunkReason categorizes chunk validation failures.
type MalformedChunkReason int

const (
	// MalformedUnknown is an unclassified validation failure.
	MalformedUnknown MalformedChunkReason = iota
	// MalformedLengthMismatch indicates columns with differing row counts.
	MalformedLengthMismatch
	// MalformedMixedStaticTemporal indicates a chunk that is neither purely
	// static nor purely temporal.
	MalformedMixedStaticTemporal
	// MalformedNoComponents indicates a chunk without component columns.
	MalformedNoComponents
	// MalformedNoRows indicates a chunk without rows.
	MalformedNoRows
)

// MalformedChunkError reports a structural invariant violation detected
// before a chunk reaches the store. The offending chunk never affects
// store state.
type MalformedChunkError struct {
	Reason  MalformedChunkReason
	ChunkID ChunkID
	Message string
}

func (e *MalformedChunkError) Error() string {
	return fmt.Sprintf("malformed chunk %s: %s", e.ChunkID, e.Message)
}

// Is implements error matching for MalformedChunkError.
func (e *MalformedChunkError) Is(target error) bool {
	if target == ErrMalformedChunk {
		return true
	}
	if e.Reason == MalformedNoRows || e.Reason == MalformedNoComponents {
		return target == ErrEmptyChunk
	}
	return false
}

// newMalformedChunkError creates a new MalformedChunkError.
func newMalformedChunkError(reason MalformedChunkReason, id ChunkID, format string, args ...any) *MalformedChunkError {
	return &MalformedChunkError{
		Reason:  reason,
		ChunkID: id,
		Message: fmt.Sprintf(format, args...),
	}
}
