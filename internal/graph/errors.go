package graph

import (
	"errors"
	"fmt"
)

// StructuralError reports a violation of the graph's structural contract.
//
// Structural errors originate in the discovery collaborator that populates
// the Pool (an arc without two distinct endpoints, an arc pointing at a node
// outside the pool, corrupted caches). They are fatal to a run because the
// model's invariants cannot be restored safely.
type StructuralError struct {
	// Code identifies the violation category.
	Code StructuralErrorCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the offending node, if any.
	NodeID NodeID

	// ArcID identifies the offending arc, if any.
	ArcID ArcID
}

// StructuralErrorCode categorizes structural violations.
type StructuralErrorCode string

const (
	// ErrCodeSelfArc indicates an arc whose endpoints are the same node.
	ErrCodeSelfArc StructuralErrorCode = "SELF_ARC"

	// ErrCodeForeignNode indicates a node that is not registered in the pool.
	ErrCodeForeignNode StructuralErrorCode = "FOREIGN_NODE"

	// ErrCodeDanglingArc indicates an arc referencing a removed or foreign node.
	ErrCodeDanglingArc StructuralErrorCode = "DANGLING_ARC"

	// ErrCodeCacheMismatch indicates inconsistent arc/neighbor/direction caches.
	ErrCodeCacheMismatch StructuralErrorCode = "CACHE_MISMATCH"

	// ErrCodePartition indicates decomposition lost or duplicated an element.
	ErrCodePartition StructuralErrorCode = "PARTITION_VIOLATION"
)

// Error implements the error interface.
func (e *StructuralError) Error() string {
	switch {
	case e.NodeID != 0 && e.ArcID != 0:
		return fmt.Sprintf("%s: %s (node=%s, arc=%s)", e.Code, e.Message, e.NodeID, e.ArcID)
	case e.ArcID != 0:
		return fmt.Sprintf("%s: %s (arc=%s)", e.Code, e.Message, e.ArcID)
	case e.NodeID != 0:
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsStructural returns true if err is, or wraps, a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// StructuralCode extracts the code of a wrapped StructuralError.
// Returns "" if err is not structural.
func StructuralCode(err error) StructuralErrorCode {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func structuralf(code StructuralErrorCode, node NodeID, arc ArcID, format string, args ...any) *StructuralError {
	return &StructuralError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		NodeID:  node,
		ArcID:   arc,
	}
}

var (
	// ErrAlreadyDirected is returned by SetDirection on an arc that is
	// already oriented. Use ForceDirection to re-orient.
	ErrAlreadyDirected = errors.New("arc already directed")

	// ErrInvalidDirection is returned for directions SetDirection does not
	// accept (unset, virtual, or out of range).
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrSelfMerge is returned when a node is asked to absorb itself.
	ErrSelfMerge = errors.New("node cannot absorb itself")
)
