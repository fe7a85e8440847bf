package graph

import (
	"fmt"
	"strings"
)

// NodeID is the stable identity of a node within a Pool.
type NodeID int

// String renders the identity as "n<id>".
func (id NodeID) String() string {
	return fmt.Sprintf("n%d", int(id))
}

// ArcID is the stable identity of an arc within a Pool.
type ArcID int

// String renders the identity as "a<id>".
func (id ArcID) String() string {
	return fmt.Sprintf("a%d", int(id))
}

// Direction is the resolved orientation of an arc relative to its
// endpoints A and B.
//
// The Virtual variants mark orientations that were not derived by the
// degree heuristic (forced fallback, or set explicitly by a caller).
// Plain Virtual carries no explicit orientation and is treated as A→B
// for ordering and cache purposes.
type Direction uint8

const (
	DirUnset Direction = iota
	DirAtoB
	DirBtoA
	DirVirtual
	DirVirtualAtoB
	DirVirtualBtoA
)

var directionNames = [...]string{
	DirUnset:       "unset",
	DirAtoB:        "a-to-b",
	DirBtoA:        "b-to-a",
	DirVirtual:     "virtual",
	DirVirtualAtoB: "virtual-a-to-b",
	DirVirtualBtoA: "virtual-b-to-a",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// Valid reports whether d is one of the declared directions.
func (d Direction) Valid() bool {
	return d <= DirVirtualBtoA
}

// IsSet reports whether the direction has been resolved.
func (d Direction) IsSet() bool {
	return d != DirUnset && d.Valid()
}

// IsVirtual reports whether the direction is one of the virtual variants.
func (d Direction) IsVirtual() bool {
	return d == DirVirtual || d == DirVirtualAtoB || d == DirVirtualBtoA
}

// fromA reports whether the arc points away from endpoint A.
func (d Direction) fromA() bool {
	return d == DirAtoB || d == DirVirtual || d == DirVirtualAtoB
}

// ParseDirection parses the String form of a direction.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if strings.EqualFold(s, name) {
			return Direction(i), nil
		}
	}
	return DirUnset, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// SolverOutcome is the result of running a node's solver.
type SolverOutcome uint8

const (
	NotAttempted SolverOutcome = iota
	Success
	Failure
)

func (o SolverOutcome) String() string {
	switch o {
	case NotAttempted:
		return "not-attempted"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// ParseSolverOutcome parses the String form of a solver outcome.
func ParseSolverOutcome(s string) (SolverOutcome, error) {
	switch strings.ToLower(s) {
	case "not-attempted":
		return NotAttempted, nil
	case "success":
		return Success, nil
	case "failure":
		return Failure, nil
	default:
		return NotAttempted, fmt.Errorf("unknown solver outcome %q", s)
	}
}

// ArcOutcome is the agreement result recorded on an arc once both of its
// endpoints have been solved.
type ArcOutcome uint8

const (
	ArcUnset ArcOutcome = iota
	ArcSucceeded
	ArcFailed
)

func (o ArcOutcome) String() string {
	switch o {
	case ArcUnset:
		return "unset"
	case ArcSucceeded:
		return "succeeded"
	case ArcFailed:
		return "failed"
	default:
		return fmt.Sprintf("arc-outcome(%d)", uint8(o))
	}
}

// ParseArcOutcome parses the String form of an arc outcome.
func ParseArcOutcome(s string) (ArcOutcome, error) {
	switch strings.ToLower(s) {
	case "unset":
		return ArcUnset, nil
	case "succeeded":
		return ArcSucceeded, nil
	case "failed":
		return ArcFailed, nil
	default:
		return ArcUnset, fmt.Errorf("unknown arc outcome %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (o SolverOutcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *SolverOutcome) UnmarshalText(text []byte) error {
	v, err := ParseSolverOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (o ArcOutcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *ArcOutcome) UnmarshalText(text []byte) error {
	v, err := ParseArcOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
