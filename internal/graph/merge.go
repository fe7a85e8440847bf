package graph

import (
	"fmt"
	"slices"
)

// MergeStats summarizes what Absorb did with the doomed node's arcs.
type MergeStats struct {
	// Transplanted counts arcs rewritten onto the survivor.
	Transplanted int
	// DroppedSelfLoops counts arcs that connected survivor and doomed.
	DroppedSelfLoops int
	// MergedParallel counts arcs dropped because the survivor already had
	// an arc to the same neighbor.
	MergedParallel int
}

// Absorb merges doomed into survivor when both stand for the same
// geometric location.
//
// Every arc of doomed is rewritten to reference survivor instead. Arcs
// that would become self-loops (doomed↔survivor) are dropped. Arcs that
// would duplicate an existing survivor↔neighbor arc are dropped as well,
// keeping the survivor's arc: the pool never holds parallel arcs.
// Transplanted arcs keep their orientation relative to the rewritten
// endpoint. doomed is removed from the pool afterwards.
func (p *Pool) Absorb(survivor, doomed *Node) (MergeStats, error) {
	var stats MergeStats
	if survivor == doomed {
		return stats, ErrSelfMerge
	}
	if !p.owns(survivor) {
		return stats, structuralf(ErrCodeForeignNode, idOf(survivor), 0, "survivor is not registered in this pool")
	}
	if !p.owns(doomed) {
		return stats, structuralf(ErrCodeForeignNode, idOf(doomed), 0, "doomed node is not registered in this pool")
	}

	for _, arc := range slices.Clone(doomed.arcs) {
		other := arc.Other(doomed)
		if other == survivor {
			p.RemoveArc(arc)
			stats.DroppedSelfLoops++
			continue
		}
		if _, dup := survivor.ArcTo(other); dup {
			p.RemoveArc(arc)
			stats.MergedParallel++
			continue
		}
		p.transplant(arc, doomed, survivor)
		stats.Transplanted++
	}

	survivor.surfaceModified = survivor.surfaceModified || doomed.surfaceModified
	if len(doomed.arcs) != 0 {
		return stats, fmt.Errorf("absorb %s into %s: %w", doomed.id, survivor.id,
			structuralf(ErrCodeCacheMismatch, doomed.id, 0, "arcs left after transplant"))
	}
	p.RemoveNode(doomed)
	return stats, nil
}

// transplant moves arc's from endpoint onto to, preserving orientation.
func (p *Pool) transplant(arc *Arc, from, to *Node) {
	dir := arc.direction
	other := arc.Other(from)

	arc.clearDirection()
	from.removeArc(arc)
	delete(other.neighbors, from.id)

	if arc.a == from {
		arc.a = to
	} else {
		arc.b = to
	}
	to.addArc(arc)
	other.neighbors[to.id] = arc
	arc.apply(dir)
}

func idOf(n *Node) NodeID {
	if n == nil {
		return 0
	}
	return n.id
}
