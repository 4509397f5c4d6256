package core

// Delta is the capability set every reversible mutation implements: it
// knows which entity it targets, how to fold itself forward into that
// entity, and how to fold itself back out again. A concrete delta
// value captures whatever undo-state it needs as ordinary struct fields
// during Apply, to be read back during the matching Undo call on the same
// value — see DESIGN.md's "delta lifetime" note for why this is safe across
// a WAL-driven rollback.
type Delta interface {
	// Key identifies the namespaced entity this delta targets.
	Key() NsKey

	// Apply folds the delta forward. existing is nil if no entity is
	// currently stored at Key(); the returned *Entity (nil to mean
	// "deleted" or "still absent") replaces it.
	Apply(existing *Entity) (*Entity, error)

	// Undo folds the delta backward. It must be called with the exact
	// entity value Apply produced, and must restore the exact entity
	// value Apply was given.
	Undo(existing *Entity) (*Entity, error)
}

// WorkDeltas accumulates every delta produced while visiting one block (or
// one batched group of blocks), in the order sub-visitors emit them. The
// Block Visitor Pipeline flushes exactly one WorkDeltas into one state-writer
// transaction per commit unit.
type WorkDeltas struct {
	Items []Delta
}

// Push appends d to the accumulator.
func (w *WorkDeltas) Push(d Delta) {
	w.Items = append(w.Items, d)
}

// Reversed returns the deltas in the order Undo must run them: reverse of
// application order.
func (w *WorkDeltas) Reversed() []Delta {
	out := make([]Delta, len(w.Items))
	for i, d := range w.Items {
		out[len(out)-1-i] = d
	}
	return out
}
