package database

// Pure board renumbering arithmetic. MoveInColumn drives its SQL off these
// helpers so the invariant that every column stays a contiguous 0-based
// sequence can be checked without a database.

// clampPosition bounds a requested 0-based position to the destination
// column. destCount excludes the task being moved.
func clampPosition(position, destCount int) int {
	if position < 0 {
		return 0
	}
	if position > destCount {
		return destCount
	}
	return position
}

// shiftBounds returns the inclusive kanban_order range of siblings displaced
// by a same-column move and the amount they shift by. ok is false when the
// task keeps its slot and nothing moves.
func shiftBounds(oldOrder, position int) (lo, hi, delta int, ok bool) {
	switch {
	case position > oldOrder:
		// Moving down: siblings between the slots shift up
		return oldOrder + 1, position, -1, true
	case position < oldOrder:
		// Moving up: siblings between the slots shift down
		return position, oldOrder - 1, +1, true
	default:
		return 0, 0, 0, false
	}
}
