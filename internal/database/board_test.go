package database

import (
	"math/rand"
	"sort"
	"testing"
)

func TestClampPosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		position  int
		destCount int
		want      int
	}{
		{"negative clamps to zero", -3, 5, 0},
		{"zero stays", 0, 5, 0},
		{"in range stays", 3, 5, 3},
		{"end of column stays", 5, 5, 5},
		{"past end clamps", 9, 5, 5},
		{"empty column clamps to zero", 4, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := clampPosition(tt.position, tt.destCount); got != tt.want {
				t.Errorf("clampPosition(%d, %d) = %d, want %d", tt.position, tt.destCount, got, tt.want)
			}
		})
	}
}

func TestShiftBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		oldOrder, position int
		lo, hi, delta      int
		ok                 bool
	}{
		{"move down", 1, 4, 2, 4, -1, true},
		{"move up", 4, 1, 1, 3, +1, true},
		{"adjacent down", 2, 3, 3, 3, -1, true},
		{"adjacent up", 3, 2, 2, 2, +1, true},
		{"same slot", 2, 2, 0, 0, 0, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lo, hi, delta, ok := shiftBounds(tt.oldOrder, tt.position)
			if ok != tt.ok {
				t.Fatalf("shiftBounds(%d, %d) ok = %v, want %v", tt.oldOrder, tt.position, ok, tt.ok)
			}
			if !ok {
				return
			}
			if lo != tt.lo || hi != tt.hi || delta != tt.delta {
				t.Errorf("shiftBounds(%d, %d) = (%d, %d, %d), want (%d, %d, %d)",
					tt.oldOrder, tt.position, lo, hi, delta, tt.lo, tt.hi, tt.delta)
			}
		})
	}
}

// boardModel mirrors the per-row arithmetic MoveInColumn, Create and Delete
// run in SQL: independent (column, order) fields per task, renumbered with
// the same clamp and shift helpers.
type boardModel struct {
	columns map[string][]int // column -> set of task ids (unordered)
	order   map[int]int      // task id -> kanban_order
	column  map[int]string   // task id -> kanban_column
}

func newBoardModel() *boardModel {
	return &boardModel{
		columns: make(map[string][]int),
		order:   make(map[int]int),
		column:  make(map[int]string),
	}
}

func (b *boardModel) create(id int, column string) {
	next := 0
	for _, sib := range b.columns[column] {
		if b.order[sib]+1 > next {
			next = b.order[sib] + 1
		}
	}
	b.columns[column] = append(b.columns[column], id)
	b.column[id] = column
	b.order[id] = next
}

func (b *boardModel) move(id int, dest string, position int) {
	src := b.column[id]
	oldOrder := b.order[id]

	destCount := len(b.columns[dest])
	if src == dest {
		destCount--
	}
	position = clampPosition(position, destCount)

	if src == dest {
		if lo, hi, delta, ok := shiftBounds(oldOrder, position); ok {
			for _, sib := range b.columns[dest] {
				if sib != id && b.order[sib] >= lo && b.order[sib] <= hi {
					b.order[sib] += delta
				}
			}
		}
	} else {
		for _, sib := range b.columns[src] {
			if b.order[sib] > oldOrder {
				b.order[sib]--
			}
		}
		for _, sib := range b.columns[dest] {
			if b.order[sib] >= position {
				b.order[sib]++
			}
		}
		b.columns[src] = removeID(b.columns[src], id)
		b.columns[dest] = append(b.columns[dest], id)
		b.column[id] = dest
	}
	b.order[id] = position
}

func (b *boardModel) remove(id int) {
	col := b.column[id]
	gone := b.order[id]
	b.columns[col] = removeID(b.columns[col], id)
	for _, sib := range b.columns[col] {
		if b.order[sib] > gone {
			b.order[sib]--
		}
	}
	delete(b.order, id)
	delete(b.column, id)
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// checkContiguous fails when any column is not a duplicate-free 0-based
// sequence.
func (b *boardModel) checkContiguous(t *testing.T, step int) {
	t.Helper()
	for col, ids := range b.columns {
		orders := make([]int, 0, len(ids))
		for _, id := range ids {
			orders = append(orders, b.order[id])
		}
		sort.Ints(orders)
		for i, o := range orders {
			if o != i {
				t.Fatalf("step %d: column %q orders %v are not contiguous from 0", step, col, orders)
			}
		}
	}
}

func TestBoardRenumbering_StaysContiguous(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	columns := []string{"todo", "in_progress", "done"}
	board := newBoardModel()

	var ids []int
	nextID := 0

	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(10); {
		case op < 3 || len(ids) == 0:
			id := nextID
			nextID++
			ids = append(ids, id)
			board.create(id, columns[rng.Intn(len(columns))])
		case op < 9:
			id := ids[rng.Intn(len(ids))]
			// Out-of-range positions are part of the contract and must clamp
			board.move(id, columns[rng.Intn(len(columns))], rng.Intn(12)-2)
		default:
			i := rng.Intn(len(ids))
			board.remove(ids[i])
			ids = append(ids[:i], ids[i+1:]...)
		}
		board.checkContiguous(t, step)
	}
}
