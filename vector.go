package multipath

// Vector is the "ordered sequence with O(1) indexed access and O(n)
// insertion" container spec.md section 3 asks every collection in the
// core to behave like: paths within a map, groups within a map, paths
// within a group, the daemon's global path/map lists. Policy code across
// the grouping and core-state packages relies on stable iteration order
// and index-based deletion using the "delete slot i, decrement i"
// convention (spec.md section 4.5); DeleteWhere below is that convention
// expressed once so policy loops don't each reimplement it.
//
// No pack library offers this shape (ordered, index-stable delete,
// O(n) insert) as a dependency — it is substantially a plain slice, so
// it stays on the standard library by design, not by omission.
type Vector[T any] struct {
	items []T
}

// NewVector returns an empty Vector with the given initial capacity hint.
func NewVector[T any](capacityHint int) *Vector[T] {
	return &Vector[T]{items: make([]T, 0, capacityHint)}
}

// VectorOf wraps an existing slice without copying.
func VectorOf[T any](items []T) *Vector[T] {
	return &Vector[T]{items: items}
}

// Len returns the number of slots in use.
func (v *Vector[T]) Len() int {
	return len(v.items)
}

// Items returns the backing slice. Callers must not retain it across a
// mutating call (Append/InsertSlot/DeleteSlot may reallocate).
func (v *Vector[T]) Items() []T {
	return v.items
}

// GetSlot returns the value at i and whether i was in range.
func (v *Vector[T]) GetSlot(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(v.items) {
		return zero, false
	}
	return v.items[i], true
}

// SetSlot overwrites the value at i. Returns false if i is out of range.
func (v *Vector[T]) SetSlot(i int, val T) bool {
	if i < 0 || i >= len(v.items) {
		return false
	}
	v.items[i] = val
	return true
}

// Append allocates a new slot at the end and returns its index.
func (v *Vector[T]) Append(val T) int {
	v.items = append(v.items, val)
	return len(v.items) - 1
}

// InsertSlot inserts val at index i, shifting subsequent slots up by one.
// Inserting at i == Len() is equivalent to Append.
func (v *Vector[T]) InsertSlot(i int, val T) bool {
	if i < 0 || i > len(v.items) {
		return false
	}
	var zero T
	v.items = append(v.items, zero)
	copy(v.items[i+1:], v.items[i:])
	v.items[i] = val
	return true
}

// DeleteSlot removes the slot at i, shifting subsequent slots down by one.
func (v *Vector[T]) DeleteSlot(i int) bool {
	if i < 0 || i >= len(v.items) {
		return false
	}
	v.items = append(v.items[:i], v.items[i+1:]...)
	return true
}

// ForEach walks slots forward from index 0, stopping early if fn returns false.
func (v *Vector[T]) ForEach(fn func(i int, val T) bool) {
	for i := 0; i < len(v.items); i++ {
		if !fn(i, v.items[i]) {
			return
		}
	}
}

// ForEachBackward walks slots from the last index down to 0, stopping early
// if fn returns false. Safe for fn to delete the current slot via DeleteSlot.
func (v *Vector[T]) ForEachBackward(fn func(i int, val T) bool) {
	for i := len(v.items) - 1; i >= 0; i-- {
		if i >= len(v.items) {
			continue
		}
		if !fn(i, v.items[i]) {
			return
		}
	}
}

// DeleteWhere removes every slot for which pred returns true, using the
// delete-slot-i-decrement-i convention (spec.md section 4.5) rather than
// building a new slice, so callers holding indices into slots before the
// scan point see stable positions. Returns the number of slots removed.
func (v *Vector[T]) DeleteWhere(pred func(T) bool) int {
	removed := 0
	for i := 0; i < len(v.items); {
		if pred(v.items[i]) {
			v.DeleteSlot(i)
			removed++
			continue
		}
		i++
	}
	return removed
}

// MoveUp relocates the slot at index from to index to (to <= from),
// shifting the intervening slots down by one. It is the move_up step of
// the original sort_pathgroups (spec.md section 4.6); Vector.Sort shifts
// slots itself and does not call it.
func (v *Vector[T]) MoveUp(from, to int) bool {
	if from < 0 || from >= len(v.items) || to < 0 || to > from {
		return false
	}
	if from == to {
		return true
	}
	val := v.items[from]
	copy(v.items[to+1:from+1], v.items[to:from])
	v.items[to] = val
	return true
}

// Find returns the index of the first slot matching pred, or -1 if none does.
func (v *Vector[T]) Find(pred func(T) bool) int {
	for i, val := range v.items {
		if pred(val) {
			return i
		}
	}
	return -1
}

// FindOrAdd returns the index of the first slot matching pred, appending a
// new slot built by makeNew if none matched.
func (v *Vector[T]) FindOrAdd(pred func(T) bool, makeNew func() T) int {
	if i := v.Find(pred); i >= 0 {
		return i
	}
	return v.Append(makeNew())
}

// Convert returns a shallow copy of this vector in a new backing array.
func (v *Vector[T]) Convert() *Vector[T] {
	cp := make([]T, len(v.items))
	copy(cp, v.items)
	return &Vector[T]{items: cp}
}

// Sort performs a stable sort using less as the ordering predicate. Policy
// code (sort_pathgroups) relies on stability: equal-ranked path groups must
// keep their relative input order.
func (v *Vector[T]) Sort(less func(a, b T) bool) {
	insertionSortStable(v.items, less)
}

// insertionSortStable sorts items in place using insertion sort, mirroring
// pgpolicies.c's sort_pathgroups: O(n^2) key comparisons, O(n) element moves
// per insertion point via a single shift rather than repeated swaps.
func insertionSortStable[T any](items []T, less func(a, b T) bool) {
	for i := 1; i < len(items); i++ {
		j := i
		val := items[j]
		for j > 0 && less(val, items[j-1]) {
			items[j] = items[j-1]
			j--
		}
		items[j] = val
	}
}
