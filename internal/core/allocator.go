package core

// orderBase is the sort order assigned to the first item of an empty scope.
const orderBase = 0

// NextOrder returns a sort order strictly greater than every existing value,
// or orderBase when the scope is empty. Pure function; used only on
// single-item creation. Bulk reorder assigns normalized orders directly.
func NextOrder(existing []int) int {
	next := orderBase
	for _, v := range existing {
		if v >= next {
			next = v + 1
		}
	}
	return next
}
