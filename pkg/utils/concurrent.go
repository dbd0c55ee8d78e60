package utils

// Batch splits items into consecutive chunks of at most size elements.
// The chunks share the backing array of items.
func Batch[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
