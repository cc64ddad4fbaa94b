package molgraph

// Encode returns the one-hot vector of value over list.  An unlisted value
// sets the overflow bucket of an open list and nothing on a closed one.
func Encode[T comparable](value T, list CategoryList[T]) []int {
	out := make([]int, list.Len())
	if i, ok := list.Slot(value); ok {
		out[i] = 1
	}
	return out
}

// EncodeInto writes the one-hot of value into dst[:list.Len()] and returns
// the number of entries written.  dst must have room for list.Len() values.
func EncodeInto[T comparable](dst []float32, value T, list CategoryList[T]) int {
	n := list.Len()
	seg := dst[:n]
	for i := range seg {
		seg[i] = 0
	}
	if i, ok := list.Slot(value); ok {
		seg[i] = 1
	}
	return n
}

func boolFeature(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
