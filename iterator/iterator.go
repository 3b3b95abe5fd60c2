package iterator

import "iter"

// Iterator represents a forward cursor over a sorted key-value dataset.
// The iterator maintains a current position and moves through the dataset
// in ascending key order.
//
// Usage:
//
//	defer iter.Close()
//	for iter.SeekFirst(); iter.Valid(); iter.Next() {
//	    key, val := iter.Key(), iter.Val()
//	    // process key, val
//	}
//	if err := iter.Error(); err != nil {
//	    // handle error
//	}
type Iterator interface {
	// Valid returns true if positioned at a valid key-value pair.
	// Returns false when not positioned; check Error() to distinguish the cause.
	Valid() bool

	// Error returns any error that occurred during operations.
	// Returns nil when not positioned due to normal conditions (initial state,
	// end reached, empty dataset). Returns non-nil for internal errors
	// (I/O failures, a closed store, a canceled context).
	Error() error

	// Key returns the key at the current iterator position.
	// The returned slice is valid only until the next iterator operation.
	// Behavior is undefined if Valid() returns false.
	Key() []byte

	// Val returns the value at the current iterator position.
	// The returned slice is valid only until the next iterator operation.
	// Behavior is undefined if Valid() returns false.
	Val() []byte

	// Next advances the iterator to the next key-value pair in ascending order.
	// Returns true if the advance was successful and the iterator is positioned
	// at a valid entry. Returns false if the iterator has reached the end or
	// encountered an error. Use Error() to distinguish between these cases.
	Next() bool

	// SeekFirst positions the iterator at the first (smallest) key in the dataset.
	// Returns true if successful and the iterator is positioned at a valid entry.
	// Returns false if the dataset is empty or an error occurred.
	SeekFirst() bool

	// Seek positions the iterator at the first key that is greater than or equal
	// to the given key. Returns true if positioned at a valid entry,
	// false otherwise. Use Error() to check for errors.
	Seek(key []byte) bool

	// Close releases the iterator. It is not usable afterwards.
	Close()
}

// All ranges over it from its first key. The iterator is closed when the
// range ends; check Error() afterwards.
func All(it Iterator) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		defer it.Close()
		for it.SeekFirst(); it.Valid(); it.Next() {
			if !yield(it.Key(), it.Val()) {
				return
			}
		}
	}
}

// From ranges over it from the first key >= start.
func From(it Iterator, start []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		defer it.Close()
		for it.Seek(start); it.Valid(); it.Next() {
			if !yield(it.Key(), it.Val()) {
				return
			}
		}
	}
}
