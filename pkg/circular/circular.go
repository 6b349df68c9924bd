package circular

import (
	"fmt"
	"sync"
)

/*
 * Data structure implementing a circular buffer.
 *
 * The buffer is safe for one writer (e.g. an audio callback) and any number
 * of readers.
 */
type Buffer[T any] struct {
	mutex   sync.RWMutex
	values  []T
	pointer int
	written int
}

/*
 * Add elements to the circular buffer, potentially overwriting unread elements.
 *
 * Semantics: First write to buffer, then increment pointer.
 *
 * Pointer points to "oldest" element, or next element to be overwritten.
 */
func (b *Buffer[T]) Enqueue(elems ...T) {
	numElems := len(elems)
	n := len(b.values)

	if n == 0 || numElems == 0 {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	values := b.values

	/*
	 * If there are more elements than fit into the buffer, simply copy
	 * the tail of the element array into the buffer, otherwise perform
	 * circular write operation.
	 */
	if numElems >= n {
		idx := numElems - n
		copy(values, elems[idx:numElems])
		b.pointer = 0
	} else {
		ptr := b.pointer
		ptrInc := ptr + numElems

		/*
		 * Check whether the write operation stays within the array bounds.
		 */
		if ptrInc < n {
			copy(values[ptr:ptrInc], elems)
			b.pointer = ptrInc
		} else {
			head := ptrInc - n
			tail := n - ptr
			copy(values[ptr:n], elems[0:tail])
			copy(values[0:head], elems[tail:numElems])
			b.pointer = head
		}

	}

	b.written += numElems

	if b.written > n {
		b.written = n
	}

}

/*
 * Returns the size of the buffer.
 */
func (b *Buffer[T]) Length() int {
	return len(b.values)
}

/*
 * Returns true once the buffer has been completely filled at least once.
 */
func (b *Buffer[T]) Full() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.values) > 0 && b.written >= len(b.values)
}

/*
 * Retrieve all elements from the circular buffer, oldest first.
 */
func (b *Buffer[T]) Retrieve(buf []T) error {
	n := len(b.values)
	m := len(buf)

	/*
	 * Ensure the target buffer is of equal size.
	 */
	if n != m {
		return fmt.Errorf("target buffer must be of the same size as source buffer: want %d, got %d", n, m)
	}

	b.mutex.RLock()
	ptr := b.pointer
	tailSize := n - ptr
	copy(buf[0:tailSize], b.values[ptr:n])
	copy(buf[tailSize:n], b.values[0:ptr])
	b.mutex.RUnlock()
	return nil
}

/*
 * Discard the buffer contents.
 */
func (b *Buffer[T]) Reset() {
	var zero T
	b.mutex.Lock()

	for i := range b.values {
		b.values[i] = zero
	}

	b.pointer = 0
	b.written = 0
	b.mutex.Unlock()
}

/*
 * Creates a circular buffer of a certain size.
 */
func CreateBuffer[T any](size int) *Buffer[T] {
	return &Buffer[T]{
		values: make([]T, size),
	}
}
