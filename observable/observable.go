// Package observable provides a publish-subscribe value cell: the
// explicit form of the Dynamic/Bond binding pattern, independent of any
// UI toolkit.
package observable

import "sync"

// Value holds a single value of type T and notifies subscribers on every
// Set. A subscriber added after a value was set receives that last value
// immediately. Safe for concurrent use.
type Value[T any] struct {
	mu          sync.Mutex
	value       T
	hasValue    bool
	subscribers map[int]func(T)
	nextID      int
	order       []int
}

func New[T any]() *Value[T] {
	return &Value[T]{subscribers: make(map[int]func(T))}
}

func NewWith[T any](initial T) *Value[T] {
	v := New[T]()
	v.value = initial
	v.hasValue = true
	return v
}

// Get returns the current value and whether one has been set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.hasValue
}

// Set stores value and notifies subscribers in subscription order.
// Notifications run outside the lock, so a subscriber may call back into
// the Value.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	v.hasValue = true
	callbacks := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		if fn, ok := v.subscribers[id]; ok {
			callbacks = append(callbacks, fn)
		}
	}
	v.mu.Unlock()

	for _, fn := range callbacks {
		fn(value)
	}
}

// Subscribe registers fn and returns a cancel function. If a value is
// already set, fn is called with it before Subscribe returns.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subscribers[id] = fn
	v.order = append(v.order, id)
	deliver := v.hasValue
	value := v.value
	v.mu.Unlock()

	if deliver {
		fn(value)
	}

	return func() {
		v.mu.Lock()
		delete(v.subscribers, id)
		v.mu.Unlock()
	}
}
