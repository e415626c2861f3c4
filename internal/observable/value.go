// Package observable holds a current value and fans changes out to subscribers.
package observable

import (
	"sort"
	"sync"
)

// Value is a mutex-guarded value with change subscribers. The zero Value is ready to use.
type Value[T any] struct {
	mu     sync.RWMutex
	cur    T
	nextID int
	subs   map[int]func(T)
}

func New[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set replaces the value and notifies subscribers in registration order.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.cur = next
	fns := v.snapshotSubs()
	v.mu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
}

// Subscribe registers fn for future changes and returns its cancel func.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.subs == nil {
		v.subs = make(map[int]func(T))
	}
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

func (v *Value[T]) snapshotSubs() []func(T) {
	if len(v.subs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(v.subs))
	for id := range v.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, v.subs[id])
	}
	return out
}
