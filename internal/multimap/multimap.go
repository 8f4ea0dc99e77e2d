// Package multimap provides a map from keys to ordered value lists.
package multimap

// List maps each key to the values put under it, in insertion order. It is
// not safe for concurrent use.
type List[K comparable, V any] struct {
	m map[K][]V
}

// New returns an empty multimap.
func New[K comparable, V any]() *List[K, V] {
	return &List[K, V]{m: make(map[K][]V)}
}

// Put appends v to the values of k.
func (l *List[K, V]) Put(k K, v V) {
	l.m[k] = append(l.m[k], v)
}

// Get returns the values of k. The slice must not be modified.
func (l *List[K, V]) Get(k K) []V {
	return l.m[k]
}

// Contains reports whether k has any value.
func (l *List[K, V]) Contains(k K) bool {
	return len(l.m[k]) > 0
}

// Take removes k and returns its values.
func (l *List[K, V]) Take(k K) []V {
	vs := l.m[k]
	delete(l.m, k)
	return vs
}

// Len returns the number of keys.
func (l *List[K, V]) Len() int { return len(l.m) }

// Size returns the number of values across all keys.
func (l *List[K, V]) Size() int {
	n := 0
	for _, vs := range l.m {
		n += len(vs)
	}
	return n
}

// Drain removes every key and returns the entries, keyed as before.
func (l *List[K, V]) Drain() map[K][]V {
	out := l.m
	l.m = make(map[K][]V)
	return out
}
