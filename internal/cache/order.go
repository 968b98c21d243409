package cache

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// ReleaseOrder is an insertion-ordered set that yields its least recently
// pushed key first. It is not safe for concurrent use.
type ReleaseOrder[K comparable] struct {
	lru *simplelru.LRU[K, struct{}]
}

// NewReleaseOrder returns an empty set.
func NewReleaseOrder[K comparable]() *ReleaseOrder[K] {
	// Capacity is never reached; entries leave only through Remove/PopOldest.
	lru, err := simplelru.NewLRU[K, struct{}](math.MaxInt, nil)
	if err != nil {
		panic(err)
	}
	return &ReleaseOrder[K]{lru: lru}
}

// PushBack makes k the most recent key, inserting it if absent.
func (o *ReleaseOrder[K]) PushBack(k K) {
	if o.lru.Contains(k) {
		o.lru.Get(k)
		return
	}
	o.lru.Add(k, struct{}{})
}

// Remove deletes k and reports whether it was present.
func (o *ReleaseOrder[K]) Remove(k K) bool {
	return o.lru.Remove(k)
}

// Contains reports whether k is in the set without touching its position.
func (o *ReleaseOrder[K]) Contains(k K) bool {
	return o.lru.Contains(k)
}

// PopOldest removes and returns the least recently pushed key.
func (o *ReleaseOrder[K]) PopOldest() (K, bool) {
	k, _, ok := o.lru.RemoveOldest()
	return k, ok
}

// Len returns the number of keys.
func (o *ReleaseOrder[K]) Len() int {
	return o.lru.Len()
}

// Clear removes every key.
func (o *ReleaseOrder[K]) Clear() {
	o.lru.Purge()
}
