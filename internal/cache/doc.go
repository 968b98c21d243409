// Package cache provides the recency ordering behind tile eviction.
//
// [ReleaseOrder] tracks swappable tiles in the order their last reader let
// go. The tile manager evicts from the oldest end and removes a tile from the
// set the moment it gains a reader again.
package cache
