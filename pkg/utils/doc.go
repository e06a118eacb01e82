// Package utils holds small helpers shared by the store and service layers:
// vector similarity, edit-distance title similarity and panic recovery for
// goroutines.
package utils
