// Package finder locates the largest files across one or more directory trees.
//
// Each root is walked by goroutines whose fan-out is capped by a shared ceiling:
// subdirectories beyond the ceiling are processed inline by the task that found them.
// Discovered paths stream over a single channel to the coordinator in Scan, which
// stats them and folds regular files into a fixed-capacity Store.
package finder
