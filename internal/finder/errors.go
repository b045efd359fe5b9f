package finder

import "errors"

var (
	// ErrNoRoots is returned when volume enumeration leaves nothing to scan.
	ErrNoRoots = errors.New("no scan roots")
	// ErrNoReadableRoots is returned when every root failed to list.
	ErrNoReadableRoots = errors.New("no readable scan roots")
	// ErrInvalidPath is returned when an explicit path is missing or not a directory.
	ErrInvalidPath = errors.New("invalid path")
	// ErrReceiverGone ends a walker task whose coordinator stopped receiving.
	ErrReceiverGone = errors.New("path receiver is gone")
)
