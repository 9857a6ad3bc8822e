package seam

import "errors"

var (
	// ErrDestroyed is returned by operations on a registry or engine that
	// has been torn down.
	ErrDestroyed = errors.New("seam: destroyed")

	// ErrUnknownKind is returned when a transition kind has no factory.
	ErrUnknownKind = errors.New("seam: unknown transition kind")

	// ErrAlreadyFinished is returned when a completion arrives for a
	// transition whose result was already finished.
	ErrAlreadyFinished = errors.New("seam: result already finished")

	// ErrReleasedLeash is returned by compositors asked to update a leash
	// that has already been released.
	ErrReleasedLeash = errors.New("seam: leash released")
)
