package gridfinity

import (
	"errors"
	"fmt"
)

// Placement errors. Detailed errors returned by the store wrap one of these.
var (
	ErrOutOfBounds   = errors.New("placement is out of bounds")
	ErrOverlap       = errors.New("placement overlaps another placement")
	ErrDuplicateItem = errors.New("item is already placed in this container")
	ErrNotFound      = errors.New("placement not found")
	ErrInvalidSize   = errors.New("size must be at least 1x1")
	ErrCommitFailed  = errors.New("commit failed")
)

// Error codes carried in HTTP error bodies.
const (
	CodeOutOfBounds   = "out_of_bounds"
	CodeOverlap       = "overlap"
	CodeDuplicateItem = "duplicate_item"
	CodeNotFound      = "not_found"
	CodeInvalidSize   = "invalid_size"
	CodeInternal      = "internal"
)

// ErrorCode returns the wire code for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrOverlap):
		return CodeOverlap
	case errors.Is(err, ErrOutOfBounds):
		return CodeOutOfBounds
	case errors.Is(err, ErrDuplicateItem):
		return CodeDuplicateItem
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidSize):
		return CodeInvalidSize
	default:
		return CodeInternal
	}
}

// ErrorFromCode maps a wire code back to its sentinel. Unknown codes map to ErrCommitFailed.
func ErrorFromCode(code string) error {
	switch code {
	case CodeOverlap:
		return ErrOverlap
	case CodeOutOfBounds:
		return ErrOutOfBounds
	case CodeDuplicateItem:
		return ErrDuplicateItem
	case CodeNotFound:
		return ErrNotFound
	case CodeInvalidSize:
		return ErrInvalidSize
	default:
		return ErrCommitFailed
	}
}

// Message returns a human-readable explanation for a rejected mutation.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOverlap):
		return "That spot would overlap another bin. Move it somewhere free."
	case errors.Is(err, ErrOutOfBounds):
		return "That bin does not fit inside the container there. Pick a smaller size or another spot."
	case errors.Is(err, ErrDuplicateItem):
		return "This item is already placed in this container. Remove the existing placement first."
	case errors.Is(err, ErrNotFound):
		return "That placement no longer exists. The layout has been refreshed."
	case errors.Is(err, ErrInvalidSize):
		return "Width and depth must both be at least 1."
	default:
		return "Could not reach the server. Please try again."
	}
}

func outOfBounds(r Rect, g Grid) error {
	return fmt.Errorf("%w: %dx%d at (%d,%d) exceeds %dx%d grid",
		ErrOutOfBounds, r.Width, r.Depth, r.X, r.Y, g.Columns, g.Rows)
}

func overlapWith(r Rect, other Placement) error {
	return fmt.Errorf("%w: (%d,%d) %dx%d intersects placement %s",
		ErrOverlap, r.X, r.Y, r.Width, r.Depth, other.ID)
}
