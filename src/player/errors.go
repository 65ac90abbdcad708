package player

import "fmt"

// OutOfRangeError is returned for reorder positions outside the playlist.
type OutOfRangeError struct {
	From, To, Len int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("move positions out of range: (%d -> %d) len=%d", e.From, e.To, e.Len)
}
