package batcher

import (
	"time"

	"github.com/google/uuid"
)

// completion is the single-use handle a submitter awaits. It is delivered
// exactly once with either a value or an error, never both.
type completion struct {
	value any
	err   error
}

// Slot is one in-flight submission.
type Slot struct {
	ID          uuid.UUID
	Args        map[string]any
	EnqueueTime time.Time

	result chan completion
}

func newSlot(args map[string]any) *Slot {
	return &Slot{
		ID:          uuid.New(),
		Args:        args,
		EnqueueTime: time.Now(),
		result:      make(chan completion, 1),
	}
}

// resolve delivers the terminal signal. Called at most once per slot by the
// batcher's dispatch step; a second call would block forever whenever the
// first value still sits unread in the one-slot buffer (e.g. after the
// submitter stopped waiting), and is therefore a programming error in this
// package, never something a caller can trigger.
func (s *Slot) resolve(value any, err error) {
	s.result <- completion{value: value, err: err}
}
