// Package conversation holds the ordered message log of one chat session.
package conversation

import (
	"github.com/cloudwego/eino/schema"
)

// State is an append-only message log. It is not safe for concurrent use;
// the owning session serialises access.
type State struct {
	messages []*schema.Message
}

func New() *State {
	return &State{}
}

func (s *State) Append(msgs ...*schema.Message) {
	s.messages = append(s.messages, msgs...)
}

// Messages returns a copy of the log in insertion order.
func (s *State) Messages() []*schema.Message {
	out := make([]*schema.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *State) Len() int {
	return len(s.messages)
}

// Checkpoint marks the current end of the log for a later Rollback.
type Checkpoint int

func (s *State) Checkpoint() Checkpoint {
	return Checkpoint(len(s.messages))
}

// Rollback drops every message appended after cp.
func (s *State) Rollback(cp Checkpoint) {
	n := int(cp)
	if n < 0 {
		n = 0
	}
	if n >= len(s.messages) {
		return
	}
	for i := n; i < len(s.messages); i++ {
		s.messages[i] = nil
	}
	s.messages = s.messages[:n]
}

func (s *State) Reset() {
	s.messages = nil
}
