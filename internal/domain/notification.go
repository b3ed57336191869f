package domain

import "github.com/google/uuid"

// RecordMutation applies the unread transition for a mutation made by key.
// Console-owned tickets never become unread.
func (t *Ticket) RecordMutation(key uuid.UUID) {
	if t.ActorKey == uuid.Nil {
		t.UnreadByCreator = false
		return
	}
	t.UnreadByCreator = !t.MatchesActor(key)
}

// RecordView clears the unread flag when the creator views the ticket.
// It reports whether the flag changed and therefore needs persisting.
func (t *Ticket) RecordView(key uuid.UUID) bool {
	if !t.UnreadByCreator || !t.MatchesActor(key) {
		return false
	}
	t.UnreadByCreator = false
	return true
}
