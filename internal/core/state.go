package core

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Rorical/zoltar/internal/models"
)

// ConversationLog is the append-only record shown to the user. Only the
// service loop writes to it; readers get copies.
type ConversationLog struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewConversationLog() *ConversationLog {
	return &ConversationLog{
		entries: make([]models.Entry, 0),
	}
}

// Append adds an entry and returns its ID
func (cl *ConversationLog) Append(entry models.Entry) string {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	cl.entries = append(cl.entries, cloneEntry(entry))
	return entry.ID
}

// AddProgramMessage adds a banner line (welcome, key help)
func (cl *ConversationLog) AddProgramMessage(content string) {
	cl.Append(models.Entry{Type: models.Program, Content: content})
}

// Remove deletes a transient entry. Finalized entries are never removed.
func (cl *ConversationLog) Remove(id string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	i := cl.indexOf(id)
	if i < 0 || !cl.entries[i].Transient {
		return false
	}
	cl.entries = append(cl.entries[:i], cl.entries[i+1:]...)
	return true
}

// Replace swaps a transient entry wholesale, keeping its position.
func (cl *ConversationLog) Replace(id string, entry models.Entry) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	i := cl.indexOf(id)
	if i < 0 || !cl.entries[i].Transient {
		return false
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	cl.entries[i] = cloneEntry(entry)
	return true
}

// UpdateReveal sets the partial content of an entry still being revealed
func (cl *ConversationLog) UpdateReveal(id, partial string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	i := cl.indexOf(id)
	if i < 0 || !cl.entries[i].Revealing {
		return false
	}
	cl.entries[i].Content = partial
	return true
}

// Finalize writes the final content of a revealing entry and freezes it
func (cl *ConversationLog) Finalize(id, content string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	i := cl.indexOf(id)
	if i < 0 || !cl.entries[i].Revealing {
		return false
	}
	cl.entries[i].Content = content
	cl.entries[i].Revealing = false
	return true
}

func (cl *ConversationLog) Entries() []models.Entry {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	result := make([]models.Entry, len(cl.entries))
	for i, e := range cl.entries {
		result[i] = cloneEntry(e)
	}
	return result
}

func (cl *ConversationLog) Len() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.entries)
}

func (cl *ConversationLog) indexOf(id string) int {
	for i := range cl.entries {
		if cl.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneEntry(e models.Entry) models.Entry {
	if e.Sources != nil {
		e.Sources = append([]string(nil), e.Sources...)
	}
	return e
}
