package models

type EntryType int

const (
	User EntryType = iota
	Oracle
	Status
	Citations
	Program
	Error
)

func (t EntryType) String() string {
	switch t {
	case User:
		return "user"
	case Oracle:
		return "oracle"
	case Status:
		return "status"
	case Citations:
		return "citations"
	case Program:
		return "program"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one line of the conversation log
type Entry struct {
	ID      string
	Type    EntryType
	Content string
	// Sources is only set on Citations entries
	Sources []string
	// Transient entries (the "thinking" line) may be removed or replaced
	Transient bool
	// Revealing is true while an Oracle entry is still being typed out
	Revealing bool
}

// Finalized reports whether the entry may no longer change
func (e Entry) Finalized() bool {
	return !e.Transient && !e.Revealing
}
