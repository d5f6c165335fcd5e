package models

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Entries       []Entry // Conversation log as last pushed by core
	State         State   // Interaction state from core
	Mode          Mode    // Mode used for the next question
	Frame         int     // Current oracle sprite frame
	Status        string  // Status bar text
	BackendStatus string  // Last health check result
	LoadingDots   int     // Animation counter for loading dots
	Width         int     // Terminal width
	Height        int     // Terminal height
}

// Thinking reports whether a request is in flight
func (m AppModel) Thinking() bool {
	return m.State == Pending
}
