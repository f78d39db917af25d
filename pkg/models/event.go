package models

// ChangeEvent describes one successful mutation. It is ephemeral: built
// after the storage write commits, broadcast to the affected namespace's
// room, never persisted.
type ChangeEvent struct {
	Method     string `json:"method"`
	Token      string `json:"token,omitempty"`
	Collection string `json:"collection"`
	Data       any    `json:"data"`
}
