package entities

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ChangeEvent announces a write to a protected reading. Only the public
// projection travels with it; Reading is nil for deletions.
type ChangeEvent struct {
	Event   string      `json:"event"`
	Kind    string      `json:"kind"`
	ID      uint64      `json:"id"`
	Reading *PublicView `json:"reading,omitempty"`
}
