package memory

import "time"

// Type classifies what a memory record captures.
type Type string

const (
	TypeInsight     Type = "insight"
	TypeStance      Type = "stance"
	TypeInteraction Type = "interaction"
	TypeLearning    Type = "learning"
)

// Record is one stored behavioral memory.
type Record struct {
	ID             int64
	PersonaID      string
	Type           Type
	Topic          string
	Content        string
	Importance     int
	ChannelSlug    string
	RelatedPersona string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Consolidated   bool
}

// Input is the caller-facing shape of a record to store.
type Input struct {
	PersonaID      string
	Type           Type
	Topic          string
	Content        string
	Importance     int
	ChannelSlug    string
	RelatedPersona string
}
