package events

const (
	MatchSavedTopic       = "MatchSavedEvent"
	SourceDiscoveredTopic = "SourceDiscoveredEvent"
)

type MatchSaved struct {
	MatchID    uint
	URL        string
	Title      string
	Company    string
	Location   string
	MatchScore int
	Summary    string
}

type SourceDiscovered struct {
	SourceID   uint
	Name       string
	URL        string
	SourceType string
	Enabled    bool
	Reason     string
}
