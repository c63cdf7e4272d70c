package viewmodel

// Envelope is the wire frame for every pushed event and command reply.
type Envelope struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Data   any    `json:"data,omitempty"`
}

// MemberRow is one line of the member list.
type MemberRow struct {
	Name      string
	Status    string
	IsHost    bool
	IsCurrent bool
	IsSelf    bool
}

// PromptRow is one offered prompt.
type PromptRow struct {
	Category string
	Content  string
	Chosen   bool
}

// RoomPage holds data for the room status fragment.
type RoomPage struct {
	RoomID        string
	MemberID      string
	IsHost        bool
	Members       []MemberRow
	State         string
	CurrentPlayer string
	Remaining     int
	Total         int
	Drawn         int
	Prompts       []PromptRow
	TimerPending  bool
}
