package domain

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source records where a turn came from.
type Source string

const (
	SourceHistory     Source = "history"
	SourceLive        Source = "live"
	SourceWelcome     Source = "welcome"
	SourcePlaceholder Source = "placeholder"
)

// Turn is one message or reply. Turns are values; a Transcript never hands
// out references to its own storage.
type Turn struct {
	Role     Role   `json:"role"`
	Text     string `json:"text"`
	Sequence int    `json:"sequence"`
	Source   Source `json:"source"`
}

// Exchange is one stored (message, response) pair.
type Exchange struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// Transcript is the ordered turn sequence for one identity.
// The zero value is an empty transcript ready to use.
type Transcript struct {
	turns []Turn
}

// NewTranscript expands exchanges into alternating user/assistant turns in
// the given order.
func NewTranscript(exchanges []Exchange) *Transcript {
	t := &Transcript{turns: make([]Turn, 0, 2*len(exchanges))}
	for _, ex := range exchanges {
		t.Append(RoleUser, ex.Message, SourceHistory)
		t.Append(RoleAssistant, ex.Response, SourceHistory)
	}
	return t
}

// Append adds a turn at the end and returns it with its assigned sequence.
func (t *Transcript) Append(role Role, text string, source Source) Turn {
	turn := Turn{
		Role:     role,
		Text:     text,
		Sequence: len(t.turns),
		Source:   source,
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Reset replaces the whole transcript with the turns of other.
func (t *Transcript) Reset(other *Transcript) {
	if other == nil {
		t.turns = nil
		return
	}
	t.turns = other.Turns()
	for i := range t.turns {
		t.turns[i].Sequence = i
	}
}

// Turns returns a copy of the turns in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Empty reports whether the transcript has no turns.
func (t *Transcript) Empty() bool {
	return len(t.turns) == 0
}

// Last returns the final turn, if any.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Alternates reports whether the history-sourced turns run strictly
// user, assistant, user, … starting with user.
func (t *Transcript) Alternates() bool {
	i := 0
	for _, turn := range t.turns {
		if turn.Source != SourceHistory {
			continue
		}
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if turn.Role != want {
			return false
		}
		i++
	}
	return i%2 == 0
}

// Count returns the number of turns from the given source.
func (t *Transcript) Count(source Source) int {
	n := 0
	for _, turn := range t.turns {
		if turn.Source == source {
			n++
		}
	}
	return n
}
