package finding

import "github.com/zero-day-ai/riskvault/event"

// UnknownUser is the username component for actors keyed by user when the
// record carries no username.
const UnknownUser = "<unknown>"

// ActorKey identifies who a finding is attributed to.
type ActorKey struct {
	// SourceIP is the source address, or event.UnknownSource.
	SourceIP string `json:"source_ip" yaml:"source_ip"`

	// Username is set only when the detector groups by user.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
}

// SourceActor returns the source-only actor for a record.
func SourceActor(r event.LogRecord) ActorKey {
	return ActorKey{SourceIP: r.SourceKey()}
}

// UserActor returns the source+username actor for a record.
func UserActor(r event.LogRecord) ActorKey {
	user := r.Username
	if user == "" {
		user = UnknownUser
	}
	return ActorKey{SourceIP: r.SourceKey(), Username: user}
}

// String renders the actor as "source" or "source/username".
func (a ActorKey) String() string {
	if a.Username == "" {
		return a.SourceIP
	}
	return a.SourceIP + "/" + a.Username
}

// IsUnknownSource reports whether the actor has no source address.
func (a ActorKey) IsUnknownSource() bool {
	return a.SourceIP == event.UnknownSource
}
