package lookup

// State is the stage of a session's most recent lookup.
type State int

const (
	Idle State = iota
	Normalizing
	Searching
	Ranking
	Delivered
	Superseded
)

var stateNames = [...]string{"idle", "normalizing", "searching", "ranking", "delivered", "superseded"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
