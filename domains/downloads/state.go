package downloads

// State is the stage a Downloader is in
type State int32

const (
	StateIdle State = iota
	StateFetchingTree
	StateSelecting
	StateDownloading
	StateMerged
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateFetchingTree: "fetching_tree",
	StateSelecting:    "selecting",
	StateDownloading:  "downloading",
	StateMerged:       "merged",
	StateDone:         "done",
	StateFailed:       "failed",
}

// String returns the string representation of the state
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// IsTerminal returns true if no further transition follows
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
