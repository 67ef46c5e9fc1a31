package sched

// EventKind identifies what happened at a tick.
type EventKind int

const (
	Arrived EventKind = iota
	Selected
	Finished
	Idle
)

func (k EventKind) String() string {
	switch k {
	case Arrived:
		return "arrived"
	case Selected:
		return "selected"
	case Finished:
		return "finished"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Event is one trace entry. Remaining is only meaningful for Selected events
// and Name is empty for Idle events.
type Event struct {
	Tick      int
	Kind      EventKind
	Name      string
	Remaining int
}

// Log is the append-only, chronologically ordered trace of a simulation.
type Log []Event

func (l *Log) add(e Event) { *l = append(*l, e) }
