package sched

import (
	"errors"
	"fmt"

	"github.com/jh125486/procsched/internal/process"
)

// Algorithm is the closed set of dispatch policies.
type Algorithm string

const (
	FCFS Algorithm = "fcfs"
	SJF  Algorithm = "sjf"
	RR   Algorithm = "rr"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrMissingQuantum   = errors.New("missing quantum")
	ErrBadQuantum       = errors.New("invalid quantum")
)

// ParseAlgorithm maps a selector from the input ("fcfs", "sjf", "rr").
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case FCFS, SJF, RR:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// DisplayName is the name printed in the "Using ..." header line.
func (a Algorithm) DisplayName() string {
	switch a {
	case FCFS:
		return "First-Come First-Served"
	case SJF:
		return "preemptive Shortest Job First"
	case RR:
		return "Round-Robin"
	default:
		return string(a)
	}
}

// NoProcess is the index a policy returns to leave the processor idle.
const NoProcess = -1

// View is what a policy sees when deciding the next tick.
type View struct {
	// Ready holds the waiting processes in queue order; the running process is
	// never in it.
	Ready []int
	// Running is NoProcess when the processor was idle or the previous
	// process just finished.
	Running int
	// Slice counts the ticks Running has had since it was last dispatched.
	Slice int

	reg *process.Registry
}

func (v View) Process(i int) process.Process { return v.reg.Process(i) }

func (v View) Remaining(i int) int { return v.reg.State(i).Remaining }

// Policy decides, at every tick, which process occupies the processor.
// Next returns the running process to continue it, another ready process to
// switch to, or NoProcess to idle.
type Policy interface {
	Algorithm() Algorithm
	Next(v View) int
}

// Expirer is implemented by policies that take the processor back once a
// slice is used up. The engine asks before admitting the tick's arrivals, so
// the expired process queues ahead of them.
type Expirer interface {
	Expired(v View) bool
}

// NewPolicy builds the policy for alg. quantum is only read for RR.
func NewPolicy(alg Algorithm, quantum int) (Policy, error) {
	switch alg {
	case FCFS:
		return FirstCome{}, nil
	case SJF:
		return ShortestRemaining{}, nil
	case RR:
		if quantum == 0 {
			return nil, ErrMissingQuantum
		}
		if quantum < 0 {
			return nil, fmt.Errorf("%w: %d", ErrBadQuantum, quantum)
		}
		return RoundRobin{Quantum: quantum}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// FirstCome is non-preemptive: the running process keeps the processor until
// it finishes, then the earliest arrival (by name on ties) goes next.
type FirstCome struct{}

func (FirstCome) Algorithm() Algorithm { return FCFS }

func (FirstCome) Next(v View) int {
	if v.Running != NoProcess {
		return v.Running
	}

	return best(v, func(int) int { return 0 })
}

// ShortestRemaining re-evaluates every tick and switches to a ready process
// only when its remaining burst is strictly shorter than the running one's.
type ShortestRemaining struct{}

func (ShortestRemaining) Algorithm() Algorithm { return SJF }

func (ShortestRemaining) Next(v View) int {
	next := best(v, v.Remaining)
	if v.Running == NoProcess {
		return next
	}
	if next == NoProcess || v.Remaining(v.Running) <= v.Remaining(next) {
		return v.Running
	}

	return next
}

// RoundRobin serves the ready queue in FIFO order, granting each dispatch at
// most Quantum ticks. An expired process goes to the tail of the queue, so
// when nobody else waits it is dispatched again for a fresh quantum.
type RoundRobin struct {
	Quantum int
}

func (RoundRobin) Algorithm() Algorithm { return RR }

// Expired reports whether the running process has used its whole quantum.
func (p RoundRobin) Expired(v View) bool {
	return v.Running != NoProcess && v.Slice >= p.Quantum
}

func (p RoundRobin) Next(v View) int {
	if v.Running != NoProcess && !p.Expired(v) {
		return v.Running
	}
	if len(v.Ready) > 0 {
		return v.Ready[0]
	}

	return v.Running
}

// best returns the ready process with the lowest (primary, arrival, name) key.
func best(v View, primary func(int) int) int {
	pick := NoProcess
	for _, i := range v.Ready {
		if pick == NoProcess || less(v, i, pick, primary) {
			pick = i
		}
	}

	return pick
}

func less(v View, a, b int, primary func(int) int) bool {
	if ka, kb := primary(a), primary(b); ka != kb {
		return ka < kb
	}
	pa, pb := v.Process(a), v.Process(b)
	if pa.Arrival != pb.Arrival {
		return pa.Arrival < pb.Arrival
	}

	return pa.Name < pb.Name
}
