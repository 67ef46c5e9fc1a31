// Package process holds the process registry: immutable process descriptors
// and the mutable runtime state the scheduling engine drives them through.
//
// Descriptors and runtime state live in two parallel slices joined by index,
// so the engine and its policies refer to processes by their registry index.
package process

import "sort"

// Unset marks a start or finish tick that has not happened yet.
const Unset = -1

type (
	// Process describes one job as it was loaded: its unique name, the tick it
	// arrives on and the total number of ticks of work it needs.
	Process struct {
		Name    string `yaml:"name"`
		Arrival int    `yaml:"arrival"`
		Burst   int    `yaml:"burst"`
	}
	// State is the runtime bookkeeping for one process.
	State struct {
		Remaining int
		Start     int
		Finish    int
	}
	// Stats are derived once a process has finished.
	Stats struct {
		Wait       int
		Turnaround int
		Response   int
	}
)

// Registry owns the descriptors and runtime state of every process in a run.
type Registry struct {
	procs  []Process
	states []State
}

// NewRegistry copies procs into a fresh registry with every process unstarted.
func NewRegistry(procs []Process) *Registry {
	r := &Registry{
		procs:  make([]Process, len(procs)),
		states: make([]State, len(procs)),
	}
	copy(r.procs, procs)
	for i := range r.procs {
		r.states[i] = State{
			Remaining: r.procs[i].Burst,
			Start:     Unset,
			Finish:    Unset,
		}
	}

	return r
}

func (r *Registry) Len() int { return len(r.procs) }

func (r *Registry) Process(i int) Process { return r.procs[i] }

func (r *Registry) State(i int) State { return r.states[i] }

// Finished reports whether process i has exhausted its burst.
func (r *Registry) Finished(i int) bool { return r.states[i].Finish != Unset }

// Arrivals returns the indices of processes arriving at tick t, in load order.
func (r *Registry) Arrivals(t int) []int {
	var idx []int
	for i := range r.procs {
		if r.procs[i].Arrival == t {
			idx = append(idx, i)
		}
	}

	return idx
}

// Dispatch records that process i occupies the processor from tick t.
// Only the first dispatch sets the start tick.
func (r *Registry) Dispatch(i, t int) {
	if r.states[i].Start == Unset {
		r.states[i].Start = t
	}
}

// Run charges process i with the tick of work done during tick t and reports
// whether that exhausted its burst. A finished process has finish tick t+1.
func (r *Registry) Run(i, t int) bool {
	s := &r.states[i]
	s.Remaining--
	if s.Remaining > 0 {
		return false
	}
	s.Finish = t + 1

	return true
}

// Stats returns the wait, turnaround and response of process i, and false if
// it has not finished.
func (r *Registry) Stats(i int) (Stats, bool) {
	if !r.Finished(i) {
		return Stats{}, false
	}
	p, s := r.procs[i], r.states[i]
	turnaround := s.Finish - p.Arrival

	return Stats{
		Wait:       turnaround - p.Burst,
		Turnaround: turnaround,
		Response:   s.Start - p.Arrival,
	}, true
}

// SortedByName returns every registry index ordered by process name.
func (r *Registry) SortedByName() []int {
	idx := make([]int, len(r.procs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.procs[idx[a]].Name < r.procs[idx[b]].Name
	})

	return idx
}
