// Package sched is the discrete-time scheduling engine. It drives a single
// processor tick by tick, consulting a Policy for who runs next, and records
// every arrival, dispatch, completion and idle tick in a Log.
package sched

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jh125486/procsched/internal/process"
)

// TimeSlice is one contiguous stretch of a process on the processor, from a
// dispatch until it finishes, is preempted or the run ends.
type TimeSlice struct {
	Name  string
	Start int
	Stop  int
}

// Result is everything a simulation produces.
type Result struct {
	Policy    Policy
	RunFor    int
	Registry  *process.Registry
	Log       Log
	Gantt     []TimeSlice
	IdleTicks int
}

type engine struct {
	reg    *process.Registry
	policy Policy

	ready   []int
	running int
	slice   int
	open    *TimeSlice

	log   Log
	gantt []TimeSlice
	idle  int
}

// Simulate runs procs under policy for ticks [0, runFor). Processes still
// holding work at runFor are left unfinished.
func Simulate(procs []process.Process, runFor int, policy Policy) *Result {
	e := &engine{
		reg:     process.NewRegistry(procs),
		policy:  policy,
		running: NoProcess,
	}
	for t := 0; t < runFor; t++ {
		e.tick(t)
	}
	e.closeSlice(runFor)
	logrus.Debugf("simulation over at tick %d: %d events, %d idle ticks", runFor, len(e.log), e.idle)

	return &Result{
		Policy:    policy,
		RunFor:    runFor,
		Registry:  e.reg,
		Log:       e.log,
		Gantt:     e.gantt,
		IdleTicks: e.idle,
	}
}

func (e *engine) view() View {
	return View{
		Ready:   e.ready,
		Running: e.running,
		Slice:   e.slice,
		reg:     e.reg,
	}
}

func (e *engine) tick(t int) {
	if ex, ok := e.policy.(Expirer); ok && ex.Expired(e.view()) {
		e.preempt(t)
	}
	e.admit(t)

	next := e.policy.Next(e.view())
	if next == NoProcess {
		e.preempt(t)
		e.record(Event{Tick: t, Kind: Idle})
		e.idle++
		return
	}
	if next != e.running {
		e.dispatch(next, t)
	}

	e.slice++
	if e.reg.Run(e.running, t) {
		e.record(Event{Tick: t + 1, Kind: Finished, Name: e.reg.Process(e.running).Name})
		e.closeSlice(t + 1)
		e.running = NoProcess
		e.slice = 0
	}
}

func (e *engine) record(ev Event) {
	e.log.add(ev)
	logrus.Debugf("[tick %03d] %s %s", ev.Tick, ev.Name, ev.Kind)
}

// admit traces this tick's arrivals in load order and queues them by name.
func (e *engine) admit(t int) {
	arrivals := e.reg.Arrivals(t)
	for _, i := range arrivals {
		e.record(Event{Tick: t, Kind: Arrived, Name: e.reg.Process(i).Name})
	}
	sort.SliceStable(arrivals, func(a, b int) bool {
		return e.reg.Process(arrivals[a]).Name < e.reg.Process(arrivals[b]).Name
	})
	e.ready = append(e.ready, arrivals...)
}

// preempt takes the running process off the processor and puts it at the
// tail of the ready queue.
func (e *engine) preempt(t int) {
	if e.running == NoProcess {
		return
	}
	logrus.Debugf("[tick %03d] preempting %s (remaining %d)", t, e.reg.Process(e.running).Name, e.reg.State(e.running).Remaining)
	e.ready = append(e.ready, e.running)
	e.closeSlice(t)
	e.running = NoProcess
	e.slice = 0
}

func (e *engine) dispatch(i, t int) {
	e.preempt(t)
	e.ready = remove(e.ready, i)
	e.running = i
	e.slice = 0
	e.reg.Dispatch(i, t)

	p, s := e.reg.Process(i), e.reg.State(i)
	e.record(Event{Tick: t, Kind: Selected, Name: p.Name, Remaining: s.Remaining})
	logrus.Debugf("[tick %03d] %s dispatched by %s with %d waiting", t, p.Name, e.policy.Algorithm(), len(e.ready))
	e.open = &TimeSlice{Name: p.Name, Start: t}
}

func (e *engine) closeSlice(t int) {
	if e.open == nil {
		return
	}
	e.open.Stop = t
	if e.open.Stop > e.open.Start {
		e.gantt = append(e.gantt, *e.open)
	}
	e.open = nil
}

func remove(queue []int, i int) []int {
	for k := range queue {
		if queue[k] == i {
			return append(queue[:k], queue[k+1:]...)
		}
	}

	return queue
}
