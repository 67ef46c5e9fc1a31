package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jh125486/procsched/internal/process"
)

func mustPolicy(t *testing.T, alg Algorithm, quantum int) Policy {
	t.Helper()
	p, err := NewPolicy(alg, quantum)
	require.NoError(t, err)
	return p
}

func stats(t *testing.T, res *Result, name string) process.Stats {
	t.Helper()
	for i := 0; i < res.Registry.Len(); i++ {
		if res.Registry.Process(i).Name == name {
			st, ok := res.Registry.Stats(i)
			require.True(t, ok, "%s did not finish", name)
			return st
		}
	}
	t.Fatalf("no process %s", name)
	return process.Stats{}
}

func eventsOf(log Log, kind EventKind) []Event {
	var out []Event
	for _, e := range log {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func selectedNames(log Log) []string {
	var names []string
	for _, e := range eventsOf(log, Selected) {
		names = append(names, e.Name)
	}
	return names
}

func TestSimulate_FCFS(t *testing.T) {
	procs := []process.Process{
		{Name: "P1", Arrival: 0, Burst: 5},
		{Name: "P2", Arrival: 1, Burst: 3},
	}
	res := Simulate(procs, 10, mustPolicy(t, FCFS, 0))

	want := Log{
		{Tick: 0, Kind: Arrived, Name: "P1"},
		{Tick: 0, Kind: Selected, Name: "P1", Remaining: 5},
		{Tick: 1, Kind: Arrived, Name: "P2"},
		{Tick: 5, Kind: Finished, Name: "P1"},
		{Tick: 5, Kind: Selected, Name: "P2", Remaining: 3},
		{Tick: 8, Kind: Finished, Name: "P2"},
		{Tick: 8, Kind: Idle},
		{Tick: 9, Kind: Idle},
	}
	assert.Equal(t, want, res.Log)
	assert.Equal(t, process.Stats{Wait: 0, Turnaround: 5, Response: 0}, stats(t, res, "P1"))
	assert.Equal(t, process.Stats{Wait: 4, Turnaround: 7, Response: 4}, stats(t, res, "P2"))
	assert.Equal(t, []TimeSlice{{"P1", 0, 5}, {"P2", 5, 8}}, res.Gantt)
	assert.Equal(t, 2, res.IdleTicks)
}

func TestSimulate_RoundRobin(t *testing.T) {
	procs := []process.Process{
		{Name: "P1", Arrival: 0, Burst: 5},
		{Name: "P2", Arrival: 1, Burst: 3},
	}
	res := Simulate(procs, 10, mustPolicy(t, RR, 2))

	var order []TimeSlice
	for _, e := range eventsOf(res.Log, Selected) {
		order = append(order, TimeSlice{Name: e.Name, Start: e.Tick})
	}
	assert.Equal(t, []TimeSlice{{"P1", 0, 0}, {"P2", 2, 0}, {"P1", 4, 0}, {"P2", 6, 0}, {"P1", 7, 0}}, order)
	assert.Equal(t, process.Stats{Wait: 3, Turnaround: 8, Response: 0}, stats(t, res, "P1"))
	assert.Equal(t, process.Stats{Wait: 3, Turnaround: 6, Response: 1}, stats(t, res, "P2"))
}

func TestSimulate_RoundRobinBoundaryArrivalQueuesBehindExpired(t *testing.T) {
	// B arrives mid-quantum and queues ahead of A; C arrives on the tick A's
	// quantum expires and queues behind it.
	procs := []process.Process{
		{Name: "A", Arrival: 0, Burst: 4},
		{Name: "B", Arrival: 1, Burst: 1},
		{Name: "C", Arrival: 2, Burst: 1},
	}
	res := Simulate(procs, 8, mustPolicy(t, RR, 2))

	assert.Equal(t, []string{"A", "B", "A", "C"}, selectedNames(res.Log))
}

func TestSimulate_RoundRobinExpiredProcessKeepsProcessorOverBoundaryArrival(t *testing.T) {
	procs := []process.Process{
		{Name: "P1", Arrival: 0, Burst: 4},
		{Name: "P2", Arrival: 2, Burst: 2},
	}
	res := Simulate(procs, 8, mustPolicy(t, RR, 2))

	want := Log{
		{Tick: 0, Kind: Arrived, Name: "P1"},
		{Tick: 0, Kind: Selected, Name: "P1", Remaining: 4},
		{Tick: 2, Kind: Arrived, Name: "P2"},
		{Tick: 2, Kind: Selected, Name: "P1", Remaining: 2},
		{Tick: 4, Kind: Finished, Name: "P1"},
		{Tick: 4, Kind: Selected, Name: "P2", Remaining: 2},
		{Tick: 6, Kind: Finished, Name: "P2"},
		{Tick: 6, Kind: Idle},
		{Tick: 7, Kind: Idle},
	}
	assert.Equal(t, want, res.Log)
	assert.Equal(t, []TimeSlice{{"P1", 0, 2}, {"P1", 2, 4}, {"P2", 4, 6}}, res.Gantt)
	assert.Equal(t, process.Stats{Wait: 2, Turnaround: 4, Response: 2}, stats(t, res, "P2"))
}

func TestSimulate_RoundRobinRenewsLoneProcess(t *testing.T) {
	res := Simulate([]process.Process{{Name: "A", Arrival: 0, Burst: 5}}, 6, mustPolicy(t, RR, 2))

	sel := eventsOf(res.Log, Selected)
	require.Len(t, sel, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{sel[0].Tick, sel[1].Tick, sel[2].Tick})
	assert.Equal(t, []int{5, 3, 1}, []int{sel[0].Remaining, sel[1].Remaining, sel[2].Remaining})
	assert.Equal(t, process.Stats{Wait: 0, Turnaround: 5, Response: 0}, stats(t, res, "A"))
}

func TestSimulate_SJFEqualRemainingDoesNotSwitch(t *testing.T) {
	procs := []process.Process{
		{Name: "P1", Arrival: 0, Burst: 4},
		{Name: "P2", Arrival: 2, Burst: 2},
	}
	res := Simulate(procs, 8, mustPolicy(t, SJF, 0))

	want := Log{
		{Tick: 0, Kind: Arrived, Name: "P1"},
		{Tick: 0, Kind: Selected, Name: "P1", Remaining: 4},
		{Tick: 2, Kind: Arrived, Name: "P2"},
		{Tick: 4, Kind: Finished, Name: "P1"},
		{Tick: 4, Kind: Selected, Name: "P2", Remaining: 2},
		{Tick: 6, Kind: Finished, Name: "P2"},
		{Tick: 6, Kind: Idle},
		{Tick: 7, Kind: Idle},
	}
	assert.Equal(t, want, res.Log)
}

func TestSimulate_SJFPreemptsOnShorterArrival(t *testing.T) {
	procs := []process.Process{
		{Name: "P1", Arrival: 0, Burst: 4},
		{Name: "P2", Arrival: 1, Burst: 1},
	}
	res := Simulate(procs, 6, mustPolicy(t, SJF, 0))

	assert.Equal(t, []TimeSlice{{"P1", 0, 1}, {"P2", 1, 2}, {"P1", 2, 5}}, res.Gantt)
	assert.Equal(t, process.Stats{Wait: 1, Turnaround: 5, Response: 0}, stats(t, res, "P1"))
	assert.Equal(t, process.Stats{Wait: 0, Turnaround: 1, Response: 0}, stats(t, res, "P2"))
	sel := eventsOf(res.Log, Selected)
	require.Len(t, sel, 3)
	assert.Equal(t, 3, sel[2].Remaining, "reselection shows the remaining burst")
}

func TestSimulate_Unfinished(t *testing.T) {
	procs := []process.Process{
		{Name: "long", Arrival: 0, Burst: 10},
		{Name: "never", Arrival: 20, Burst: 1},
	}
	res := Simulate(procs, 4, mustPolicy(t, FCFS, 0))

	assert.Empty(t, eventsOf(res.Log, Finished))
	assert.Equal(t, 6, res.Registry.State(0).Remaining)
	for i := 0; i < res.Registry.Len(); i++ {
		_, ok := res.Registry.Stats(i)
		assert.False(t, ok)
	}
	assert.Equal(t, []TimeSlice{{"long", 0, 4}}, res.Gantt, "open slice is closed at the run length")
}

func TestSimulate_SimultaneousArrivals(t *testing.T) {
	// Trace lines follow load order, dispatch follows name order.
	procs := []process.Process{
		{Name: "B", Arrival: 0, Burst: 1},
		{Name: "A", Arrival: 0, Burst: 1},
	}
	for _, alg := range []Algorithm{FCFS, SJF, RR} {
		t.Run(string(alg), func(t *testing.T) {
			res := Simulate(procs, 3, mustPolicy(t, alg, 1))
			arrived := eventsOf(res.Log, Arrived)
			require.Len(t, arrived, 2)
			assert.Equal(t, "B", arrived[0].Name)
			assert.Equal(t, "A", arrived[1].Name)
			assert.Equal(t, "A", eventsOf(res.Log, Selected)[0].Name)
		})
	}
}

var propertyCases = []struct {
	name   string
	runFor int
	procs  []process.Process
}{
	{"staggered", 40, []process.Process{
		{Name: "A", Arrival: 0, Burst: 8},
		{Name: "B", Arrival: 1, Burst: 4},
		{Name: "C", Arrival: 2, Burst: 9},
		{Name: "D", Arrival: 3, Burst: 5},
		{Name: "E", Arrival: 12, Burst: 1},
	}},
	{"gaps", 30, []process.Process{
		{Name: "x", Arrival: 5, Burst: 3},
		{Name: "y", Arrival: 5, Burst: 3},
		{Name: "z", Arrival: 20, Burst: 2},
	}},
	{"truncated", 10, []process.Process{
		{Name: "p1", Arrival: 0, Burst: 6},
		{Name: "p2", Arrival: 1, Burst: 2},
		{Name: "p3", Arrival: 2, Burst: 7},
		{Name: "p4", Arrival: 4, Burst: 3},
	}},
}

func eachPolicy(t *testing.T, fn func(t *testing.T, res *Result, policy Policy)) {
	for _, tc := range propertyCases {
		for _, p := range []Policy{FirstCome{}, ShortestRemaining{}, RoundRobin{Quantum: 1}, RoundRobin{Quantum: 3}} {
			name := tc.name + "/" + string(p.Algorithm())
			if rr, ok := p.(RoundRobin); ok {
				name += "/q" + string(rune('0'+rr.Quantum))
			}
			t.Run(name, func(t *testing.T) {
				fn(t, Simulate(tc.procs, tc.runFor, p), p)
			})
		}
	}
}

func TestSimulate_StatsInvariants(t *testing.T) {
	eachPolicy(t, func(t *testing.T, res *Result, _ Policy) {
		for i := 0; i < res.Registry.Len(); i++ {
			st, ok := res.Registry.Stats(i)
			if !ok {
				continue
			}
			assert.GreaterOrEqual(t, st.Response, 0)
			assert.GreaterOrEqual(t, st.Wait, 0)
			assert.Equal(t, st.Turnaround, st.Wait+res.Registry.Process(i).Burst)
			assert.Equal(t, 0, res.Registry.State(i).Remaining)
		}
	})
}

func TestSimulate_ProcessorAccountedEveryTick(t *testing.T) {
	eachPolicy(t, func(t *testing.T, res *Result, _ Policy) {
		busy := make([]int, res.RunFor)
		for _, s := range res.Gantt {
			for tick := s.Start; tick < s.Stop; tick++ {
				busy[tick]++
			}
		}
		for _, e := range eventsOf(res.Log, Idle) {
			busy[e.Tick]++
		}
		for tick, n := range busy {
			assert.Equal(t, 1, n, "tick %d", tick)
		}
		assert.Len(t, eventsOf(res.Log, Idle), res.IdleTicks)
	})
}

func TestSimulate_PolicyProperties(t *testing.T) {
	eachPolicy(t, func(t *testing.T, res *Result, policy Policy) {
		switch p := policy.(type) {
		case FirstCome:
			seen := make(map[string]bool)
			for _, e := range eventsOf(res.Log, Selected) {
				assert.False(t, seen[e.Name], "%s selected twice", e.Name)
				seen[e.Name] = true
			}
		case RoundRobin:
			for _, s := range res.Gantt {
				assert.LessOrEqual(t, s.Stop-s.Start, p.Quantum, "%s ran %d-%d", s.Name, s.Start, s.Stop)
			}
		case ShortestRemaining:
			assertShortestRunning(t, res)
		}
	})
}

// assertShortestRunning replays the Gantt chart and checks that no ready
// process ever had strictly less remaining work than the running one.
func assertShortestRunning(t *testing.T, res *Result) {
	t.Helper()
	reg := res.Registry
	remaining := make(map[string]int)
	arrival := make(map[string]int)
	for i := 0; i < reg.Len(); i++ {
		p := reg.Process(i)
		remaining[p.Name], arrival[p.Name] = p.Burst, p.Arrival
	}
	for _, s := range res.Gantt {
		for tick := s.Start; tick < s.Stop; tick++ {
			for name, rem := range remaining {
				if name == s.Name || rem == 0 || arrival[name] > tick {
					continue
				}
				assert.LessOrEqual(t, remaining[s.Name], rem, "tick %d: %s ran while %s was shorter", tick, s.Name, name)
			}
			remaining[s.Name]--
		}
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	eachPolicy(t, func(t *testing.T, res *Result, policy Policy) {
		var procs []process.Process
		for i := 0; i < res.Registry.Len(); i++ {
			procs = append(procs, res.Registry.Process(i))
		}
		again := Simulate(procs, res.RunFor, policy)
		assert.Equal(t, res.Log, again.Log)
		assert.Equal(t, res.Gantt, again.Gantt)
	})
}
