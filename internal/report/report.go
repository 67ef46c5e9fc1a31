// Package report renders a simulation result: the tick-by-tick trace written
// to the .out file, plus a Gantt chart and statistics table for humans.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/jh125486/procsched/internal/sched"
)

// Lines renders the trace of res in output order: header, events, footer and
// per-process statistics sorted by name.
func Lines(res *sched.Result) []string {
	alg := res.Policy.Algorithm()
	lines := []string{
		fmt.Sprintf("%3d processes", res.Registry.Len()),
		"Using " + alg.DisplayName(),
	}
	if rr, ok := res.Policy.(sched.RoundRobin); ok {
		lines = append(lines, fmt.Sprintf("Quantum %3d", rr.Quantum))
	}

	for _, e := range res.Log {
		lines = append(lines, fmt.Sprintf("Time %3d : %s", e.Tick, message(e)))
	}
	lines = append(lines, fmt.Sprintf("Finished at time %3d", res.RunFor), "")

	for _, i := range res.Registry.SortedByName() {
		name := res.Registry.Process(i).Name
		st, ok := res.Registry.Stats(i)
		if !ok {
			lines = append(lines, name+" did not finish")
			continue
		}
		lines = append(lines, fmt.Sprintf("%s wait %3d turnaround %3d response %3d",
			name, st.Wait, st.Turnaround, st.Response))
	}

	return lines
}

func message(e sched.Event) string {
	switch e.Kind {
	case sched.Arrived:
		return e.Name + " arrived"
	case sched.Selected:
		return fmt.Sprintf("%s selected (burst %3d)", e.Name, e.Remaining)
	case sched.Finished:
		return e.Name + " finished"
	default:
		return "Idle"
	}
}

// Write writes one line per entry, newline terminated.
func Write(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

//region Human-readable output

// Gantt prints the processor timeline from tick 0 to runFor, one column per
// time slice. Stretches with nothing on the processor show up as idle columns.
func Gantt(w io.Writer, gantt []sched.TimeSlice, runFor int) {
	_, _ = fmt.Fprintln(w, "Gantt schedule")
	cells := timeline(gantt, runFor)
	if len(cells) == 0 {
		_, _ = fmt.Fprintf(w, "(empty run)\n\n")
		return
	}

	names := make([]string, len(cells))
	spans := make([]string, len(cells))
	for i, c := range cells {
		names[i] = c.Name
		spans[i] = fmt.Sprintf("%d-%d", c.Start, c.Stop)
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetHeader(names)
	table.Append(spans)
	table.Render()
	_, _ = fmt.Fprintln(w)
}

const idleCell = "idle"

// timeline fills the gaps between slices, and after the last one up to
// runFor, with idle cells.
func timeline(gantt []sched.TimeSlice, runFor int) []sched.TimeSlice {
	var (
		cells []sched.TimeSlice
		at    int
	)
	for _, ts := range gantt {
		if ts.Start > at {
			cells = append(cells, sched.TimeSlice{Name: idleCell, Start: at, Stop: ts.Start})
		}
		cells = append(cells, ts)
		at = ts.Stop
	}
	if runFor > at {
		cells = append(cells, sched.TimeSlice{Name: idleCell, Start: at, Stop: runFor})
	}

	return cells
}

// Summary prints a titled statistics table for res. The footer averages only
// finished processes; throughput is finished processes per tick of the last exit.
func Summary(w io.Writer, title string, res *sched.Result) {
	var (
		rows                           [][]string
		finished                       int
		totalWait, totalTurn, totalRes float64
		lastExit                       int
	)
	reg := res.Registry
	for _, i := range reg.SortedByName() {
		p := reg.Process(i)
		st, ok := reg.Stats(i)
		if !ok {
			rows = append(rows, []string{
				p.Name, fmt.Sprint(p.Arrival), fmt.Sprint(p.Burst), "-", "-", "-", "-",
			})
			continue
		}
		finished++
		totalWait += float64(st.Wait)
		totalTurn += float64(st.Turnaround)
		totalRes += float64(st.Response)
		exit := reg.State(i).Finish
		if exit > lastExit {
			lastExit = exit
		}
		rows = append(rows, []string{
			p.Name,
			fmt.Sprint(p.Arrival),
			fmt.Sprint(p.Burst),
			fmt.Sprint(st.Wait),
			fmt.Sprint(st.Turnaround),
			fmt.Sprint(st.Response),
			fmt.Sprint(exit),
		})
	}

	footer := []string{"", "", "", "-", "-", "-", "-"}
	if finished > 0 {
		count := float64(finished)
		footer = []string{"", "", "",
			fmt.Sprintf("Average\n%.2f", totalWait/count),
			fmt.Sprintf("Average\n%.2f", totalTurn/count),
			fmt.Sprintf("Average\n%.2f", totalRes/count),
			fmt.Sprintf("Throughput\n%.2f/t", count/float64(lastExit)),
		}
	}

	heading(w, title)
	_, _ = fmt.Fprintln(w, "Schedule table")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Arrival", "Burst", "Wait", "Turnaround", "Response", "Exit"})
	table.AppendBulk(rows)
	table.SetFooter(footer)
	table.Render()
}

func heading(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", len(title)))
}

//endregion
