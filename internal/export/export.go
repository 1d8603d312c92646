// Package export writes run outputs for external analysis: the per-tick
// agent log and the post log as CSV tables, and graph snapshots as DOT.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/engine"
	"github.com/talgya/socionet/internal/graph"
)

// AgentLogHeader is the fixed column set of the per-tick agent log.
var AgentLogHeader = []string{
	"Agent_ID", "Tick", "Opinion", "Perceived_Opinion", "Check_Regularity",
	"Inclin_Interact", "Desired_Input_Count", "Inactive_Ticks",
	"Indegree", "Outdegree", "Active",
}

// PostLogHeader is the fixed column set of the post log.
var PostLogHeader = []string{
	"Opinion", "Weight", "Source_Agent", "Published_At",
	"Seen", "Likes", "Dislikes", "Reposts",
}

// WriteAgentLog writes tick records as CSV with the fixed header.
func WriteAgentLog(w io.Writer, records []engine.TickRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AgentLogHeader); err != nil {
		return fmt.Errorf("write agent log header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(int(rec.AgentID)),
			strconv.FormatUint(rec.Tick, 10),
			formatFloat(rec.Opinion),
			formatFloat(rec.Perceived),
			formatFloat(rec.CheckRegularity),
			formatFloat(rec.InclinInteract),
			strconv.Itoa(rec.DesiredInput),
			strconv.Itoa(rec.InactiveTicks),
			strconv.Itoa(rec.InDegree),
			strconv.Itoa(rec.OutDegree),
			strconv.FormatBool(rec.Active),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write agent log row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePostLog writes the run post log as CSV with the fixed header.
func WritePostLog(w io.Writer, posts []*agents.Post) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PostLogHeader); err != nil {
		return fmt.Errorf("write post log header: %w", err)
	}
	for _, p := range posts {
		row := []string{
			formatFloat(p.Opinion),
			strconv.Itoa(p.Weight),
			strconv.Itoa(int(p.SourceAgent)),
			strconv.FormatUint(p.PublishedAt, 10),
			strconv.Itoa(p.SeenBy),
			strconv.Itoa(p.LikeCount),
			strconv.Itoa(p.DislikeCount),
			strconv.Itoa(p.ShareCount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write post log row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDOT writes a graph snapshot in DOT digraph form, one edge per
// line, so external graph tooling can read it directly.
func WriteDOT(w io.Writer, name string, edges []graph.Edge) error {
	if _, err := fmt.Fprintf(w, "digraph %s {\n", name); err != nil {
		return err
	}
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "  %d -> %d;\n", e.From, e.To); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
