package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seenimoa/coveredcall/internal/agentic"
	"github.com/seenimoa/coveredcall/internal/fundamentals"
	"github.com/seenimoa/coveredcall/pkg/models"
)

// buildAppendix joins the human-readable audit blocks in fixed order:
// divergence, agentic loop, debate.
func buildAppendix(st *State) string {
	var blocks []string
	if st.Divergence != nil {
		blocks = append(blocks, strings.TrimRight(fundamentals.FormatDivergenceReport(st.Divergence), "\n"))
	}
	if b := agenticBlock(st.AgenticResult, st.AgenticView); b != "" {
		blocks = append(blocks, b)
	}
	if b := debateBlock(st.DebateSummary); b != "" {
		blocks = append(blocks, b)
	}
	return strings.Join(blocks, "\n\n")
}

func agenticBlock(resp *agentic.Response, view *models.View) string {
	if resp == nil || view == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Agentic Fundamentals\n")
	b.WriteString("-------------------\n")
	if resp.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", resp.Summary)
	}
	fmt.Fprintf(&b, "Stance: %s | Bias: %s | Confidence: %.2f\n", view.Stance, view.Bias, view.Confidence)
	if len(view.KeyPoints) > 0 {
		b.WriteString("Bullets:\n")
		for i, kp := range capList(view.KeyPoints, 4) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, kp)
		}
	}
	if len(view.Risks) > 0 {
		b.WriteString("Risks:\n")
		for _, r := range capList(view.Risks, 4) {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func debateBlock(sum *models.DebateSummary) string {
	if sum == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("LLM Debate Summary\n")
	b.WriteString("-----------------\n")
	if len(sum.Synthesis) > 0 {
		b.WriteString("Synthesis:\n")
		for i, s := range sum.Synthesis {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	if len(sum.Disagreements) > 0 {
		b.WriteString("Disagreements:\n")
		for i, d := range sum.Disagreements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, d)
		}
	}
	points := debateKeyPoints(sum)
	if len(points) > 0 {
		b.WriteString("Key points:\n")
		for i, p := range points {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// debateKeyPoints interleaves the strongest bullet from each side.
func debateKeyPoints(sum *models.DebateSummary) []string {
	var points []string
	for _, bullet := range capList(sum.Bull.Bullets, 2) {
		points = append(points, "[BULL] "+bullet)
	}
	for _, bullet := range capList(sum.Bear.Bullets, 2) {
		points = append(points, "[BEAR] "+bullet)
	}
	return points
}

func trimFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
