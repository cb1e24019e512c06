package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/wizard"
)

// Report is the plain markdown document saved at the end of a run.
func Report(s wizard.State) string {
	var b strings.Builder
	b.WriteString("# Marketing Interview Report\n\n")
	fmt.Fprintf(&b, "Topic: %s\n\n", s.Project.Topic)

	if len(s.Project.ProductsServices) > 0 {
		b.WriteString("## Products and services\n\n")
		for _, p := range s.Project.ProductsServices {
			fmt.Fprintf(&b, "- **%s**: %s (for %s)\n", p.Name, p.Benefits, p.TargetAudience)
		}
		b.WriteString("\n")
	}
	if personas := s.SelectedPersonas(); len(personas) > 0 {
		b.WriteString("## Interviewed personas\n\n")
		for _, p := range personas {
			fmt.Fprintf(&b, "- %s\n", p.Name)
		}
		b.WriteString("\n")
	}

	section(&b, "Initial insight analysis", s.Analysis)
	section(&b, "Hypothesis and additional questions", s.Hypothesis)
	section(&b, "Final marketing strategy analysis", s.FinalAnalysis)

	if len(s.Summaries) > 0 {
		b.WriteString("## Persona summaries\n\n")
		for _, sum := range s.Summaries {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n%s\n\n", sum.PersonaName, sum.MainFindings, sum.MainImplications)
		}
	}
	if t := s.Transcript(models.PhaseAdditional); len(t) > 0 {
		b.WriteString("## Additional interviews\n\n")
		writeTranscript(&b, t)
	}
	return b.String()
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, strings.TrimSpace(body))
}

func writeTranscript(b *strings.Builder, t models.Transcript) {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, "### %s\n\n", name)
		for _, r := range t[name] {
			fmt.Fprintf(b, "- **%s** %s\n", r.Question, r.MainAnswer)
		}
		b.WriteString("\n")
	}
}
