// Package render formats wizard results for the terminal and for saved
// reports.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/BerylCAtieno/persona-interviewer/internal/models"
)

type Renderer struct {
	styles Styles
	md     *glamour.TermRenderer
	width  int
}

// New returns a renderer wrapping at width. style is a glamour style name;
// empty picks one from the terminal background.
func New(width int, style string) *Renderer {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	md, _ := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	return &Renderer{styles: DefaultStyles(), md: md, width: width}
}

// Markdown renders analysis text. The text is returned unchanged when it
// cannot be rendered.
func (r *Renderer) Markdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (r *Renderer) Title(text string) string {
	return r.styles.Title.Render(text)
}

func (r *Renderer) Error(err error) string {
	return r.styles.Error.Render("Error: ") + err.Error()
}

// Personas lays the personas out as cards, selected ones highlighted.
func (r *Renderer) Personas(personas []models.Persona, selected []int) string {
	isSelected := make(map[int]bool, len(selected))
	for _, id := range selected {
		isSelected[id] = true
	}

	cards := make([]string, 0, len(personas))
	for _, p := range personas {
		var b strings.Builder
		mark := "[ ]"
		if isSelected[p.ID] {
			mark = "[x]"
		}
		fmt.Fprintf(&b, "%s %s", mark, r.styles.Label.Render(fmt.Sprintf("#%d %s", p.ID, p.Name)))
		for _, k := range sortedKeys(p.Details) {
			fmt.Fprintf(&b, "\n%s %s", r.styles.Muted.Render(k+":"), p.Details[k])
		}

		style := r.styles.Card
		if isSelected[p.ID] {
			style = r.styles.Selected
		}
		cards = append(cards, style.Width(r.width-4).Render(b.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// Transcript prints every persona's answers, personas in name order.
func (r *Renderer) Transcript(t models.Transcript) string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(r.styles.Title.Render(name))
		b.WriteString("\n")
		for i, res := range t[name] {
			fmt.Fprintf(&b, "%s\n", r.styles.Question.Render(fmt.Sprintf("Q%d. %s", i+1, res.Question)))
			fmt.Fprintf(&b, "%s\n", r.styles.Answer.Width(r.width).Render(res.MainAnswer))
			for _, f := range res.FollowUps {
				fmt.Fprintf(&b, "%s\n", r.styles.FollowUp.Width(r.width).Render("> "+f.Question+"\n  "+f.Answer))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Renderer) Stats(s *models.Stats) string {
	if s == nil {
		return ""
	}
	return r.styles.Subtitle.Render(fmt.Sprintf(
		"%.1fs elapsed, %d input chars, %d output chars, estimated cost $%.4f",
		s.ElapsedTime, s.InputChars, s.OutputChars, s.EstimatedCost,
	))
}

func (r *Renderer) Summaries(summaries []models.PersonaSummary) string {
	var b strings.Builder
	for _, s := range summaries {
		b.WriteString(r.styles.Label.Render(s.PersonaName))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", r.styles.Muted.Render("Findings:"), s.MainFindings)
		fmt.Fprintf(&b, "%s %s\n\n", r.styles.Muted.Render("Implications:"), s.MainImplications)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
