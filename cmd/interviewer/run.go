package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/persona-interviewer/internal/desktop"
	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
	"github.com/BerylCAtieno/persona-interviewer/internal/render"
	"github.com/BerylCAtieno/persona-interviewer/internal/tui"
	"github.com/BerylCAtieno/persona-interviewer/internal/wizard"
)

var (
	runPlain       bool
	runReportDir   string
	runSaveHistory bool
	runSummaries   bool
	runWidth       int
)

var runCmd = &cobra.Command{
	Use:   "run <project.yaml>",
	Short: "Run the whole interview pipeline for a project file",
	Long: `run reads a project file, then generates personas, interviews the
selected three, forms a hypothesis, interviews them again and prints the
final analysis.

The project file is YAML:

  project:
    topic: online coaching service
    products_services:
      - name: CoachNow
        target_audience: busy professionals
        benefits: coaching on demand
        benefit_reason: certified coaches available 24/7
        basic_info: $49/month
  persona_count: 5          # optional
  selection: [0, 2, 4]      # optional, defaults to the first three
  questions:                # optional, defaults to the backend set
    - What do you pay for coaching today?`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := loadPipelineInput(args[0])
		if err != nil {
			return err
		}
		if in.PersonaCount == 0 {
			in.PersonaCount = cfg.PersonaCount
		}

		bridge := &tui.Bridge{}
		sink := bridge.Sink
		if runPlain {
			sink = plainSink(cmd.ErrOrStderr())
		}
		ctrl := wizard.New(client,
			wizard.WithLogger(logger.Named("wizard")),
			wizard.WithProgress(progress.New(sink, progress.WithInterval(cfg.ProgressInterval))),
			wizard.WithPersonaCount(cfg.PersonaCount),
		)

		work := func(ctx context.Context) error { return ctrl.RunPipeline(ctx, in) }
		if runPlain {
			err = work(cmd.Context())
		} else {
			err = bridge.Run(cmd.Context(), "Interviewing personas about "+in.Project.Topic, work)
		}

		r := render.New(runWidth, "")
		out := cmd.OutOrStdout()
		printResults(out, r, ctrl.State())
		if err != nil {
			return err
		}

		if runSummaries {
			if err := ctrl.GenerateSummaries(cmd.Context()); err != nil {
				logger.Warn("summaries unavailable", zap.Error(err))
			} else {
				fmt.Fprintln(out, r.Title("Persona summaries"))
				fmt.Fprintln(out, r.Summaries(ctrl.State().Summaries))
			}
		}
		if runSaveHistory {
			id, err := ctrl.SaveHistory(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved as history %s\n", id)
		}
		if runReportDir != "" {
			path, err := desktop.SaveReport(runReportDir, in.Project.Topic, render.Report(ctrl.State()), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "report written to %s\n", path)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "print progress lines instead of the progress view")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "write a markdown report into this directory")
	runCmd.Flags().BoolVar(&runSaveHistory, "save-history", false, "save the finished run on the backend")
	runCmd.Flags().BoolVar(&runSummaries, "summaries", false, "also fetch per-persona summaries")
	runCmd.Flags().IntVar(&runWidth, "width", 100, "wrap rendered output at this width")
}

func loadPipelineInput(path string) (wizard.PipelineInput, error) {
	var in wizard.PipelineInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("failed to read project file: %w", err)
	}
	if err := yaml.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}
	if missing := in.Project.MissingFields(); len(missing) > 0 {
		return in, fmt.Errorf("project file %s is missing %v", path, missing)
	}
	return in, nil
}

// plainSink prints each distinct progress message once.
func plainSink(w io.Writer) progress.Sink {
	var last string
	return func(u progress.Update) {
		if u.Message == "" || u.Message == last {
			return
		}
		last = u.Message
		fmt.Fprintf(w, "[%3d%%] %s\n", u.Percent, u.Message)
	}
}

func printResults(w io.Writer, r *render.Renderer, s wizard.State) {
	if len(s.Personas) > 0 {
		fmt.Fprintln(w, r.Title("Personas"))
		fmt.Fprintln(w, r.Personas(s.Personas, s.Selected))
	}
	if t := s.Transcript(models.PhaseInitial); len(t) > 0 {
		fmt.Fprintln(w, r.Title("Interviews"))
		fmt.Fprintln(w, r.Transcript(t))
	}
	if s.Analysis != "" {
		fmt.Fprintln(w, r.Title("Initial insight analysis"))
		fmt.Fprintln(w, r.Markdown(s.Analysis))
	}
	if s.Hypothesis != "" {
		fmt.Fprintln(w, r.Title("Hypothesis"))
		fmt.Fprintln(w, r.Markdown(s.Hypothesis))
	}
	if t := s.Transcript(models.PhaseHypothesis); len(t) > 0 {
		fmt.Fprintln(w, r.Title("Hypothesis interviews"))
		fmt.Fprintln(w, r.Transcript(t))
	}
	if s.FinalAnalysis != "" {
		fmt.Fprintln(w, r.Title("Final marketing strategy"))
		fmt.Fprintln(w, r.Markdown(s.FinalAnalysis))
	}
	if s.Stats != nil {
		fmt.Fprintln(w, r.Stats(s.Stats))
	}
}
