// Package wizard drives a persona interview session through its steps.
//
// The backend keeps one session per project and expects its operations in a
// fixed order: personas are selected before they are interviewed, and
// interviews come before any analysis. The Controller makes that order
// explicit. Every handler checks the current Step first and refuses an
// out-of-order call before anything is sent over the network. Only one
// handler runs at a time; a second concurrent call fails with KindBusy.
//
// State is only replaced as a whole, after every backend call of a step has
// succeeded. A failed step leaves the previous State in place so the same
// handler can simply be called again.
package wizard

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BerylCAtieno/persona-interviewer/internal/backend"
	"github.com/BerylCAtieno/persona-interviewer/internal/models"
	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
)

const (
	// RequiredSelection is the number of personas interviewed in every phase.
	RequiredSelection = backend.RequiredSelection

	DefaultPersonaCount = 5
	MinPersonaCount     = 3
	MaxPersonaCount     = 20
)

// Backend is the subset of the API client the wizard calls.
type Backend interface {
	GeneratePersonas(ctx context.Context, project models.ProjectInfo, count int, characteristics string) (*backend.PersonasResponse, error)
	SelectPersonas(ctx context.Context, ids []int) error
	DefaultQuestions(ctx context.Context, topic string) ([]string, error)
	ConductInterview(ctx context.Context, personaIndex int, questions []string, hypothesisPhase bool) (*backend.InterviewResponse, error)
	ConductHypothesisInterview(ctx context.Context, personaIndex int, questions []string) (*backend.InterviewResponse, error)
	GenerateAnalysis(ctx context.Context) (*backend.AnalysisResponse, error)
	GenerateHypothesis(ctx context.Context) (*backend.HypothesisResponse, error)
	GenerateFinalAnalysis(ctx context.Context) (*backend.FinalAnalysisResponse, error)
	GenerateInterviewSummary(ctx context.Context) ([]models.PersonaSummary, error)
	UploadQuestions(ctx context.Context, filename string, r io.Reader) (*backend.UploadResponse, error)
	SaveHistory(ctx context.Context) (*backend.SaveHistoryResponse, error)
}

var _ Backend = (*backend.Client)(nil)

type Controller struct {
	api          Backend
	logger       *zap.Logger
	progress     *progress.Reporter
	personaCount int

	sem  *semaphore.Weighted
	busy atomic.Bool

	mu    sync.RWMutex
	state State
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress sets the reporter long running handlers publish to.
func WithProgress(r *progress.Reporter) Option {
	return func(c *Controller) {
		if r != nil {
			c.progress = r
		}
	}
}

// WithPersonaCount sets the persona count used when SetProject gets none.
func WithPersonaCount(n int) Option {
	return func(c *Controller) {
		if n >= MinPersonaCount && n <= MaxPersonaCount {
			c.personaCount = n
		}
	}
}

func New(api Backend, opts ...Option) *Controller {
	c := &Controller{
		api:          api,
		logger:       zap.NewNop(),
		progress:     progress.New(nil),
		personaCount: DefaultPersonaCount,
		sem:          semaphore.NewWeighted(1),
		state:        Initial(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Progress returns the last progress update and whether an operation is
// reporting.
func (c *Controller) Progress() (progress.Update, bool) {
	return c.progress.Snapshot()
}

// Busy reports whether a handler is running.
func (c *Controller) Busy() bool { return c.busy.Load() }

func (c *Controller) snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) commit(a action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = reduce(c.state, a)
	return c.state
}

// acquire claims the single operation slot.
func (c *Controller) acquire(op string) (release func(), err error) {
	if !c.sem.TryAcquire(1) {
		return nil, &Error{Kind: KindBusy, Op: op, Err: ErrBusy}
	}
	c.busy.Store(true)
	return func() {
		c.busy.Store(false)
		c.sem.Release(1)
	}, nil
}

// run executes fn as one operation. Progress is reset around it and every
// failure comes back as an *Error.
func (c *Controller) run(ctx context.Context, op string, fn func(ctx context.Context, rep *progress.Reporter) error) error {
	release, err := c.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	step := c.snapshot().Step
	logger := c.logger.With(zap.String("op", op), zap.Stringer("step", step))
	logger.Debug("operation started")
	start := time.Now()

	c.progress.Begin(op)
	defer c.progress.End()

	if err := fn(ctx, c.progress); err != nil {
		werr := Classify(op, err)
		logger.Warn("operation failed",
			zap.Stringer("kind", werr.Kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(werr.Err),
		)
		return werr
	}
	logger.Info("operation finished",
		zap.Stringer("next_step", c.snapshot().Step),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// apply runs a handler that makes no network call.
func (c *Controller) apply(op string, fn func(s State) (action, error)) error {
	release, err := c.acquire(op)
	if err != nil {
		return err
	}
	defer release()

	a, err := fn(c.snapshot())
	if err != nil {
		return Classify(op, err)
	}
	if a != nil {
		c.commit(a)
	}
	return nil
}

func requireStep(op string, s State, allowed ...Step) error {
	for _, st := range allowed {
		if s.Step == st {
			return nil
		}
	}
	return outOfOrder(op, s.Step)
}

func requireSelection(op string, s State) error {
	if len(s.Selected) != RequiredSelection {
		return invalid(op, "exactly %d personas must be selected, %d are", RequiredSelection, len(s.Selected))
	}
	return nil
}
