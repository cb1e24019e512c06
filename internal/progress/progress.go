// Package progress produces simulated percentage feedback for backend calls
// that report nothing until they finish.
//
// A Reporter publishes Updates to a Sink. Within one operation (Begin to End)
// the published percentage never decreases. Sub reporters map their own
// 0..100 scale onto a slice of the parent, which is how a multi-phase
// pipeline reports cumulative progress.
package progress

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultInterval = time.Second
	// simulated ticks stop at this share of a band until the real answer lands
	simulatedCeiling = 0.9
	simulatedStep    = 2.0
)

type Update struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Sink receives updates in order. It is called with the reporter's lock held
// and must not call back into the Reporter.
type Sink func(Update)

type tracker struct {
	mu     sync.Mutex
	sink   Sink
	value  float64
	last   Update
	active bool
}

type Reporter struct {
	t        *tracker
	lo, hi   float64
	interval time.Duration
}

type Option func(*Reporter)

// WithInterval sets the simulated tick period.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.interval = d
		}
	}
}

func New(sink Sink, opts ...Option) *Reporter {
	if sink == nil {
		sink = func(Update) {}
	}
	r := &Reporter{
		t:        &tracker{sink: sink},
		lo:       0,
		hi:       100,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sub returns a reporter whose 0..100 maps onto [lo, hi] of r.
func (r *Reporter) Sub(lo, hi float64) *Reporter {
	lo, hi = clamp(lo, 0, 100), clamp(hi, 0, 100)
	if hi < lo {
		lo, hi = hi, lo
	}
	return &Reporter{
		t:        r.t,
		lo:       r.scale(lo),
		hi:       r.scale(hi),
		interval: r.interval,
	}
}

// Begin starts a new operation at 0%.
func (r *Reporter) Begin(message string) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	r.t.active = true
	r.t.value = 0
	r.t.publish(0, message)
}

// End finishes the operation and clears the display.
func (r *Reporter) End() {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	r.t.active = false
	r.t.value = 0
	r.t.publish(0, "")
}

// Set reports pct (in r's scale). Values below the current level are raised
// to it so the published percentage is non-decreasing.
func (r *Reporter) Set(pct float64, message string) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	v := r.scale(clamp(pct, 0, 100))
	if v < r.t.value {
		v = r.t.value
	}
	r.t.value = v
	r.t.publish(v, message)
}

// Snapshot returns the last published update and whether an operation is running.
func (r *Reporter) Snapshot() (Update, bool) {
	r.t.mu.Lock()
	defer r.t.mu.Unlock()
	return r.t.last, r.t.active
}

func (r *Reporter) scale(pct float64) float64 {
	return r.lo + (r.hi-r.lo)*pct/100
}

func (t *tracker) publish(v float64, message string) {
	t.last = Update{Percent: int(math.Round(v)), Message: message}
	t.sink(t.last)
}

// Band is the slice of a reporter's scale owned by one step of a batch.
type Band struct {
	Lo, Hi float64
}

// PersonaBand returns [i/n*100, (i+1)/n*100).
func PersonaBand(i, n int) Band {
	if n <= 0 {
		return Band{Lo: 0, Hi: 100}
	}
	return Band{
		Lo: float64(i) * 100 / float64(n),
		Hi: float64(i+1) * 100 / float64(n),
	}
}

// EstimateQuestion guesses which of questions is being answered when the
// simulated counter sits at pct within band. The result is 1-based.
func EstimateQuestion(band Band, pct float64, questions int) int {
	if questions <= 0 {
		return 0
	}
	width := band.Hi - band.Lo
	if width <= 0 {
		return questions
	}
	q := int(math.Floor((pct-band.Lo)/width*float64(questions))) + 1
	if q < 1 {
		q = 1
	}
	if q > questions {
		q = questions
	}
	return q
}

// Simulate advances a fake counter inside band every interval until the
// returned stop function is called or ctx ends. stop waits for the ticker
// goroutine to exit and is safe to call more than once.
func (r *Reporter) Simulate(ctx context.Context, band Band, label string, questions int) (stop func()) {
	r.Set(band.Lo, label+": starting")

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		cur := band.Lo
		ceiling := band.Lo + (band.Hi-band.Lo)*simulatedCeiling
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if cur >= ceiling {
					continue
				}
				cur = math.Min(cur+simulatedStep, ceiling)
				q := EstimateQuestion(band, cur, questions)
				r.Set(cur, fmt.Sprintf("%s: question %d/%d in progress", label, q, questions))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}

// Track runs fn while simulating progress inside band. The ticker is stopped
// on every exit path of fn. On success the reporter moves to the band's end.
func (r *Reporter) Track(ctx context.Context, band Band, label string, questions int, fn func(context.Context) error) error {
	stop := r.Simulate(ctx, band, label, questions)
	defer stop()

	if err := fn(ctx); err != nil {
		return err
	}
	stop()
	r.Set(band.Hi, label+": done")
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
