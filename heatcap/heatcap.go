// Package heatcap captures the Finviz heatmaps every few seconds while the
// US equity market is open and, once the session closes, assembles each
// day's screenshots into one looping GIF per heatmap.
//
// A Runner owns one Chrome session and one strictly sequential loop:
// ask the market clock what to do, capture a tick or sleep, assemble the day
// after the close, repeat. Everything it does is emitted as an event.Event
// to the configured sinks (stdout, webhook, callback, SQLite journal).
package heatcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hazyhaar/heatcap/heatcap/event"
	"github.com/hazyhaar/heatcap/heatcap/internal/assemble"
	"github.com/hazyhaar/heatcap/heatcap/internal/browser"
	"github.com/hazyhaar/heatcap/heatcap/internal/capture"
	"github.com/hazyhaar/heatcap/heatcap/internal/clock"
	"github.com/hazyhaar/heatcap/heatcap/internal/journal"
	"github.com/hazyhaar/heatcap/heatcap/internal/layout"
	"github.com/hazyhaar/heatcap/heatcap/internal/sink"
	"github.com/hazyhaar/heatcap/heatcap/internal/status"
)

// ErrNoFrames is returned when a day has a target without screenshots.
var ErrNoFrames = assemble.ErrNoFrames

// Animation describes one GIF written by AssembleDay.
type Animation = assemble.Animation

// Shooter takes one element screenshot as PNG.
type Shooter = capture.Shooter

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customises a Runner.
type Option func(*options)

type options struct {
	shooter Shooter
	now     func() time.Time
	sleep   Sleeper
	sinks   []sink.Sink
	stdout  io.Writer
}

// WithShooter replaces the Chrome session, mainly for tests.
func WithShooter(s Shooter) Option { return func(o *options) { o.shooter = s } }

// WithNow replaces the wall clock.
func WithNow(fn func() time.Time) Option { return func(o *options) { o.now = fn } }

// WithSleeper replaces the cancellable sleep.
func WithSleeper(fn Sleeper) Option { return func(o *options) { o.sleep = fn } }

// WithSinks adds sinks to those built from the configuration.
func WithSinks(s ...Sink) Option { return func(o *options) { o.sinks = append(o.sinks, s...) } }

// WithStdout redirects the stdout sink. Default: os.Stdout.
func WithStdout(w io.Writer) Option { return func(o *options) { o.stdout = w } }

// Runner drives the capture and assembly loop.
type Runner struct {
	cfg    *Config
	logger *slog.Logger

	clk     *clock.Clock
	mgr     *browser.Manager // nil when a Shooter was injected
	capture *capture.Capturer
	asm     *assemble.Assembler
	sinkR   *sink.Router
	jrnl    *journal.Journal

	now   func() time.Time
	sleep Sleeper

	sess Session

	// caughtUp is the last day checked for an unfinished assembly.
	caughtUp string
}

// New validates cfg and wires a Runner. No browser is started until Run.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		return nil, fmt.Errorf("heatcap: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.sleep == nil {
		o.sleep = sleepCtx
	}

	ex, err := cfg.Exchange()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:    cfg,
		logger: logger,
		clk:    clock.New(ex, clock.WithRecheck(cfg.Market.RecheckAfterClose)),
		sinkR:  sink.NewRouter(logger),
		now:    o.now,
		sleep:  o.sleep,
		sess:   Session{RunID: event.NewID()},
	}

	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			r.sinkR.Add(sink.NewStdout(o.stdout))
		case "webhook":
			r.sinkR.Add(newWebhook(sc, logger))
		}
	}
	for _, s := range o.sinks {
		r.sinkR.Add(s)
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("heatcap: %w", err)
		}
		r.jrnl = j
		r.sinkR.Add(j)
	}

	shooter := o.shooter
	if shooter == nil {
		r.mgr = browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			Bin:              cfg.Browser.Bin,
			UserAgent:        cfg.Browser.UserAgent,
			Extension:        cfg.Browser.Extension,
			NoSandbox:        cfg.Browser.NoSandbox,
			WindowWidth:      cfg.Browser.WindowWidth,
			WindowHeight:     cfg.Browser.WindowHeight,
			Stealth:          cfg.Browser.Stealth,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			RecycleInterval:  cfg.Browser.RecycleInterval,
			NavigateTimeout:  cfg.Capture.NavigateTimeout,
			Logger:           logger,
		})
		shooter = r.mgr
	}

	r.capture = capture.New(shooter, capture.Config{
		Root:         cfg.Path,
		Selector:     cfg.Capture.Selector,
		Wait:         cfg.Capture.WaitTimeout,
		Retries:      cfg.Capture.Retries,
		RetryBackoff: cfg.Capture.RetryBackoff,
		Logger:       logger,
	})
	r.asm = assemble.New(assemble.Config{
		Root:       cfg.Path,
		DurationMs: cfg.Duration,
		Clean:      cfg.Clean,
		Logger:     logger,
	})

	return r, nil
}

// Session returns a copy of the loop state.
func (r *Runner) Session() Session { return r.sess }

// Run starts the browser and loops until ctx is cancelled or an error
// occurs. Cancellation is a clean stop and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	if r.mgr != nil {
		if err := r.mgr.Start(ctx); err != nil {
			return fmt.Errorf("heatcap: start browser: %w", err)
		}
	}

	start := event.New(event.KindRunStart, r.sess.RunID, r.now())
	start.Path = r.cfg.Path
	r.emit(ctx, start)
	r.logger.Info("heatcap: running",
		"run_id", r.sess.RunID,
		"path", r.cfg.Path,
		"delay_s", r.cfg.Delay,
		"duration_ms", r.cfg.Duration,
		"clean", r.cfg.Clean,
		"exchange", r.clk.Exchange().Name)

	for {
		wait, err := r.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := r.sleep(ctx, wait); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step makes one clock decision and acts on it: capture one tick while the
// session is open, otherwise assemble any day captured by this process. It
// returns how long to sleep before the next step.
func (r *Runner) Step(ctx context.Context) (time.Duration, error) {
	d := r.clk.Decide(r.now())

	if d.State == clock.InSession {
		if r.sess.Day != d.Day {
			if err := r.flush(ctx); err != nil {
				return 0, err
			}
			if err := r.beginDay(d.Day); err != nil {
				return 0, err
			}
		}
		if err := r.tick(ctx); err != nil {
			return 0, err
		}
		return time.Duration(r.cfg.Delay) * time.Second, nil
	}

	if err := r.flush(ctx); err != nil {
		return 0, err
	}
	r.catchUp(ctx, d.Now)

	e := event.New(event.KindSleep, r.sess.RunID, d.Now)
	e.Day = d.Day
	e.State = d.State.String()
	e.WaitMs = d.Wait.Milliseconds()
	r.emit(ctx, e)
	r.logger.Debug("heatcap: sleeping", "state", d.State, "day", d.Day, "wait", d.Wait)
	return d.Wait, nil
}

// AssembleDay builds the animations of day and emits one event per GIF and
// per removed screenshot directory. It needs no browser.
func (r *Runner) AssembleDay(ctx context.Context, day string) ([]Animation, error) {
	if _, err := time.Parse(layout.DayFormat, day); err != nil {
		return nil, fmt.Errorf("heatcap: day %q: want %s", day, layout.DayFormat)
	}

	anims, err := r.asm.Assemble(ctx, day)
	for _, a := range anims {
		e := event.New(event.KindAnimation, r.sess.RunID, r.now())
		e.Day, e.Target, e.Path, e.Frames, e.Bytes = day, a.Target, a.Path, a.Frames, a.Bytes
		r.emit(ctx, e)
		if a.Cleaned {
			c := event.New(event.KindCleanup, r.sess.RunID, r.now())
			c.Day, c.Target, c.Path = day, a.Target, a.SourceDir
			r.emit(ctx, c)
		}
	}
	if err != nil {
		return anims, fmt.Errorf("heatcap: assemble %s: %w", day, err)
	}
	return anims, nil
}

// StatusHandler returns the status API, or nil when no journal is configured.
func (r *Runner) StatusHandler() http.Handler {
	if r.jrnl == nil {
		return nil
	}
	return status.Handler(r.jrnl, r.logger)
}

// NewStatusServer wraps h in an http.Server listening on addr with the
// status API's timeouts.
func NewStatusServer(addr string, h http.Handler) *http.Server {
	return status.Server(addr, h)
}

// Close stops the browser and closes every sink.
func (r *Runner) Close() error {
	var errs []error
	if r.mgr != nil {
		errs = append(errs, r.mgr.Close())
	}
	errs = append(errs, r.sinkR.Close())
	return errors.Join(errs...)
}

func (r *Runner) beginDay(day string) error {
	seq, err := layout.NextSeq(r.cfg.Path, day, r.capture.Targets())
	if err != nil {
		return fmt.Errorf("heatcap: resume %s: %w", day, err)
	}
	r.sess.Day = day
	r.sess.Seq = seq
	r.sess.Ticks = 0
	if seq > 0 {
		r.logger.Info("heatcap: resuming day", "day", day, "seq", seq)
	}
	return nil
}

func (r *Runner) tick(ctx context.Context) error {
	shots, err := r.capture.Tick(ctx, r.sess.Day, r.sess.Seq)
	for _, s := range shots {
		e := event.New(event.KindShot, r.sess.RunID, r.now())
		e.Day, e.Target, e.Seq, e.Path, e.Bytes = r.sess.Day, s.Target, s.Seq, s.Path, s.Bytes
		e.TookMs = s.Took.Milliseconds()
		r.emit(ctx, e)
	}
	if err != nil {
		return fmt.Errorf("heatcap: tick %d: %w", r.sess.Seq, err)
	}
	r.sess.Seq++
	r.sess.Ticks++
	return nil
}

// flush assembles the current day if this process captured any of it.
func (r *Runner) flush(ctx context.Context) error {
	if r.sess.Day == "" {
		return nil
	}
	if r.sess.Ticks == 0 {
		r.sess.reset()
		return nil
	}
	day := r.sess.Day
	if _, err := r.AssembleDay(ctx, day); err != nil {
		return err
	}
	r.sess.reset()
	return nil
}

// catchUp assembles the most recent trading day when an earlier process
// captured it and stopped before assembling. Each day is checked once per
// process; a failure is logged and does not stop the loop.
func (r *Runner) catchUp(ctx context.Context, now time.Time) {
	closeAt, ok := r.clk.LastClose(now)
	if !ok {
		return
	}
	day := closeAt.Format(layout.DayFormat)
	if day == r.caughtUp {
		return
	}
	r.caughtUp = day

	pending, err := r.unassembled(day)
	if err != nil {
		r.logger.Warn("heatcap: check unfinished day", "day", day, "error", err)
		return
	}
	if !pending {
		return
	}
	r.logger.Info("heatcap: assembling unfinished day", "day", day)
	if _, err := r.AssembleDay(ctx, day); err != nil {
		r.logger.Error("heatcap: assemble unfinished day", "day", day, "error", err)
	}
}

// unassembled reports whether a target of day still has screenshots that
// no animation covers: its GIF is missing, or cleanup never ran.
func (r *Runner) unassembled(day string) (bool, error) {
	if _, err := os.Stat(layout.DayDir(r.cfg.Path, day)); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	for _, t := range r.capture.Targets() {
		frames, err := layout.Frames(layout.TargetDir(r.cfg.Path, day, t.Name))
		if err != nil {
			return false, err
		}
		if len(frames) == 0 {
			continue
		}
		if r.cfg.Clean {
			return true, nil
		}
		if _, err := os.Stat(layout.AnimationPath(r.cfg.Path, day, t.Name)); errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
	}
	return false, nil
}

// emit delivers e to every sink. Sink failures are logged by the router and
// never stop the loop.
func (r *Runner) emit(ctx context.Context, e event.Event) {
	_ = r.sinkR.Send(ctx, e)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
