package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"derush/internal/analysis"
	"derush/internal/automation"
	"derush/internal/beat"
	"derush/internal/classify"
	"derush/internal/config"
	"derush/internal/decision"
	"derush/internal/extractor"
	"derush/internal/logging"
	"derush/internal/plan"
	"derush/internal/segment"
	"derush/internal/services"
)

const (
	// windowQueueDepth bounds every inter-stage channel. A slow consumer
	// blocks its producer instead of growing memory.
	windowQueueDepth = 64
	// defaultDrainBudget is how long a stage may stay blocked on a full
	// channel before backpressure escalates to a resource failure.
	defaultDrainBudget = 30 * time.Second
)

// Source is the windowed PCM stream the pipeline consumes. A returned buffer
// is only valid until the next call.
type Source interface {
	Next() (*extractor.AudioBuffer, error)
	SourceDuration() time.Duration
	Close() error
}

// OpenFunc opens the audio of a source asset as a window stream.
type OpenFunc func(ctx context.Context, path string) (Source, error)

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithQualityProvider attaches an external video quality score source.
func WithQualityProvider(q VideoQualityProvider) Option {
	return func(p *Pipeline) { p.quality = q }
}

// WithClassifier swaps the content classifier implementation.
func WithClassifier(c classify.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithSource swaps how assets are opened.
func WithSource(open OpenFunc) Option {
	return func(p *Pipeline) { p.open = open }
}

// Pipeline runs the full edit for one asset at a time. A Pipeline is
// reusable but not safe for concurrent runs.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	classifier classify.Classifier
	quality    VideoQualityProvider
	open       OpenFunc

	drainBudget time.Duration

	mu    sync.Mutex
	state State
}

// New constructs a Pipeline with the default extractor and heuristic
// classifier.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		classifier:  classify.NewHeuristic(cfg, logger),
		drainBudget: defaultDrainBudget,
		state:       StateIdle,
	}
	p.open = func(ctx context.Context, path string) (Source, error) {
		return extractor.New(cfg, logger).Open(ctx, path)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) transition(to State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !validTransition(p.state, to) {
		// Transition bugs are programmer errors; log loudly and keep the
		// terminal state sticky.
		p.logger.Error("invalid state transition",
			logging.Args(
				logging.String("from", string(p.state)),
				logging.String("to", string(to)),
			)...)
		return
	}
	p.state = to
}

// classified pairs a window's features with its classification for the join.
type classified struct {
	features analysis.SpectralFeatures
	class    classify.Classification
}

// Run edits one asset and returns the composition plan with statistics.
// Cancellation returns the context error and no result. Run resets the
// state machine, so a Pipeline can process assets back to back.
func (p *Pipeline) Run(ctx context.Context, sourcePath string) (*plan.EditResult, error) {
	started := time.Now()
	ctx = services.WithStage(ctx, "pipeline")
	ctx = services.WithAsset(ctx, sourcePath)

	p.mu.Lock()
	p.state = StateIdle
	p.mu.Unlock()

	result, err := p.run(ctx, sourcePath, started)
	switch {
	case err == nil:
		p.transition(StateCompleted)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		p.transition(StateCancelled)
	default:
		p.transition(StateFailed)
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, sourcePath string, started time.Time) (*plan.EditResult, error) {
	p.transition(StateExtracting)
	src, err := p.open(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	p.transition(StateAnalyzing)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	toClassify := make(chan analysis.SpectralFeatures, windowQueueDepth)
	toBeat := make(chan analysis.SpectralFeatures, windowQueueDepth)
	classifiedCh := make(chan classified, windowQueueDepth)
	beatCh := make(chan *beat.BeatPoint, windowQueueDepth)

	// First stage error wins; later ones are side effects of the cancel.
	errCh := make(chan error, 3)
	fail := func(stageErr error) {
		select {
		case errCh <- stageErr:
		default:
		}
		cancel()
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go p.analyzeStage(runCtx, &wg, src, toClassify, toBeat, fail)
	go p.classifyStage(runCtx, &wg, toClassify, classifiedCh, fail)
	go p.beatStage(runCtx, &wg, toBeat, beatCh, fail)

	engine := decision.New(p.cfg, p.logger)
	assembler := segment.New(p.cfg, p.logger)
	var analyzed, kept, degraded int

	joinErr := p.joinStage(runCtx, classifiedCh, beatCh, engine, assembler, &analyzed, &kept, &degraded)
	wg.Wait()

	var stageErr error
	select {
	case stageErr = <-errCh:
	default:
	}
	if stageErr == nil {
		stageErr = joinErr
	}
	if stageErr == nil && ctx.Err() != nil {
		stageErr = ctx.Err()
	}
	if stageErr != nil {
		return nil, stageErr
	}

	p.transition(StateDeciding)
	for _, d := range engine.Flush() {
		p.count(d, &kept, &degraded)
		assembler.Add(d)
	}

	p.transition(StateAssembling)
	segments := assembler.Finish(src.SourceDuration())
	result, err := p.buildPlan(sourcePath, src.SourceDuration(), segments, plan.EditStatistics{
		WindowsAnalyzed: analyzed,
		WindowsKept:     kept,
		WindowsDegraded: degraded,
	}, started)
	if err != nil {
		return nil, err
	}

	p.logger.Info("edit complete",
		logging.Args(
			logging.Int("segments", len(segments)),
			logging.Duration("original", result.Statistics.OriginalDuration),
			logging.Duration("final", result.Statistics.FinalDuration),
			logging.Int("windows", analyzed),
			logging.Int("degraded", degraded),
			logging.String(logging.FieldEventType, "edit_complete"),
		)...)
	return result, nil
}

// analyzeStage pulls windows off the source, derives features, and tees the
// owned feature values to both consumers. Buffers never cross the channel;
// only derived values do.
func (p *Pipeline) analyzeStage(ctx context.Context, wg *sync.WaitGroup, src Source, toClassify, toBeat chan<- analysis.SpectralFeatures, fail func(error)) {
	defer wg.Done()
	defer close(toClassify)
	defer close(toBeat)

	analyzer := analysis.New(p.cfg, p.logger)
	for {
		if ctx.Err() != nil {
			return
		}
		buf, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fail(err)
			return
		}
		features, err := analyzer.Analyze(buf)
		if err != nil {
			// A single bad window degrades, it does not kill the run.
			p.logger.Warn("window analysis failed; substituting silent window",
				logging.Args(
					logging.Duration("timestamp", buf.Timestamp),
					logging.Error(err),
				)...)
			features = analysis.SpectralFeatures{
				Timestamp:      buf.Timestamp,
				WindowDuration: p.cfg.WindowDuration(),
				RMSLevelDB:     -120,
			}
		}
		if err := send(ctx, toClassify, features, p.drainBudget); err != nil {
			fail(err)
			return
		}
		if err := send(ctx, toBeat, features, p.drainBudget); err != nil {
			fail(err)
			return
		}
	}
}

// classifyStage labels each window under the soft per-window timeout. A slow
// or failed classification degrades to low-confidence noise and the stream
// moves on.
func (p *Pipeline) classifyStage(ctx context.Context, wg *sync.WaitGroup, in <-chan analysis.SpectralFeatures, out chan<- classified, fail func(error)) {
	defer wg.Done()
	defer close(out)

	timeout := time.Duration(p.cfg.Analysis.ClassifyTimeoutMs) * time.Millisecond
	for features := range in {
		windowCtx, cancel := context.WithTimeout(ctx, timeout)
		class, err := p.classifier.Classify(windowCtx, features)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			class = classify.Degraded(features.Timestamp)
		}
		if err := send(ctx, out, classified{features: features, class: class}, p.drainBudget); err != nil {
			fail(err)
			return
		}
	}
}

// beatStage runs transient detection in order and emits the nearest known
// beat for every window, nil when none is near.
func (p *Pipeline) beatStage(ctx context.Context, wg *sync.WaitGroup, in <-chan analysis.SpectralFeatures, out chan<- *beat.BeatPoint, fail func(error)) {
	defer wg.Done()
	defer close(out)

	detector := beat.New(p.cfg, p.logger)
	for features := range in {
		detector.Process(features)
		var nearest *beat.BeatPoint
		if b, ok := detector.Nearest(features.Timestamp); ok {
			nearest = &b
		}
		if err := send(ctx, out, nearest, p.drainBudget); err != nil {
			fail(err)
			return
		}
	}
}

// joinStage zips the two consumer streams window for window, attaches the
// optional quality score, and folds decisions into the assembler.
func (p *Pipeline) joinStage(ctx context.Context, classifiedCh <-chan classified, beatCh <-chan *beat.BeatPoint, engine *decision.Engine, assembler *segment.Assembler, analyzed, kept, degraded *int) error {
	for c := range classifiedCh {
		nearest, ok := <-beatCh
		if !ok {
			nearest = nil
		}
		w := decision.AnalyzedWindow{
			Features:       c.features,
			Classification: c.class,
			Beat:           nearest,
		}
		if p.quality != nil {
			if score, ok := p.quality.QualityAt(c.features.Timestamp, c.features.Timestamp+c.features.WindowDuration); ok {
				w.Quality = &score
			}
		}
		*analyzed++
		for _, d := range engine.Decide(w) {
			p.count(d, kept, degraded)
			assembler.Add(d)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	// Drain any leftover beat outputs from a cancelled run.
	for range beatCh {
	}
	return ctx.Err()
}

func (p *Pipeline) count(d decision.Decision, kept, degraded *int) {
	if d.Keep {
		*kept++
	}
	if d.Degraded {
		*degraded++
	}
}

func (p *Pipeline) buildPlan(sourcePath string, duration time.Duration, segments []segment.ApprovedSegment, counts plan.EditStatistics, started time.Time) (*plan.EditResult, error) {
	fades := newCrossfades(p.cfg, segments)
	ducking := newDucking(p.cfg, segments, duration)

	result, err := plan.NewBuilder().Build(plan.BuildInput{
		SourcePath:       sourcePath,
		OriginalDuration: duration,
		Segments:         segments,
		Crossfades:       fades,
		Ducking:          ducking,
		WindowsAnalyzed:  counts.WindowsAnalyzed,
		WindowsKept:      counts.WindowsKept,
		WindowsDegraded:  counts.WindowsDegraded,
		ProcessingTime:   time.Since(started),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// send delivers v or gives up: immediately on cancellation, with a resource
// error when the downstream stays blocked past the drain budget.
func send[T any](ctx context.Context, ch chan<- T, v T, budget time.Duration) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return services.Wrap(services.ErrResource, "pipeline", "send", "stage blocked past drain budget", nil)
	}
}

func newCrossfades(cfg *config.Config, segments []segment.ApprovedSegment) []automation.Crossfade {
	return automation.NewCrossfadeProcessor(cfg).Process(segments)
}

// newDucking pulls the music bed down under every speech segment. The bed
// is a parallel track laid alongside the asset, not part of the analyzed
// audio, so it is modeled as spanning the full source duration.
func newDucking(cfg *config.Config, segments []segment.ApprovedSegment, assetDuration time.Duration) []automation.Curve {
	var speech []segment.ApprovedSegment
	for _, seg := range segments {
		if seg.Content == classify.ContentSpeech {
			speech = append(speech, seg)
		}
	}
	if len(speech) == 0 || assetDuration <= 0 {
		return nil
	}
	bed := []segment.ApprovedSegment{{End: assetDuration, Content: classify.ContentMusic}}
	return automation.NewVoiceDuckingAutomator(cfg).Duck(speech, bed)
}
