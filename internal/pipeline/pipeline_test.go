package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"derush/internal/analysis"
	"derush/internal/automation"
	"derush/internal/classify"
	"derush/internal/config"
	"derush/internal/dsp"
	"derush/internal/extractor"
	"derush/internal/logging"
	"derush/internal/services"
)

// fakeSource windows a pregenerated sample array the way the real extractor
// does, without spawning a decoder.
type fakeSource struct {
	samples    []float32
	sampleRate int
	windowSize int
	hopSize    int

	start    int
	windows  int
	onWindow func(index int)
	buf      extractor.AudioBuffer
}

func newFakeSource(cfg *config.Config, seconds float64, gen func(t float64) float32) *fakeSource {
	rate := cfg.Extraction.SampleRate
	total := int(seconds * float64(rate))
	samples := make([]float32, total)
	for i := range samples {
		samples[i] = gen(float64(i) / float64(rate))
	}
	return &fakeSource{
		samples:    samples,
		sampleRate: rate,
		windowSize: cfg.Extraction.WindowSize,
		hopSize:    cfg.Extraction.HopSize,
	}
}

func (f *fakeSource) Next() (*extractor.AudioBuffer, error) {
	if f.start+f.windowSize > len(f.samples) {
		return nil, io.EOF
	}
	if f.onWindow != nil {
		f.onWindow(f.windows)
	}
	f.buf = extractor.AudioBuffer{
		Samples:    f.samples[f.start : f.start+f.windowSize],
		FrameCount: f.windowSize,
		Timestamp:  time.Duration(f.start) * time.Second / time.Duration(f.sampleRate),
		SampleRate: f.sampleRate,
		Channels:   1,
	}
	f.start += f.hopSize
	f.windows++
	return &f.buf, nil
}

func (f *fakeSource) SourceDuration() time.Duration {
	return time.Duration(len(f.samples)) * time.Second / time.Duration(f.sampleRate)
}

func (f *fakeSource) Close() error { return nil }

// speechBetweenSilences builds 10s of audio: near-silence, then a vocal-band
// tone mixture from 2s to 8s, then near-silence again.
func speechBetweenSilences(t float64) float32 {
	if t < 2 || t >= 8 {
		return 0.003
	}
	v := 0.05 * (math.Sin(2*math.Pi*300*t) +
		math.Sin(2*math.Pi*1000*t) +
		math.Sin(2*math.Pi*2500*t))
	return float32(v)
}

func sourceOpener(src Source) OpenFunc {
	return func(context.Context, string) (Source, error) { return src, nil }
}

func failingOpener(err error) OpenFunc {
	return func(context.Context, string) (Source, error) { return nil, err }
}

func TestRunSilenceSpeechSilence(t *testing.T) {
	cfg := config.Default()
	src := newFakeSource(&cfg, 10, speechBetweenSilences)
	p := New(&cfg, logging.NewNop(), WithSource(sourceOpener(src)))

	result, err := p.Run(context.Background(), "take1.wav")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.State() != StateCompleted {
		t.Errorf("state = %s, want completed", p.State())
	}

	segments := result.Plan.Segments
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1: %+v", len(segments), segments)
	}
	seg := segments[0]
	if seg.Content != classify.ContentSpeech {
		t.Errorf("segment content = %s, want speech", seg.Content)
	}
	// Speech spans [2s, 8s]; padding widens it to about [1.85s, 8.2s].
	if seg.Start < 1700*time.Millisecond || seg.Start > 1950*time.Millisecond {
		t.Errorf("segment start = %v, want near 1.85s", seg.Start)
	}
	if seg.End < 8050*time.Millisecond || seg.End > 8350*time.Millisecond {
		t.Errorf("segment end = %v, want near 8.2s", seg.End)
	}

	stats := result.Statistics
	if stats.WindowsAnalyzed == 0 || stats.WindowsAnalyzed != src.windows {
		t.Errorf("windows analyzed = %d, want %d", stats.WindowsAnalyzed, src.windows)
	}
	if stats.ReductionPercent <= 0 {
		t.Errorf("reduction = %v%%, want positive", stats.ReductionPercent)
	}
	if stats.OriginalDuration != 10*time.Second {
		t.Errorf("original duration = %v", stats.OriginalDuration)
	}
}

func TestSpeechDucksMusicBed(t *testing.T) {
	cfg := config.Default()

	src := newFakeSource(&cfg, 10, speechBetweenSilences)
	p := New(&cfg, logging.NewNop(), WithSource(sourceOpener(src)))
	result, err := p.Run(context.Background(), "take1.wav")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	curves := result.Plan.Ducking
	if len(curves) == 0 {
		t.Fatal("ducking enabled with speech present, want at least one curve")
	}
	curve := curves[0]
	if curve.Target != automation.TargetMusic {
		t.Errorf("curve target = %s, want music", curve.Target)
	}

	// Mid-speech the bed sits at the configured duck gain; well before the
	// attack ramp it is back at unity.
	seg := result.Plan.Segments[0]
	want := dsp.DBToLinear(cfg.Mix.DuckingGainDB)
	mid := seg.Start + seg.Duration()/2
	if got := curve.GainAt(mid); math.Abs(got-want) > 1e-9 {
		t.Errorf("gain at %v = %v, want %v", mid, got, want)
	}
	if got := curve.GainAt(500 * time.Millisecond); got != 1 {
		t.Errorf("gain before speech = %v, want unity", got)
	}
}

func TestDuckingDisabledEmitsNoCurves(t *testing.T) {
	cfg := config.Default()
	cfg.Mix.EnableVoiceDucking = false

	src := newFakeSource(&cfg, 10, speechBetweenSilences)
	p := New(&cfg, logging.NewNop(), WithSource(sourceOpener(src)))
	result, err := p.Run(context.Background(), "take1.wav")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Plan.Ducking) != 0 {
		t.Errorf("got %d ducking curves with ducking disabled, want none", len(result.Plan.Ducking))
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := config.Default()

	runOnce := func() (*fakeSource, []time.Duration) {
		src := newFakeSource(&cfg, 10, speechBetweenSilences)
		p := New(&cfg, logging.NewNop(), WithSource(sourceOpener(src)))
		result, err := p.Run(context.Background(), "take1.wav")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var bounds []time.Duration
		for _, seg := range result.Plan.Segments {
			bounds = append(bounds, seg.Start, seg.End)
		}
		return src, bounds
	}

	_, first := runOnce()
	_, second := runOnce()
	if len(first) != len(second) {
		t.Fatalf("segment bounds differ in count: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("bound %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestCancellationYieldsNoPlan(t *testing.T) {
	cfg := config.Default()
	ctx, cancel := context.WithCancel(context.Background())

	src := newFakeSource(&cfg, 10, speechBetweenSilences)
	src.onWindow = func(index int) {
		if index == 100 {
			cancel()
		}
	}
	p := New(&cfg, logging.NewNop(), WithSource(sourceOpener(src)))

	result, err := p.Run(ctx, "take1.wav")
	if result != nil {
		t.Fatal("cancelled run must not return a plan")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if p.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", p.State())
	}
}

func TestOpenFailureIsFatal(t *testing.T) {
	cfg := config.Default()
	openErr := services.Wrap(services.ErrInput, "extractor", "open", "no audio track", nil)
	p := New(&cfg, logging.NewNop(), WithSource(failingOpener(openErr)))

	result, err := p.Run(context.Background(), "slides.pdf")
	if result != nil {
		t.Fatal("failed run must not return a plan")
	}
	if !errors.Is(err, services.ErrInput) {
		t.Errorf("err = %v, want input error", err)
	}
	if p.State() != StateFailed {
		t.Errorf("state = %s, want failed", p.State())
	}
}

// stuckClassifier never answers within any deadline.
type stuckClassifier struct{}

func (stuckClassifier) Classify(ctx context.Context, f analysis.SpectralFeatures) (classify.Classification, error) {
	<-ctx.Done()
	return classify.Classification{}, ctx.Err()
}

func TestSlowClassifierDegradesInsteadOfStalling(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.ClassifyTimeoutMs = 1

	src := newFakeSource(&cfg, 1, speechBetweenSilences)
	p := New(&cfg, logging.NewNop(),
		WithSource(sourceOpener(src)),
		WithClassifier(stuckClassifier{}))

	result, err := p.Run(context.Background(), "take1.wav")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Statistics.WindowsDegraded != result.Statistics.WindowsAnalyzed {
		t.Errorf("degraded = %d of %d windows, want all",
			result.Statistics.WindowsDegraded, result.Statistics.WindowsAnalyzed)
	}
	if p.State() != StateCompleted {
		t.Errorf("state = %s, want completed", p.State())
	}
}

// fixedQuality scores every range with the same value.
type fixedQuality struct{ score float64 }

func (q fixedQuality) QualityAt(start, end time.Duration) (float64, bool) {
	return q.score, true
}

func TestQualityGateRejectsMusicWindows(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.QualityGateEnabled = true
	cfg.Analysis.QualityGateThreshold = 0.6

	// Broadband-ish loud content the classifier reads as music.
	music := func(t float64) float32 {
		v := 0.08 * (math.Sin(2*math.Pi*120*t) +
			math.Sin(2*math.Pi*4000*t) +
			math.Sin(2*math.Pi*9000*t))
		return float32(v)
	}

	keepRun := func(score float64) int {
		src := newFakeSource(&cfg, 5, music)
		p := New(&cfg, logging.NewNop(),
			WithSource(sourceOpener(src)),
			WithQualityProvider(fixedQuality{score: score}))
		result, err := p.Run(context.Background(), "clip.mov")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return result.Statistics.WindowsKept
	}

	goodVideo := keepRun(0.9)
	badVideo := keepRun(0.3)
	if goodVideo == 0 {
		t.Fatal("good-quality music kept nothing")
	}
	if badVideo >= goodVideo {
		t.Errorf("bad video kept %d windows, good video %d; gate had no effect", badVideo, goodVideo)
	}
}

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateExtracting, true},
		{StateExtracting, StateAnalyzing, true},
		{StateAnalyzing, StateDeciding, true},
		{StateDeciding, StateAssembling, true},
		{StateAssembling, StateCompleted, true},
		{StateAnalyzing, StateFailed, true},
		{StateIdle, StateCancelled, true},
		{StateCompleted, StateExtracting, false},
		{StateFailed, StateAnalyzing, false},
		{StateIdle, StateDeciding, false},
		{StateExtracting, StateCompleted, false},
	}
	for _, tc := range cases {
		if got := validTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("validTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
