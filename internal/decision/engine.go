package decision

import (
	"log/slog"
	"time"

	"derush/internal/analysis"
	"derush/internal/beat"
	"derush/internal/classify"
	"derush/internal/config"
	"derush/internal/logging"
)

// Reason identifies which rule produced a decision.
type Reason string

const (
	// ReasonSpeech marks the hard speech-preservation rule. It is never
	// overridden by loudness or the quality gate.
	ReasonSpeech Reason = "speech-preserved"
	// ReasonSilence marks windows inside a qualifying silence run.
	ReasonSilence Reason = "silence-run"
	// ReasonShortSilence marks quiet windows kept because the run never
	// reached the minimum silence duration.
	ReasonShortSilence Reason = "silence-below-minimum"
	// ReasonMusic marks music kept as an ambient or bed track.
	ReasonMusic Reason = "music-kept"
	// ReasonQualityGate marks music rejected on a failing video quality
	// score despite favorable audio.
	ReasonQualityGate Reason = "quality-gate"
	// ReasonScoreKeep and ReasonScoreReject mark the quality-weighted
	// fallback rule.
	ReasonScoreKeep   Reason = "score-keep"
	ReasonScoreReject Reason = "score-reject"
)

// AnalyzedWindow joins everything known about one window: its spectral
// features, its classification, the nearest detected beat if any, and an
// optional externally supplied video quality score in 0..1.
type AnalyzedWindow struct {
	Features       analysis.SpectralFeatures
	Classification classify.Classification
	Beat           *beat.BeatPoint
	Quality        *float64
}

// Decision is the verdict for one window. Immutable once emitted.
type Decision struct {
	Timestamp      time.Duration
	WindowDuration time.Duration
	Keep           bool
	Quality        float64
	Reason         Reason
	Content        classify.ContentType
	Degraded       bool
	// Cut is the click-free timestamp to splice at if this window ends up
	// on a segment boundary.
	Cut time.Duration
}

// Engine applies the decision rules. Its only cross-window state is the
// current silence run: quiet noise windows are held back until the run either
// reaches the minimum silence duration (flushed as rejects) or breaks early
// (flushed as keeps). Windows must arrive in timestamp order; not safe for
// concurrent use.
type Engine struct {
	silenceThresholdDB float64
	minSilence         time.Duration
	speechThreshold    float64
	gateEnabled        bool
	gateThreshold      float64
	snapTolerance      time.Duration
	hop                time.Duration
	logger             *slog.Logger

	pending     []AnalyzedWindow
	runDuration time.Duration
	rejecting   bool
}

// New constructs an Engine from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		silenceThresholdDB: cfg.Analysis.SilenceThresholdDB,
		minSilence:         time.Duration(cfg.Analysis.MinimumSilenceSeconds * float64(time.Second)),
		speechThreshold:    classify.SpeechThreshold(config.SpeechSensitivity(cfg.Analysis.SpeechSensitivity)),
		gateEnabled:        cfg.Analysis.QualityGateEnabled,
		gateThreshold:      cfg.Analysis.QualityGateThreshold,
		snapTolerance:      cfg.BeatSnapTolerance(),
		hop:                cfg.HopDuration(),
		logger:             logging.NewComponentLogger(logger, "decision-engine"),
	}
}

// Decide evaluates one window. Because silence needs a run length before it
// qualifies, a call may emit zero decisions (window held pending), one, or a
// burst covering the window plus every pending one. Call Flush after the last
// window to release any held run.
func (e *Engine) Decide(w AnalyzedWindow) []Decision {
	if e.isQuietNoise(w) {
		if e.rejecting {
			return []Decision{e.decide(w, false, ReasonSilence)}
		}
		e.pending = append(e.pending, w)
		e.runDuration += e.hop
		if e.runDuration < e.minSilence {
			return nil
		}
		// The run qualified: everything held back goes out as silence.
		e.rejecting = true
		out := make([]Decision, 0, len(e.pending))
		for _, held := range e.pending {
			out = append(out, e.decide(held, false, ReasonSilence))
		}
		e.pending = e.pending[:0]
		return out
	}

	out := e.breakRun()
	return append(out, e.evaluate(w))
}

// Flush releases a trailing silence run that never qualified. The engine is
// ready for a new asset afterwards.
func (e *Engine) Flush() []Decision {
	out := e.breakRun()
	e.rejecting = false
	return out
}

func (e *Engine) isQuietNoise(w AnalyzedWindow) bool {
	return w.Classification.Dominant == classify.ContentNoise &&
		w.Features.IsSilentAt(e.silenceThresholdDB)
}

// breakRun ends the current silence run. Held windows never reached the
// minimum duration, so they are kept: a dip shorter than the minimum must not
// produce a cut.
func (e *Engine) breakRun() []Decision {
	e.rejecting = false
	e.runDuration = 0
	if len(e.pending) == 0 {
		return nil
	}
	out := make([]Decision, 0, len(e.pending))
	for _, held := range e.pending {
		out = append(out, e.decide(held, true, ReasonShortSilence))
	}
	e.pending = e.pending[:0]
	return out
}

func (e *Engine) evaluate(w AnalyzedWindow) Decision {
	c := w.Classification

	if c.Dominant == classify.ContentSpeech && c.Speech >= e.speechThreshold {
		return e.decide(w, true, ReasonSpeech)
	}

	if c.Dominant == classify.ContentMusic {
		if e.gateEnabled && w.Quality != nil && *w.Quality < e.gateThreshold {
			return e.decide(w, false, ReasonQualityGate)
		}
		return e.decide(w, true, ReasonMusic)
	}

	if score := e.score(w); score >= 0.5 {
		return e.decide(w, true, ReasonScoreKeep)
	}
	return e.decide(w, false, ReasonScoreReject)
}

// score blends audio content likelihood with the external quality score when
// one is present.
func (e *Engine) score(w AnalyzedWindow) float64 {
	audio := w.Classification.Speech + w.Classification.Music
	if audio > 1 {
		audio = 1
	}
	if w.Quality == nil {
		return audio
	}
	return 0.5*audio + 0.5**w.Quality
}

func (e *Engine) decide(w AnalyzedWindow, keep bool, reason Reason) Decision {
	return Decision{
		Timestamp:      w.Features.Timestamp,
		WindowDuration: w.Features.WindowDuration,
		Keep:           keep,
		Quality:        e.score(w),
		Reason:         reason,
		Content:        w.Classification.Dominant,
		Degraded:       w.Classification.Degraded,
		Cut:            e.snap(w),
	}
}

// snap picks the splice point for the window: the nearest beat when rhythm
// snapping is on and one lies within tolerance, otherwise the nearest zero
// crossing, otherwise the window start.
func (e *Engine) snap(w AnalyzedWindow) time.Duration {
	ts := w.Features.Timestamp
	if e.snapTolerance > 0 && w.Beat != nil {
		if (w.Beat.Timestamp - ts).Abs() <= e.snapTolerance {
			return w.Beat.Timestamp
		}
	}
	if w.Features.ZeroCrossing > 0 {
		return w.Features.ZeroCrossing
	}
	return ts
}
