package segment

import (
	"log/slog"
	"time"

	"derush/internal/classify"
	"derush/internal/config"
	"derush/internal/decision"
	"derush/internal/logging"
)

// ApprovedSegment is one source time range that survives the edit. Immutable
// once emitted by the assembler.
type ApprovedSegment struct {
	Start   time.Duration
	End     time.Duration
	Quality float64
	Content classify.ContentType
}

// Duration returns the segment's source span.
func (s ApprovedSegment) Duration() time.Duration {
	return s.End - s.Start
}

// building accumulates one run of consecutive keeps before padding and
// merging.
type building struct {
	start      time.Duration
	end        time.Duration
	qualitySum float64
	windows    int
	content    map[classify.ContentType]int
}

// Assembler folds ordered decisions into approved segments. Feed every
// decision through Add, then call Finish once with the asset duration.
// Not safe for concurrent use.
type Assembler struct {
	minSegment time.Duration
	mergeGap   time.Duration
	padBefore  time.Duration
	padAfter   time.Duration
	logger     *slog.Logger

	current *building
	runs    []building
}

// New constructs an Assembler from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Assembler {
	return &Assembler{
		minSegment: time.Duration(cfg.Segments.MinimumSegmentSeconds * float64(time.Second)),
		mergeGap:   time.Duration(cfg.Segments.MergeGapSeconds * float64(time.Second)),
		padBefore:  time.Duration(cfg.Segments.PaddingBeforeMs) * time.Millisecond,
		padAfter:   time.Duration(cfg.Segments.PaddingAfterMs) * time.Millisecond,
		logger:     logging.NewComponentLogger(logger, "segment-assembler"),
	}
}

// Add folds one decision in. Decisions must arrive in timestamp order.
func (a *Assembler) Add(d decision.Decision) {
	if !d.Keep {
		a.closeRun()
		return
	}
	end := d.Cut + d.WindowDuration
	if a.current == nil {
		a.current = &building{
			start:   d.Cut,
			end:     end,
			content: make(map[classify.ContentType]int),
		}
	}
	if end > a.current.end {
		a.current.end = end
	}
	a.current.qualitySum += d.Quality
	a.current.windows++
	a.current.content[d.Content]++
}

// Finish pads, coalesces, and filters the accumulated runs. The asset
// duration clamps padding at the edges. The assembler is ready for a new
// asset afterwards.
func (a *Assembler) Finish(assetDuration time.Duration) []ApprovedSegment {
	a.closeRun()
	runs := a.runs
	a.runs = nil

	segments := make([]ApprovedSegment, 0, len(runs))
	for _, run := range runs {
		segments = append(segments, a.pad(run, assetDuration))
	}
	segments = a.coalesce(segments)

	out := segments[:0]
	for _, seg := range segments {
		if seg.Duration() < a.minSegment {
			a.logger.Debug("dropping short isolated segment",
				logging.Args(
					logging.Duration("start", seg.Start),
					logging.Duration("duration", seg.Duration()),
				)...)
			continue
		}
		out = append(out, seg)
	}
	return out
}

func (a *Assembler) closeRun() {
	if a.current == nil {
		return
	}
	a.runs = append(a.runs, *a.current)
	a.current = nil
}

// pad converts a raw run into a segment, widening speech boundaries so
// breaths and room resonance survive the cut.
func (a *Assembler) pad(run building, assetDuration time.Duration) ApprovedSegment {
	seg := ApprovedSegment{
		Start:   run.start,
		End:     run.end,
		Quality: run.qualitySum / float64(run.windows),
		Content: dominantContent(run.content),
	}
	if seg.Content == classify.ContentSpeech {
		seg.Start -= a.padBefore
		seg.End += a.padAfter
	}
	if seg.Start < 0 {
		seg.Start = 0
	}
	if assetDuration > 0 && seg.End > assetDuration {
		seg.End = assetDuration
	}
	return seg
}

// coalesce merges segments separated by less than the merge gap, or
// overlapping after padding. Quality averages weighted by duration.
func (a *Assembler) coalesce(segments []ApprovedSegment) []ApprovedSegment {
	if len(segments) < 2 {
		return segments
	}
	out := segments[:1]
	for _, seg := range segments[1:] {
		last := &out[len(out)-1]
		if seg.Start-last.End > a.mergeGap {
			out = append(out, seg)
			continue
		}
		lastDur := last.Duration().Seconds()
		segDur := seg.Duration().Seconds()
		if total := lastDur + segDur; total > 0 {
			last.Quality = (last.Quality*lastDur + seg.Quality*segDur) / total
		}
		if seg.End > last.End {
			last.End = seg.End
		}
		if seg.Content == classify.ContentSpeech {
			last.Content = classify.ContentSpeech
		}
	}
	return out
}

// dominantContent picks the majority classification for the run, preferring
// speech on a tie.
func dominantContent(counts map[classify.ContentType]int) classify.ContentType {
	best := classify.ContentNoise
	bestCount := -1
	for _, content := range []classify.ContentType{classify.ContentSpeech, classify.ContentMusic, classify.ContentNoise} {
		if counts[content] > bestCount {
			best = content
			bestCount = counts[content]
		}
	}
	return best
}
