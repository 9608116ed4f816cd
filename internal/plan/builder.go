package plan

import (
	"time"

	"derush/internal/automation"
	"derush/internal/segment"
	"derush/internal/services"
)

// BuildInput carries everything the builder needs from the pipeline.
type BuildInput struct {
	SourcePath       string
	OriginalDuration time.Duration
	Segments         []segment.ApprovedSegment
	Crossfades       []automation.Crossfade
	Ducking          []automation.Curve
	WindowsAnalyzed  int
	WindowsKept      int
	WindowsDegraded  int
	ProcessingTime   time.Duration
}

// Builder validates assembled output and emits the immutable plan.
type Builder struct{}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build checks that segments are time-ordered and non-overlapping in source
// time, that the approved material fits the original duration, and that every
// automation curve is well-formed, then emits the plan and its statistics.
func (b *Builder) Build(in BuildInput) (*EditResult, error) {
	var approved time.Duration
	for i, seg := range in.Segments {
		if seg.End <= seg.Start {
			return nil, services.Wrap(services.ErrInput, "plan", "build", "segment with non-positive duration", nil)
		}
		if i > 0 && seg.Start < in.Segments[i-1].End {
			return nil, services.Wrap(services.ErrInput, "plan", "build", "segments overlap in source time", nil)
		}
		approved += seg.Duration()
	}
	if in.OriginalDuration > 0 && approved > in.OriginalDuration {
		return nil, services.Wrap(services.ErrInput, "plan", "build", "approved duration exceeds source duration", nil)
	}

	var overlap time.Duration
	for _, fade := range in.Crossfades {
		if err := fade.FadeOut.Validate(); err != nil {
			return nil, err
		}
		if err := fade.FadeIn.Validate(); err != nil {
			return nil, err
		}
		overlap += fade.Duration
	}
	for _, curve := range in.Ducking {
		if err := curve.Validate(); err != nil {
			return nil, err
		}
	}

	// Crossfaded regions play both segments at once, so the timeline is
	// shorter than the material by the declared overlaps.
	final := approved - overlap

	plan := &CompositionPlan{
		ID:               newPlanID(),
		SourcePath:       in.SourcePath,
		CreatedAt:        time.Now().UTC(),
		Segments:         in.Segments,
		Crossfades:       in.Crossfades,
		Ducking:          in.Ducking,
		OriginalDuration: in.OriginalDuration,
		FinalDuration:    final,
	}

	stats := EditStatistics{
		OriginalDuration: in.OriginalDuration,
		FinalDuration:    final,
		SegmentCount:     len(in.Segments),
		WindowsAnalyzed:  in.WindowsAnalyzed,
		WindowsKept:      in.WindowsKept,
		WindowsDegraded:  in.WindowsDegraded,
		MeanQuality:      meanQuality(in.Segments),
		ProcessingTime:   in.ProcessingTime,
	}
	if in.OriginalDuration > 0 {
		removed := in.OriginalDuration - final
		stats.ReductionPercent = 100 * float64(removed) / float64(in.OriginalDuration)
	}

	return &EditResult{Plan: plan, Statistics: stats}, nil
}

func meanQuality(segments []segment.ApprovedSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	var weighted float64
	var total time.Duration
	for _, seg := range segments {
		weighted += seg.Quality * seg.Duration().Seconds()
		total += seg.Duration()
	}
	if total == 0 {
		return 0
	}
	return weighted / total.Seconds()
}
