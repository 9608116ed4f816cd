package automation

import (
	"time"

	"derush/internal/config"
	"derush/internal/segment"
)

// Crossfade declares one boundary transition in the output timeline. The
// outgoing segment fades to zero while the incoming one fades up over the
// same span, so the regions overlap by Duration.
type Crossfade struct {
	// At is the output-timeline position where the fade begins.
	At       time.Duration `json:"at"`
	Duration time.Duration `json:"duration"`
	FadeOut  Curve         `json:"fade_out"`
	FadeIn   Curve         `json:"fade_in"`
}

// CrossfadeProcessor places a fade at every interior boundary of the
// assembled timeline.
type CrossfadeProcessor struct {
	duration time.Duration
}

// NewCrossfadeProcessor constructs a processor with the configured fade
// length.
func NewCrossfadeProcessor(cfg *config.Config) *CrossfadeProcessor {
	return &CrossfadeProcessor{
		duration: time.Duration(cfg.Mix.CrossfadeMs) * time.Millisecond,
	}
}

// Process emits one crossfade per boundary between consecutive segments.
// Segments shorter than twice the fade get no fade on that side rather than
// a fade longer than the material.
func (p *CrossfadeProcessor) Process(segments []segment.ApprovedSegment) []Crossfade {
	if p.duration <= 0 || len(segments) < 2 {
		return nil
	}
	out := make([]Crossfade, 0, len(segments)-1)
	elapsed := time.Duration(0)
	for i, seg := range segments {
		if i == len(segments)-1 {
			break
		}
		fade := p.duration
		if half := seg.Duration() / 2; fade > half {
			fade = half
		}
		if half := segments[i+1].Duration() / 2; fade > half {
			fade = half
		}
		elapsed += seg.Duration()
		start := elapsed - fade
		out = append(out, Crossfade{
			At:       start,
			Duration: fade,
			FadeOut: Curve{
				Kind:   KindFadeOut,
				Target: TargetVoice,
				Points: []Point{{Time: start, Gain: 1}, {Time: start + fade, Gain: 0}},
			},
			FadeIn: Curve{
				Kind:   KindFadeIn,
				Target: TargetVoice,
				Points: []Point{{Time: start, Gain: 0}, {Time: start + fade, Gain: 1}},
			},
		})
		// The incoming segment starts under the fade, shortening the
		// timeline by the overlap.
		elapsed -= fade
	}
	return out
}
