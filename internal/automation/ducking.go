package automation

import (
	"sort"
	"time"

	"derush/internal/config"
	"derush/internal/dsp"
	"derush/internal/segment"
)

// VoiceDuckingAutomator pulls the music bed down wherever speech plays over
// it, with ramped attack and release instead of a step change.
type VoiceDuckingAutomator struct {
	enabled  bool
	duckGain float64
	attack   time.Duration
	release  time.Duration
}

// NewVoiceDuckingAutomator constructs an automator from configuration.
func NewVoiceDuckingAutomator(cfg *config.Config) *VoiceDuckingAutomator {
	return &VoiceDuckingAutomator{
		enabled:  cfg.Mix.EnableVoiceDucking,
		duckGain: dsp.DBToLinear(cfg.Mix.DuckingGainDB),
		attack:   time.Duration(cfg.Mix.DuckAttackMs) * time.Millisecond,
		release:  time.Duration(cfg.Mix.DuckReleaseMs) * time.Millisecond,
	}
}

// Duck emits one gain curve on the music track per region where a speech
// segment overlaps a music segment. Abutting or overlapping speech regions
// are merged first so curves never overlap each other.
func (v *VoiceDuckingAutomator) Duck(speech, music []segment.ApprovedSegment) []Curve {
	if !v.enabled || len(speech) == 0 || len(music) == 0 {
		return nil
	}

	var overlaps []timeRange
	for _, m := range music {
		for _, s := range speech {
			start := maxDuration(s.Start, m.Start)
			end := minDuration(s.End, m.End)
			if start < end {
				overlaps = append(overlaps, timeRange{start, end})
			}
		}
	}
	if len(overlaps) == 0 {
		return nil
	}
	overlaps = mergeRanges(overlaps, v.attack+v.release)

	curves := make([]Curve, 0, len(overlaps))
	for _, r := range overlaps {
		curves = append(curves, v.curve(r))
	}
	return curves
}

func (v *VoiceDuckingAutomator) curve(r timeRange) Curve {
	points := make([]Point, 0, 4)
	if attackStart := r.start - v.attack; attackStart >= 0 && attackStart < r.start {
		points = append(points, Point{Time: attackStart, Gain: 1})
	}
	points = append(points,
		Point{Time: r.start, Gain: v.duckGain},
		Point{Time: r.end, Gain: v.duckGain},
		Point{Time: r.end + v.release, Gain: 1},
	)
	return Curve{Kind: KindDucking, Target: TargetMusic, Points: points}
}

type timeRange struct {
	start, end time.Duration
}

// mergeRanges coalesces ranges closer together than gap, sorted by start.
func mergeRanges(ranges []timeRange, gap time.Duration) []timeRange {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	out := ranges[:1]
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.start-last.end <= gap {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
