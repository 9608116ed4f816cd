package plan

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"derush/internal/automation"
	"derush/internal/classify"
	"derush/internal/segment"
	"derush/internal/services"
)

func approvedSeg(start, end time.Duration, quality float64) segment.ApprovedSegment {
	return segment.ApprovedSegment{Start: start, End: end, Quality: quality, Content: classify.ContentSpeech}
}

func TestBuildAccountsForCrossfadeOverlap(t *testing.T) {
	fade := automation.Crossfade{
		At:       1980 * time.Millisecond,
		Duration: 20 * time.Millisecond,
		FadeOut: automation.Curve{Kind: automation.KindFadeOut, Target: automation.TargetVoice, Points: []automation.Point{
			{Time: 1980 * time.Millisecond, Gain: 1}, {Time: 2 * time.Second, Gain: 0},
		}},
		FadeIn: automation.Curve{Kind: automation.KindFadeIn, Target: automation.TargetVoice, Points: []automation.Point{
			{Time: 1980 * time.Millisecond, Gain: 0}, {Time: 2 * time.Second, Gain: 1},
		}},
	}

	result, err := NewBuilder().Build(BuildInput{
		SourcePath:       "talk.wav",
		OriginalDuration: 10 * time.Second,
		Segments: []segment.ApprovedSegment{
			approvedSeg(0, 2*time.Second, 0.9),
			approvedSeg(3*time.Second, 5*time.Second, 0.7),
		},
		Crossfades:      []automation.Crossfade{fade},
		WindowsAnalyzed: 800,
		WindowsKept:     340,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 4s of material minus the 20ms declared overlap.
	wantFinal := 4*time.Second - 20*time.Millisecond
	if result.Plan.FinalDuration != wantFinal {
		t.Errorf("final duration = %v, want %v", result.Plan.FinalDuration, wantFinal)
	}
	if got, want := result.Statistics.SegmentCount, 2; got != want {
		t.Errorf("segment count = %d, want %d", got, want)
	}
	wantReduction := 100 * float64(10*time.Second-wantFinal) / float64(10*time.Second)
	if math.Abs(result.Statistics.ReductionPercent-wantReduction) > 1e-9 {
		t.Errorf("reduction = %v%%, want %v%%", result.Statistics.ReductionPercent, wantReduction)
	}
	if result.Plan.ID == "" {
		t.Error("plan must carry an ID")
	}
}

func TestBuildRejectsOverlappingSegments(t *testing.T) {
	_, err := NewBuilder().Build(BuildInput{
		OriginalDuration: 10 * time.Second,
		Segments: []segment.ApprovedSegment{
			approvedSeg(0, 3*time.Second, 0.9),
			approvedSeg(2*time.Second, 5*time.Second, 0.9),
		},
	})
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("overlapping segments: err = %v, want input error", err)
	}
}

func TestBuildRejectsApprovedLongerThanSource(t *testing.T) {
	_, err := NewBuilder().Build(BuildInput{
		OriginalDuration: 3 * time.Second,
		Segments: []segment.ApprovedSegment{
			approvedSeg(0, 2*time.Second, 0.9),
			approvedSeg(2*time.Second, 5*time.Second, 0.9),
		},
	})
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("overlong plan: err = %v, want input error", err)
	}
}

func TestBuildRejectsInvalidCurve(t *testing.T) {
	_, err := NewBuilder().Build(BuildInput{
		OriginalDuration: 10 * time.Second,
		Segments:         []segment.ApprovedSegment{approvedSeg(0, 2*time.Second, 0.9)},
		Ducking: []automation.Curve{{
			Kind: automation.KindDucking, Target: automation.TargetMusic,
			Points: []automation.Point{{Time: time.Second, Gain: 0.2}},
		}},
	})
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("single-point curve: err = %v, want input error", err)
	}
}

func TestMeanQualityIsDurationWeighted(t *testing.T) {
	result, err := NewBuilder().Build(BuildInput{
		OriginalDuration: 10 * time.Second,
		Segments: []segment.ApprovedSegment{
			approvedSeg(0, 3*time.Second, 1.0),
			approvedSeg(4*time.Second, 5*time.Second, 0.2),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := (1.0*3 + 0.2*1) / 4
	if math.Abs(result.Statistics.MeanQuality-want) > 1e-9 {
		t.Errorf("mean quality = %v, want %v", result.Statistics.MeanQuality, want)
	}
}

func TestWriteEDL(t *testing.T) {
	result, err := NewBuilder().Build(BuildInput{
		SourcePath:       "talk.wav",
		OriginalDuration: 10 * time.Second,
		Segments: []segment.ApprovedSegment{
			approvedSeg(1850*time.Millisecond, 8200*time.Millisecond, 0.9),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	if err := result.Plan.WriteEDL(&buf, "scene 4"); err != nil {
		t.Fatalf("WriteEDL: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "TITLE: scene 4\n") {
		t.Errorf("missing title header:\n%s", out)
	}
	// 1.85s at 25fps is frame 46: 00:00:01:21.
	if !strings.Contains(out, "001  AX       AA  C        00:00:01:21 00:00:08:05 00:00:00:00 00:00:06:08") {
		t.Errorf("unexpected event line:\n%s", out)
	}
}
