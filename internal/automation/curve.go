package automation

import (
	"time"

	"derush/internal/services"
)

// CurveKind labels what a curve does on its target.
type CurveKind string

const (
	KindFadeIn  CurveKind = "fade-in"
	KindFadeOut CurveKind = "fade-out"
	KindDucking CurveKind = "ducking"
)

// Target names the track a curve applies to.
type Target string

const (
	TargetVoice Target = "voice"
	TargetMusic Target = "music"
)

// Point is one automation breakpoint. Gain is linear, 1.0 is unity.
type Point struct {
	Time time.Duration `json:"time"`
	Gain float64       `json:"gain"`
}

// Curve is an ordered set of gain breakpoints on one target track. Playback
// interpolates linearly between points.
type Curve struct {
	Kind   CurveKind `json:"kind"`
	Target Target    `json:"target"`
	Points []Point   `json:"points"`
}

// Validate checks that points are strictly time-ordered and gains stay in
// a sane range.
func (c Curve) Validate() error {
	if len(c.Points) < 2 {
		return services.Wrap(services.ErrInput, "automation", "validate", "curve needs at least two points", nil)
	}
	for i, p := range c.Points {
		if p.Gain < 0 || p.Gain > 1 {
			return services.Wrap(services.ErrInput, "automation", "validate", "gain out of range", nil)
		}
		if i > 0 && p.Time <= c.Points[i-1].Time {
			return services.Wrap(services.ErrInput, "automation", "validate", "points not time-ordered", nil)
		}
	}
	return nil
}

// GainAt returns the interpolated gain at t. Before the first point the
// first gain holds, after the last the last gain holds.
func (c Curve) GainAt(t time.Duration) float64 {
	if len(c.Points) == 0 {
		return 1
	}
	if t <= c.Points[0].Time {
		return c.Points[0].Gain
	}
	last := c.Points[len(c.Points)-1]
	if t >= last.Time {
		return last.Gain
	}
	for i := 1; i < len(c.Points); i++ {
		if t > c.Points[i].Time {
			continue
		}
		a, b := c.Points[i-1], c.Points[i]
		span := b.Time - a.Time
		frac := float64(t-a.Time) / float64(span)
		return a.Gain + frac*(b.Gain-a.Gain)
	}
	return last.Gain
}
