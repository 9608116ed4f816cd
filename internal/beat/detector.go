package beat

import (
	"log/slog"
	"math"
	"time"

	"derush/internal/analysis"
	"derush/internal/config"
	"derush/internal/logging"
)

// TransientType labels which instrument band fired.
type TransientType string

const (
	TransientKick  TransientType = "kick"
	TransientSnare TransientType = "snare"
	TransientHihat TransientType = "hihat"
	TransientOther TransientType = "other"
)

// BeatPoint is one detected transient.
type BeatPoint struct {
	Timestamp  time.Duration
	Strength   float64
	Transient  TransientType
	Confidence float64
}

const (
	// adaptiveRatio is the fraction of the decaying band peak a window's
	// energy must reach to count as a transient.
	adaptiveRatio = 0.7
	// peakDecay ages the rolling per-band peak so the threshold adapts to
	// quieter passages.
	peakDecay = 0.95
	// averageAlpha is the EMA weight for the per-band energy baseline.
	averageAlpha = 0.2
	// refractory is the minimum gap between transients in the same band.
	refractory = 100 * time.Millisecond
	// beatHistorySize bounds the rolling beat history used for tempo
	// estimation and nearest-beat lookup.
	beatHistorySize = 256
	// tempoBeats is how many recent beats feed the tempo estimate.
	tempoBeats = 10

	minInterval = 200 * time.Millisecond // 300 BPM
	maxInterval = 2 * time.Second        // 30 BPM
	minTempoBPM = 60.0
	maxTempoBPM = 200.0
)

type bandState struct {
	prev     float64
	avg      float64
	peak     float64
	lastFire time.Duration
	fired    bool
}

// Detector tracks per-band energy baselines and emits BeatPoints. Not safe
// for concurrent use; windows must arrive in order.
type Detector struct {
	kick   bandState
	snare  bandState
	hihat  bandState
	beats  []BeatPoint
	next   int
	filled int
	logger *slog.Logger
}

// New constructs a Detector.
func New(_ *config.Config, logger *slog.Logger) *Detector {
	return &Detector{
		beats:  make([]BeatPoint, beatHistorySize),
		logger: logging.NewComponentLogger(logger, "beat-detector"),
	}
}

// Process inspects one window and returns any transients it fired, ordered
// kick, snare, hi-hat. Timestamps are the window start, so they sit within
// one hop of the true onset; the default 10ms hop keeps that inside the cut
// placement precision.
func (d *Detector) Process(f analysis.SpectralFeatures) []BeatPoint {
	var out []BeatPoint
	bands := []struct {
		state     *bandState
		energy    float64
		transient TransientType
	}{
		{&d.kick, f.LowBandEnergy, TransientKick},
		{&d.snare, f.MidBandEnergy, TransientSnare},
		{&d.hihat, f.HighBandEnergy, TransientHihat},
	}
	for _, band := range bands {
		if point, ok := band.state.observe(band.energy, f.Timestamp, band.transient); ok {
			d.remember(point)
			out = append(out, point)
		}
	}
	return out
}

func (s *bandState) observe(energy float64, ts time.Duration, transient TransientType) (BeatPoint, bool) {
	defer func() {
		s.prev = energy
		s.avg = averageAlpha*energy + (1-averageAlpha)*s.avg
		s.peak = math.Max(energy, s.peak*peakDecay)
	}()

	const floor = 1e-9
	if energy < floor {
		return BeatPoint{}, false
	}
	// First energy the band has ever seen counts as its first onset.
	rising := energy > s.prev
	loudEnough := s.peak < floor ||
		(energy >= adaptiveRatio*s.peak && energy > 1.5*s.avg)
	clear := !s.fired || ts-s.lastFire >= refractory
	if !(rising && loudEnough && clear) {
		return BeatPoint{}, false
	}

	s.lastFire = ts
	s.fired = true
	strength := clampUnit(energy / math.Max(s.peak, floor))
	return BeatPoint{
		Timestamp:  ts,
		Strength:   strength,
		Transient:  transient,
		Confidence: strength,
	}, true
}

func (d *Detector) remember(p BeatPoint) {
	d.beats[d.next] = p
	d.next = (d.next + 1) % len(d.beats)
	if d.filled < len(d.beats) {
		d.filled++
	}
}

// recent returns up to n most recent beats, oldest first.
func (d *Detector) recent(n int) []BeatPoint {
	if n > d.filled {
		n = d.filled
	}
	out := make([]BeatPoint, 0, n)
	for i := d.filled - n; i < d.filled; i++ {
		idx := (d.next - d.filled + i + 2*len(d.beats)) % len(d.beats)
		out = append(out, d.beats[idx])
	}
	return out
}

// Tempo estimates BPM from the inter-beat intervals of the most recent
// beats. Intervals outside the plausible 0.2s-2s range are discarded; the
// estimate is accepted only within 60-200 BPM.
func (d *Detector) Tempo() (float64, bool) {
	beats := d.recent(tempoBeats)
	if len(beats) < 2 {
		return 0, false
	}
	var sum time.Duration
	count := 0
	for i := 1; i < len(beats); i++ {
		interval := beats[i].Timestamp - beats[i-1].Timestamp
		if interval < minInterval || interval > maxInterval {
			continue
		}
		sum += interval
		count++
	}
	if count == 0 {
		return 0, false
	}
	mean := sum / time.Duration(count)
	bpm := 60.0 / mean.Seconds()
	if bpm < minTempoBPM || bpm > maxTempoBPM {
		return 0, false
	}
	return bpm, true
}

// Nearest returns the beat closest to ts from the rolling history.
func (d *Detector) Nearest(ts time.Duration) (BeatPoint, bool) {
	if d.filled == 0 {
		return BeatPoint{}, false
	}
	var best BeatPoint
	bestDist := time.Duration(math.MaxInt64)
	for _, beat := range d.recent(d.filled) {
		dist := beat.Timestamp - ts
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestDist = dist
			best = beat
		}
	}
	return best, true
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
