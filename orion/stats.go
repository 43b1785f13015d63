package orion

import (
	"log/slog"
	"time"
)

// FrameTimes keeps a moving average of the time between presentations.
type FrameTimes struct {
	FrameCount      uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration

	// Delta time to previous frame
	Delta time.Duration

	lastTime time.Time
}

func (t *FrameTimes) update(d time.Duration) {
	const window = 64

	t.Delta = d
	t.MaxDuration = max(t.MaxDuration, d)

	if t.FrameCount < window/2 {
		t.AverageDuration = d
	} else {
		t.AverageDuration = ((window-1)*t.AverageDuration + d) / window
	}
}

func (t *FrameTimes) FPS() float64 {
	if t.AverageDuration <= 0 {
		return 0
	}

	return 1.0 / t.AverageDuration.Seconds()
}

// Tick records a frame at the given time. It returns true every 60 frames.
func (t *FrameTimes) Tick(now time.Time) bool {
	if t.FrameCount > 0 {
		t.update(now.Sub(t.lastTime))
	}

	t.lastTime = now
	t.FrameCount += 1

	return t.FrameCount%60 == 0
}

// FramePhases holds the time spent in each step of the last frame.
type FramePhases struct {
	Acquire time.Duration
	Record  time.Duration
	Submit  time.Duration
	Present time.Duration
}

func (p FramePhases) Total() time.Duration {
	return p.Acquire + p.Record + p.Submit + p.Present
}

// phaseTimer measures consecutive phases of a frame.
type phaseTimer struct {
	last time.Time
}

func startPhases() phaseTimer {
	return phaseTimer{last: time.Now()}
}

// lap returns the time since the previous lap.
func (p *phaseTimer) lap() time.Duration {
	now := time.Now()
	d := now.Sub(p.last)
	p.last = now
	return d
}

func logFrameStats(times *FrameTimes, phases FramePhases) {
	slog.Info("Frame stats",
		slog.Uint64("frames", times.FrameCount),
		slog.Float64("fps", times.FPS()),
		slog.Duration("avg", times.AverageDuration),
		slog.Duration("max", times.MaxDuration),
		slog.Duration("acquire", phases.Acquire),
		slog.Duration("record", phases.Record),
		slog.Duration("submit", phases.Submit),
		slog.Duration("present", phases.Present),
	)
}
