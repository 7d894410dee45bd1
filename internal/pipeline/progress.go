package pipeline

// ProgressSink receives percentage updates for one in-flight transfer.
// Implementations must tolerate being called from the transfer goroutine and
// must never block it for long; delivery failures are theirs to swallow.
type ProgressSink func(percent int)

// estimateBitrateKbps feeds the duration-based size estimate used when the
// remote source declares no content length. The estimate is deliberately
// rough; Progress clamps the derived percentage so it can never misreport
// completion.
const estimateBitrateKbps = 160

// EstimateSize derives a plausible byte count for a stream of the given
// duration when no content length was declared. Returns 0 when the duration
// is unknown, which disables percentage reporting.
func EstimateSize(durationSeconds int) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	return int64(durationSeconds) * estimateBitrateKbps * 1000 / 8
}

// Progress tracks a monotonically non-decreasing byte counter against a
// denominator. The derived percentage stays within [0, 99] until Complete is
// called, which forces 100 exactly once.
type Progress struct {
	total     int64
	bytes     int64
	completed bool
}

// NewProgress constructs a tracker for the given denominator. A total of 0
// means unknown; Percent then stays at 0 until completion.
func NewProgress(total int64) *Progress {
	if total < 0 {
		total = 0
	}
	return &Progress{total: total}
}

// Add records n more transferred bytes and returns the current percentage.
func (p *Progress) Add(n int64) int {
	if n > 0 {
		p.bytes += n
	}
	return p.Percent()
}

// Percent returns the clamped progress percentage.
func (p *Progress) Percent() int {
	if p.completed {
		return 100
	}
	if p.total <= 0 {
		return 0
	}
	pct := int(p.bytes * 100 / p.total)
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}

// Bytes returns the byte counter.
func (p *Progress) Bytes() int64 {
	return p.bytes
}

// Complete marks the stream as finished. It reports whether this call was the
// transition, so callers emit the final 100 exactly once.
func (p *Progress) Complete() bool {
	if p.completed {
		return false
	}
	p.completed = true
	return true
}

// StepSink wraps a sink so it only fires when the percentage advances by at
// least step points past the last emitted value, bounding outbound edit
// volume. 100 always passes through.
func StepSink(step int, sink ProgressSink) ProgressSink {
	if step <= 0 {
		step = 10
	}
	last := -step // so 0 may be emitted once if desired by the caller
	return func(percent int) {
		if percent < last {
			return
		}
		if percent == 100 {
			if last != 100 {
				last = 100
				sink(100)
			}
			return
		}
		if percent >= last+step {
			last = percent
			sink(percent)
		}
	}
}

// progressWriter adapts a Progress plus sink into an io.Writer suitable for
// io.MultiWriter alongside the artifact.
type progressWriter struct {
	progress *Progress
	sink     ProgressSink
}

func (w *progressWriter) Write(p []byte) (int, error) {
	pct := w.progress.Add(int64(len(p)))
	if w.sink != nil {
		w.sink(pct)
	}
	return len(p), nil
}
