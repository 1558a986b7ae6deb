package pipeline

// Stage is one phase of the ingestion pipeline. Each stage owns a fixed
// slice of the overall 0-100 progress range, so percentage math lives here
// instead of being scattered through the stage bodies.
type Stage int

const (
	StageFetch Stage = iota
	StageExtract
	StageEmbed
	StageIndex
)

type band struct {
	start, end int
}

var bands = map[Stage]band{
	StageFetch:   {10, 25},
	StageExtract: {25, 60},
	StageEmbed:   {60, 85},
	StageIndex:   {85, 95},
}

// Band returns the stage's (start, end) percentage range.
func Band(s Stage) (int, int) {
	b := bands[s]
	return b.start, b.end
}

// Interpolate maps done-of-total linearly into the stage's band. The result
// is clamped to the band, so a caller feeding non-decreasing done values
// always observes non-decreasing percentages, topping out at the band's end
// when the stage finishes.
func Interpolate(s Stage, done, total int) int {
	b := bands[s]
	if total <= 0 || done >= total {
		return b.end
	}
	if done < 0 {
		done = 0
	}
	return b.start + (b.end-b.start)*done/total
}

// emitStride bounds how often per-chunk progress is emitted: the first,
// last, and every Nth unit, so large documents don't flood the notifier.
func emitStride(total int) int {
	stride := total / 20
	if stride < 1 {
		stride = 1
	}
	return stride
}
