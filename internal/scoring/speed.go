package scoring

// SpeedLevel classifies how quickly a student answered relative to the class.
type SpeedLevel string

const (
	SpeedVeryFast     SpeedLevel = "very_fast"
	SpeedFast         SpeedLevel = "fast"
	SpeedNormal       SpeedLevel = "normal"
	SpeedSlightlySlow SpeedLevel = "slightly_slow"
	SpeedVerySlow     SpeedLevel = "very_slow"
	SpeedUnknown      SpeedLevel = ""
)

const (
	// MinElapsedSeconds guards against near-zero client timings.
	MinElapsedSeconds = 1.5
	// LongQuestionSeconds is the class average above which the coarser bands apply.
	LongQuestionSeconds = 25.0
)

// ClassifySpeed compares a student's elapsed time with the class average for the
// same question. A non-positive class average yields SpeedUnknown.
func ClassifySpeed(studentElapsed, classAverage float64) SpeedLevel {
	if classAverage <= 0 {
		return SpeedUnknown
	}
	if studentElapsed < MinElapsedSeconds {
		studentElapsed = MinElapsedSeconds
	}

	ratio := studentElapsed / classAverage

	if classAverage > LongQuestionSeconds {
		switch {
		case ratio <= 0.8:
			return SpeedFast
		case ratio <= 1.2:
			return SpeedNormal
		default:
			return SpeedSlightlySlow
		}
	}

	switch {
	case ratio <= 0.6:
		return SpeedVeryFast
	case ratio <= 1.0:
		return SpeedFast
	case ratio <= 1.4:
		return SpeedSlightlySlow
	default:
		return SpeedVerySlow
	}
}

// SpeedSample pairs a student's time on one round with the class average for it.
type SpeedSample struct {
	Elapsed      float64
	ClassAverage float64
}

// ClassifyOverallSpeed compares the student's mean time with the class mean taken
// over the same rounds. Samples without a class average are skipped.
func ClassifyOverallSpeed(samples []SpeedSample) SpeedLevel {
	var studentTotal, classTotal float64
	var count int
	for _, sample := range samples {
		if sample.ClassAverage <= 0 {
			continue
		}
		studentTotal += sample.Elapsed
		classTotal += sample.ClassAverage
		count++
	}
	if count == 0 {
		return SpeedUnknown
	}
	return ClassifySpeed(studentTotal/float64(count), classTotal/float64(count))
}
