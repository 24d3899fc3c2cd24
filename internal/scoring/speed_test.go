package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifySpeedRatioBands(t *testing.T) {
	cases := []struct {
		name    string
		elapsed float64
		average float64
		want    SpeedLevel
	}{
		{name: "very fast", elapsed: 3, average: 10, want: SpeedVeryFast},
		{name: "fast at average", elapsed: 10, average: 10, want: SpeedFast},
		{name: "slightly slow", elapsed: 13, average: 10, want: SpeedSlightlySlow},
		{name: "very slow", elapsed: 15, average: 10, want: SpeedVerySlow},
		{name: "clamped misfire", elapsed: 0.1, average: 2, want: SpeedFast},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifySpeed(tc.elapsed, tc.average))
		})
	}
}

func TestClassifySpeedLongQuestionBands(t *testing.T) {
	require.Equal(t, SpeedFast, ClassifySpeed(21, 30))
	require.Equal(t, SpeedNormal, ClassifySpeed(33, 30))
	require.Equal(t, SpeedSlightlySlow, ClassifySpeed(60, 30))
}

func TestClassifySpeedWithoutAverage(t *testing.T) {
	require.Equal(t, SpeedUnknown, ClassifySpeed(5, 0))
}

func TestClassifyOverallSpeedUsesMatchingRounds(t *testing.T) {
	samples := []SpeedSample{
		{Elapsed: 3, ClassAverage: 6},
		{Elapsed: 4, ClassAverage: 8},
		{Elapsed: 90, ClassAverage: 0},
	}
	require.Equal(t, SpeedVeryFast, ClassifyOverallSpeed(samples))
	require.Equal(t, SpeedUnknown, ClassifyOverallSpeed(nil))
	require.Equal(t, SpeedUnknown, ClassifyOverallSpeed([]SpeedSample{{Elapsed: 5}}))
}
