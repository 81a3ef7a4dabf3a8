package audioengine

import (
	"math"
	"testing"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func bufferOf(rate int, frames [][2]float64) *beep.Buffer {
	buf := beep.NewBuffer(beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 2, Precision: 2})
	buf.Append(&pcmStreamer{samples: frames})
	return buf
}

func TestApplyGain_Clips(t *testing.T) {
	s := [][2]float64{{0.2, -0.2}, {0.6, -0.6}}
	clipped := ApplyGain(s, 2)
	assert.Equal(t, 2, clipped)
	assert.InDelta(t, 0.4, s[0][0], 1e-12)
	assert.Equal(t, 1.0, s[1][0])
	assert.Equal(t, -1.0, s[1][1])
}

func TestApplyGain_StaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "n")
		s := make([][2]float64, n)
		for i := range s {
			s[i][0] = rapid.Float64Range(-1, 1).Draw(t, "l")
			s[i][1] = rapid.Float64Range(-1, 1).Draw(t, "r")
		}
		ApplyGain(s, rapid.Float64Range(0, 4).Draw(t, "gain"))
		for _, v := range s {
			if math.Abs(v[0]) > 1 || math.Abs(v[1]) > 1 {
				t.Fatalf("sample out of range: %v", v)
			}
		}
	})
}

func TestPeak(t *testing.T) {
	buf := bufferOf(48000, [][2]float64{{0.1, -0.7}, {0.3, 0.2}})
	assert.InDelta(t, 0.7, Peak(buf), 1e-3)
}

func TestClipRatio(t *testing.T) {
	buf := bufferOf(48000, [][2]float64{{0.1, 0.1}, {0.6, 0.6}})
	assert.InDelta(t, 0.5, ClipRatio(buf, 2.5), 1e-9)
	assert.Zero(t, ClipRatio(buf, 1))
}

func TestAnalyze_Sine(t *testing.T) {
	buf := bufferOf(48000, sine(1000, 48000, 48000/10, 0.5))

	st := Analyze(buf)
	require.Equal(t, 4800, st.Frames)
	assert.InDelta(t, 0.1, st.Duration.Seconds(), 1e-6)
	assert.InDelta(t, 0.5, st.Peak, 1e-2)
	assert.InDelta(t, 0.5/math.Sqrt2, st.RMS, 1e-2)
	assert.InDelta(t, 1000, st.Centroid, 150)
}

func TestAnalyze_Empty(t *testing.T) {
	st := Analyze(bufferOf(48000, nil))
	assert.Zero(t, st.Frames)
	assert.Zero(t, st.Centroid)
}
