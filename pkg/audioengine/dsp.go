package audioengine

import (
	"math"

	"github.com/faiface/beep"
)

// ApplyGain mengalikan sampel dengan faktor gain lalu memotong ke [-1, 1].
// Returns how many channel values were clipped.
func ApplyGain(samples [][2]float64, gain float64) int {
	clipped := 0
	for i := range samples {
		for c := 0; c < 2; c++ {
			v := samples[i][c] * gain
			if v > 1 {
				v = 1
				clipped++
			} else if v < -1 {
				v = -1
				clipped++
			}
			samples[i][c] = v
		}
	}
	return clipped
}

// Peak is the largest absolute sample value in the buffer.
func Peak(buf *beep.Buffer) float64 {
	var peak float64
	each(buf, func(chunk [][2]float64) {
		for _, s := range chunk {
			peak = math.Max(peak, math.Max(math.Abs(s[0]), math.Abs(s[1])))
		}
	})
	return peak
}

// ClipRatio is the fraction of channel values that leave full scale once the
// buffer is amplified by gain.
func ClipRatio(buf *beep.Buffer, gain float64) float64 {
	if buf.Len() == 0 {
		return 0
	}
	clipped := 0
	each(buf, func(chunk [][2]float64) {
		clipped += ApplyGain(chunk, gain)
	})
	return float64(clipped) / float64(buf.Len()*2)
}

// each walks the buffer in fixed chunks; the chunk is reused between calls.
func each(buf *beep.Buffer, fn func([][2]float64)) {
	s := buf.Streamer(0, buf.Len())
	var tmp [512][2]float64
	for {
		n, ok := s.Stream(tmp[:])
		if n > 0 {
			fn(tmp[:n])
		}
		if !ok {
			return
		}
	}
}
