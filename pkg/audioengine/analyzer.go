package audioengine

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/faiface/beep"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const fftSize = 1024

// Stats summarises one decoded sample.
type Stats struct {
	Frames   int
	Duration time.Duration
	Peak     float64
	RMS      float64
	Centroid float64 // Hz
}

// Analyze menghitung ringkasan level dan pusat spektrum dari buffer.
func Analyze(buf *beep.Buffer) Stats {
	rate := buf.Format().SampleRate
	st := Stats{
		Frames:   buf.Len(),
		Duration: rate.D(buf.Len()),
	}
	if st.Frames == 0 {
		return st
	}

	mono := make([]float64, 0, st.Frames)
	var sum float64
	each(buf, func(chunk [][2]float64) {
		for _, s := range chunk {
			st.Peak = math.Max(st.Peak, math.Max(math.Abs(s[0]), math.Abs(s[1])))
			sum += s[0]*s[0] + s[1]*s[1]
			mono = append(mono, (s[0]+s[1])/2)
		}
	})
	st.RMS = math.Sqrt(sum / float64(st.Frames*2))
	st.Centroid = centroid(mono, float64(rate))
	return st
}

// centroid averages Hann-windowed magnitude spectra over whole blocks. A
// trailing partial block is skipped unless it is the only one.
func centroid(mono []float64, rate float64) float64 {
	spectrum := make([]float64, fftSize/2)
	block := make([]float64, fftSize)
	for start := 0; start == 0 || start+fftSize <= len(mono); start += fftSize {
		clear(block)
		copy(block, mono[start:])
		window.Apply(block, window.Hann)
		coeffs := fft.FFTReal(block)
		for k := range spectrum {
			spectrum[k] += cmplx.Abs(coeffs[k])
		}
	}

	var weighted, total float64
	binHz := rate / fftSize
	for k, mag := range spectrum {
		weighted += float64(k) * binHz * mag
		total += mag
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
