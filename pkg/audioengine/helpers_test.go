package audioengine

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, rate, frames int, amp float64) [][2]float64 {
	out := make([][2]float64, frames)
	for i := range out {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
		out[i] = [2]float64{v, v}
	}
	return out
}

// writeWAV stores 16-bit PCM and returns the file path.
func writeWAV(t *testing.T, rate, channels int, frames [][2]float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
	}
	for _, fr := range frames {
		buf.Data = append(buf.Data, int(fr[0]*32767))
		if channels == 2 {
			buf.Data = append(buf.Data, int(fr[1]*32767))
		}
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func readWAV(t *testing.T, rate, channels int, frames [][2]float64) []byte {
	t.Helper()
	data, err := os.ReadFile(writeWAV(t, rate, channels, frames))
	require.NoError(t, err)
	return data
}
