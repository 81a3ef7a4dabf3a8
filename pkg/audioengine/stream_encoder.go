package audioengine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"keysound/pkg/spec"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hraban/opus"
)

// EncodeOpusFrames converts a 48 kHz WAV file into the framed opus layout
// read by DecodeOpusFrames. It returns the encoded duration in seconds.
func EncodeOpusFrames(wavPath string, w io.Writer) (float64, error) {
	file, err := os.Open(wavPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s: invalid wav file", wavPath)
	}
	if int(dec.SampleRate) != spec.OpusRate {
		return 0, fmt.Errorf("%s: sample rate %d, need %d", wavPath, dec.SampleRate, spec.OpusRate)
	}
	channels := int(dec.NumChans)
	if channels != 1 && channels != 2 {
		return 0, fmt.Errorf("%s: %d channels not supported", wavPath, channels)
	}
	shift := int(dec.BitDepth) - 16

	enc, err := opus.NewEncoder(spec.OpusRate, channels, opus.AppAudio)
	if err != nil {
		return 0, err
	}

	header := append([]byte(spec.OpusMagic), byte(channels))
	if _, err := w.Write(header); err != nil {
		return 0, err
	}

	pcmBuf := make([]int16, spec.OpusFrameSize*channels)
	opusBuf := make([]byte, 1500)
	var sizeBuf [2]byte

	// baca 1 detik per siklus I/O, kelipatan ukuran frame
	intBuf := &audio.IntBuffer{
		Data:   make([]int, spec.OpusRate*channels),
		Format: &audio.Format{NumChannels: channels, SampleRate: spec.OpusRate},
	}

	total := 0
	for {
		n, err := dec.PCMBuffer(intBuf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if n == 0 {
			break
		}

		for i := 0; i < n; i += len(pcmBuf) {
			batch := min(len(pcmBuf), n-i)
			if batch < len(pcmBuf) {
				clear(pcmBuf)
			}
			for j := 0; j < batch; j++ {
				pcmBuf[j] = toInt16(intBuf.Data[i+j], shift)
			}

			size, err := enc.Encode(pcmBuf, opusBuf)
			if err != nil {
				return 0, fmt.Errorf("opus encode: %w", err)
			}
			binary.BigEndian.PutUint16(sizeBuf[:], uint16(size))
			if _, err := w.Write(sizeBuf[:]); err != nil {
				return 0, err
			}
			if _, err := w.Write(opusBuf[:size]); err != nil {
				return 0, err
			}
			total += batch
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	return float64(total) / float64(spec.OpusRate) / float64(channels), nil
}

func toInt16(v, shift int) int16 {
	switch {
	case shift > 0:
		v >>= shift
	case shift < 0:
		// 8-bit unsigned
		v = (v - 128) << 8
	}
	return int16(v)
}
