package audioengine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"keysound/pkg/spec"

	"github.com/faiface/beep"
	"github.com/hraban/opus"
)

// Framed opus layout:
//
//	magic "KSOPX001" | channels uint8 | { size uint16 BE | opus frame }...
const opxHeader = len(spec.OpusMagic) + 1

var ErrBadFrame = errors.New("malformed opus frame stream")

// DecodeOpusFrames decodes a framed opus asset completely.
func DecodeOpusFrames(data []byte) (beep.Streamer, beep.Format, error) {
	if len(data) < opxHeader || string(data[:len(spec.OpusMagic)]) != spec.OpusMagic {
		return nil, beep.Format{}, fmt.Errorf("%w: missing header", ErrBadFrame)
	}
	ch := int(data[len(spec.OpusMagic)])
	if ch != 1 && ch != 2 {
		return nil, beep.Format{}, fmt.Errorf("%w: %d channels", ErrBadFrame, ch)
	}

	dec, err := opus.NewDecoder(spec.OpusRate, ch)
	if err != nil {
		return nil, beep.Format{}, err
	}

	pcm := make([]int16, spec.OpusMaxFrame*ch)
	var out [][2]float64
	for off := opxHeader; off < len(data); {
		if off+2 > len(data) {
			return nil, beep.Format{}, fmt.Errorf("%w: truncated size at %d", ErrBadFrame, off)
		}
		sz := int(binary.BigEndian.Uint16(data[off:]))
		off += 2
		if off+sz > len(data) {
			return nil, beep.Format{}, fmt.Errorf("%w: truncated frame at %d", ErrBadFrame, off)
		}

		n, err := dec.Decode(data[off:off+sz], pcm)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("opus frame at %d: %w", off, err)
		}
		off += sz

		for i := 0; i < n; i++ {
			l := float64(pcm[i*ch]) / 32768.0
			r := l
			if ch == 2 {
				r = float64(pcm[i*ch+1]) / 32768.0
			}
			out = append(out, [2]float64{l, r})
		}
	}

	f := beep.Format{SampleRate: spec.OpusRate, NumChannels: 2, Precision: 2}
	return &pcmStreamer{samples: out}, f, nil
}
