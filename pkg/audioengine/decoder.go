package audioengine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"keysound/pkg/spec"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/go-audio/wav"
)

var (
	ErrUnknownFormat = errors.New("unknown audio format")
	ErrEmpty         = errors.New("decoded audio is empty")
)

// Codec identifies the container of an encoded sample.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecMP3
	CodecWAV
	CodecFLAC
	CodecVorbis
	CodecOpus
)

func (c Codec) String() string {
	switch c {
	case CodecMP3:
		return "mp3"
	case CodecWAV:
		return "wav"
	case CodecFLAC:
		return "flac"
	case CodecVorbis:
		return "vorbis"
	case CodecOpus:
		return "opus"
	}
	return "unknown"
}

// Sample is a fully decoded, immutable audio buffer.
type Sample struct {
	Buffer *beep.Buffer
	Peak   float64
}

// Streamer returns a fresh reader over the whole buffer.
func (s *Sample) Streamer() beep.StreamSeeker {
	return s.Buffer.Streamer(0, s.Buffer.Len())
}

// DetectFormat sniffs the magic bytes first and falls back to the extension.
func DetectFormat(data []byte, ext string) Codec {
	switch {
	case bytes.HasPrefix(data, []byte(spec.OpusMagic)):
		return CodecOpus
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return CodecWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return CodecFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		return CodecVorbis
	case bytes.HasPrefix(data, []byte("ID3")):
		return CodecMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return CodecMP3
	}

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3":
		return CodecMP3
	case "wav", "wave":
		return CodecWAV
	case "flac":
		return CodecFLAC
	case "ogg", "oga":
		return CodecVorbis
	case "opx":
		return CodecOpus
	}
	return CodecUnknown
}

// Decode turns encoded bytes into a Sample at the given rate.
// A zero rate keeps the source rate.
func Decode(data []byte, ext string, rate beep.SampleRate) (*Sample, error) {
	codec := DetectFormat(data, ext)

	var (
		s   beep.Streamer
		f   beep.Format
		err error
	)
	switch codec {
	case CodecMP3:
		s, f, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case CodecWAV:
		s, f, err = decodeWAV(data)
	case CodecFLAC:
		s, f, err = flac.Decode(bytes.NewReader(data))
	case CodecVorbis:
		s, f, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case CodecOpus:
		s, f, err = DecodeOpusFrames(data)
	default:
		return nil, fmt.Errorf("%w (ext %q)", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", codec, err)
	}
	return fill(s, f, rate)
}

func fill(s beep.Streamer, f beep.Format, rate beep.SampleRate) (*Sample, error) {
	if rate == 0 {
		rate = f.SampleRate
	}
	src := s
	if f.SampleRate != rate {
		src = beep.Resample(spec.ResampleQuality, f.SampleRate, rate, s)
	}

	precision := f.Precision
	if precision < 1 || precision > 3 {
		precision = 2
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: precision})
	buf.Append(src)
	if err := s.Err(); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, ErrEmpty
	}
	return &Sample{Buffer: buf, Peak: Peak(buf)}, nil
}

// pcmStreamer plays back already decoded frames.
type pcmStreamer struct {
	samples [][2]float64
	pos     int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if p.pos >= len(p.samples) {
		return 0, false
	}
	n = copy(samples, p.samples[p.pos:])
	p.pos += n
	return n, true
}

func (p *pcmStreamer) Err() error { return nil }

func decodeWAV(data []byte) (beep.Streamer, beep.Format, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, beep.Format{}, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, beep.Format{}, err
	}

	ch := int(dec.NumChans)
	depth := int(dec.BitDepth)
	if ch < 1 || depth < 8 {
		return nil, beep.Format{}, fmt.Errorf("unsupported wav layout: %d ch, %d bit", ch, depth)
	}

	scale := math.Pow(2, float64(depth-1))
	conv := func(v int) float64 { return float64(v) / scale }
	if depth == 8 {
		// 8-bit WAV unsigned
		conv = func(v int) float64 { return float64(v-128) / 128 }
	}

	frames := len(buf.Data) / ch
	out := make([][2]float64, frames)
	for i := 0; i < frames; i++ {
		l := conv(buf.Data[i*ch])
		r := l
		if ch > 1 {
			r = conv(buf.Data[i*ch+1])
		}
		out[i] = [2]float64{l, r}
	}

	f := beep.Format{
		SampleRate:  beep.SampleRate(dec.SampleRate),
		NumChannels: 2,
		Precision:   (depth + 7) / 8,
	}
	return &pcmStreamer{samples: out}, f, nil
}
