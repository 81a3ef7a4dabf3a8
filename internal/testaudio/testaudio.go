// Package testaudio builds in-memory audio fixtures and fake collaborators
// for package tests.
package testaudio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Tone returns a 16-bit stereo WAV holding a sine burst.
func Tone(freq float64, rate, frames int, amp float64) []byte {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           make([]int, 0, frames*2),
	}
	for i := 0; i < frames; i++ {
		v := int(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		buf.Data = append(buf.Data, v, v)
	}

	f, err := os.CreateTemp("", "testaudio-*.wav")
	if err != nil {
		panic(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	if err := enc.Write(buf); err != nil {
		panic(err)
	}
	if err := enc.Close(); err != nil {
		panic(err)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		panic(err)
	}
	return data
}

var ErrMissing = errors.New("fixture missing")

// Fetcher serves fixtures by asset path. Paths without a fixture fail.
// When Gate is set every fetch blocks until it is closed.
type Fetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	fails map[string]error

	Gate  chan struct{}
	calls atomic.Int32
}

func NewFetcher() *Fetcher {
	return &Fetcher{files: map[string][]byte{}, fails: map[string]error{}}
}

func (f *Fetcher) Put(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
}

func (f *Fetcher) Fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[path] = err
}

func (f *Fetcher) Calls() int { return int(f.calls.Load()) }

func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	f.calls.Add(1)
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fails[path]; ok {
		return nil, err
	}
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, path)
	}
	return data, nil
}

// Logger records formatted lines.
type Logger struct {
	mu    sync.Mutex
	lines []string
}

func (l *Logger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Count returns how many lines contain substr.
func (l *Logger) Count(substr string) int {
	n := 0
	for _, line := range l.Lines() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}
