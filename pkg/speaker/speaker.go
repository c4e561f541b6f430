// Package speaker plays a Streamer on the default sound card.
package speaker

// Loosely based on https://github.com/faiface/beep

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/oto"
)

// Streamer provides the interface to stream samples
type Streamer interface {
	Stream(samples [][2]float32) (n int, ok bool)
	Err() error
}

// Speaker owns an oto context and a goroutine feeding it
type Speaker struct {
	mu       sync.Mutex
	samples  [][2]float32
	buf      []byte
	context  *oto.Context
	player   *oto.Player
	done     chan struct{}
	finished chan struct{}
	streamer Streamer
	callback func()
}

// New opens the sound card.
//
// The bufferSize argument specifies the number of samples of the speaker's buffer. Bigger
// bufferSize means lower CPU usage and more reliable playback. Lower bufferSize means better
// responsiveness and less delay.
func New(sampleRate int, bufferSize int) (*Speaker, error) {
	numBytes := bufferSize * 4

	context, err := oto.NewContext(sampleRate, 2, 2, numBytes)
	if err != nil {
		return nil, fmt.Errorf("could not initialise speaker: %w", err)
	}

	s := &Speaker{
		samples:  make([][2]float32, bufferSize),
		buf:      make([]byte, numBytes),
		context:  context,
		player:   context.NewPlayer(),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Play starts pulling samples from streamer. callback runs once the
// streamer reports it is drained.
func (s *Speaker) Play(streamer Streamer, callback func()) {
	s.mu.Lock()
	s.streamer = streamer
	s.callback = callback
	s.mu.Unlock()
}

// Clear stops pulling samples without closing the sound card
func (s *Speaker) Clear() {
	s.mu.Lock()
	s.streamer = nil
	s.callback = nil
	s.mu.Unlock()
}

// Close stops the feeding goroutine and releases the sound card
func (s *Speaker) Close() error {
	close(s.done)
	<-s.finished

	if err := s.player.Close(); err != nil {
		return err
	}
	return s.context.Close()
}

func (s *Speaker) run() {
	defer close(s.finished)
	for {
		select {
		case <-s.done:
			return
		default:
			s.update()
		}
	}
}

func (s *Speaker) update() {
	s.mu.Lock()
	streamer, callback := s.streamer, s.callback
	numSamples, ok := 0, true
	if streamer != nil {
		numSamples, ok = streamer.Stream(s.samples)
		if !ok {
			s.streamer, s.callback = nil, nil
		}
	}
	s.mu.Unlock()

	if !ok && callback != nil {
		callback()
	}

	for i := range s.samples {
		if i >= numSamples {
			s.samples[i] = [2]float32{}
		}
	}
	encode(s.buf, s.samples)

	s.player.Write(s.buf)
}

// encode converts float samples to interleaved signed 16-bit little endian
func encode(buf []byte, samples [][2]float32) {
	for i := range samples {
		for c := range samples[i] {
			val := samples[i][c]
			if val < -1 {
				val = -1
			}
			if val > +1 {
				val = +1
			}
			valInt16 := int16(val * (1<<15 - 1))
			low := byte(valInt16)
			high := byte(valInt16 >> 8)
			buf[i*4+c*2+0] = low
			buf[i*4+c*2+1] = high
		}
	}
}
