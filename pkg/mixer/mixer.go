// Package mixer turns the oscillator slots of an atm.Player into PCM. It
// drives the player's tick from the sample clock, so a speaker or a file
// renderer pulling samples is all that is needed to play a song.
package mixer

import (
	"math"
	"sync/atomic"

	"github.com/benwiggins/atmplay/pkg/atm"
)

// MixingMode selects how the four voices are panned
type MixingMode int

const (
	// MonoMixingMode puts every voice in both ears
	MonoMixingMode MixingMode = iota
	// SplitMixingMode hard pans voices 0+3 left and 1+2 right
	SplitMixingMode
	// StereoMixingMode bleeds a third of each side into the other
	StereoMixingMode
)

func (mode MixingMode) String() string {
	return [...]string{"Mono", "Split", "Stereo"}[mode]
}

const (
	// noiseClock is the rate the noise shift register is clocked at
	noiseClock = 15625
	noiseSeed  = 1
	// voiceGain keeps four full-volume voices inside [-1, 1]
	voiceGain = 0.25
)

// Mixer renders an atm.Player. It implements speaker.Streamer.
type Mixer struct {
	mode atomic.Int32

	player     *atm.Player
	sampleRate int

	tickSample     int
	samplesPerTick int
	frame          [atm.NumChannels]atm.Oscillator

	// square phases count up to sampleRate
	phase [atm.NumChannels]int

	noiseSeed uint16
	noiseGen  uint8
	lfsr      uint16
	// noise clock remainder, in units of 1/sampleRate of a step
	noiseAcc int

	// last sample, as float32 bits, for meters on other goroutines
	left, right atomic.Uint32
}

// New creates a mixer pulling ticks from player at sampleRate
func New(player *atm.Player, sampleRate int) *Mixer {
	return &Mixer{
		player:     player,
		sampleRate: sampleRate,
		lfsr:       noiseSeed,
	}
}

// Err reports the first channel fault of the player
func (m *Mixer) Err() error {
	return m.player.Err()
}

// Stream fills samples. It returns ok=false once the player has stopped and
// every sample of the last tick has been written.
func (m *Mixer) Stream(samples [][2]float32) (n int, ok bool) {
	for idx := range samples {
		if m.tickSample >= m.samplesPerTick {
			if !m.nextTick() {
				return idx, idx > 0
			}
		}
		m.tickSample++

		left, right := m.nextSample()
		samples[idx][0] = left
		samples[idx][1] = right
	}
	return len(samples), true
}

// nextTick advances the player by one tick and latches its output
func (m *Mixer) nextTick() bool {
	m.tickSample = 0

	switch m.player.State() {
	case atm.StateStopped:
		// tick again as soon as the player is restarted
		m.samplesPerTick = 0
		return false
	case atm.StatePaused:
		m.frame = [atm.NumChannels]atm.Oscillator{}
	default:
		m.player.Tick()
		m.frame = m.player.Output().Snapshot()
		m.reseed(m.frame[atm.NoiseChannel])
	}
	m.samplesPerTick = m.player.SamplesPerTick(m.sampleRate)
	return true
}

// SampleValues returns the last sample written
func (m *Mixer) SampleValues() (float32, float32) {
	return math.Float32frombits(m.left.Load()), math.Float32frombits(m.right.Load())
}

// MixingMode returns the current panning
func (m *Mixer) MixingMode() MixingMode {
	return MixingMode(m.mode.Load())
}

// SetMixingMode changes the panning. It is safe to call while streaming.
func (m *Mixer) SetMixingMode(mode MixingMode) {
	m.mode.Store(int32(mode))
}

func (m *Mixer) nextSample() (left float32, right float32) {
	mode := m.MixingMode()
	for ch, osc := range m.frame {
		var value float32
		if ch == atm.NoiseChannel {
			value = m.noise(osc)
		} else {
			value = m.square(ch, osc)
		}
		value *= float32(osc.Volume) / atm.MaxVolume * voiceGain

		if ch == 0 || ch == 3 {
			left += value
			switch mode {
			case StereoMixingMode:
				right += value * 0.33
			case MonoMixingMode:
				right += value
			}
		} else {
			right += value
			switch mode {
			case StereoMixingMode:
				left += value * 0.33
			case MonoMixingMode:
				left += value
			}
		}
	}
	m.left.Store(math.Float32bits(left))
	m.right.Store(math.Float32bits(right))
	return
}

// square counts each voice's phase up by its frequency every sample and
// wraps at the sample rate, so no frequency overflows the accumulator. It
// returns +1 for the first half of each period.
func (m *Mixer) square(ch int, osc atm.Oscillator) float32 {
	if osc.Frequency == 0 || osc.Volume == 0 {
		return 0
	}
	m.phase[ch] = (m.phase[ch] + int(osc.Frequency)) % m.sampleRate
	if m.phase[ch] < m.sampleRate/2 {
		return 1
	}
	return -1
}

// reseed restarts the shift register from the noise slot's frequency word
// when the word or its seed count has changed since the last tick
func (m *Mixer) reseed(osc atm.Oscillator) {
	if osc.Frequency == m.noiseSeed && osc.Seed == m.noiseGen {
		return
	}
	m.noiseSeed, m.noiseGen = osc.Frequency, osc.Seed
	m.lfsr = osc.Frequency & 0x7FFF
	if m.lfsr == 0 {
		m.lfsr = noiseSeed
	}
	m.noiseAcc = 0
}

// noise clocks a 15-bit shift register noiseClock times a second. At sample
// rates below the clock it steps more than once per sample.
func (m *Mixer) noise(osc atm.Oscillator) float32 {
	m.noiseAcc += noiseClock
	for m.noiseAcc >= m.sampleRate {
		m.noiseAcc -= m.sampleRate
		m.lfsr = stepLFSR(m.lfsr)
	}
	if osc.Volume == 0 {
		return 0
	}
	if m.lfsr&1 != 0 {
		return 1
	}
	return -1
}

func stepLFSR(sr uint16) uint16 {
	bit := (sr ^ sr>>1) & 1
	return sr>>1 | bit<<14
}
