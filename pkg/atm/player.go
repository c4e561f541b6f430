package atm

import (
	"fmt"
	"log"
	"time"
)

// State is the tick driver state of a Player
type State uint8

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (state State) String() string {
	return [...]string{"stopped", "playing", "paused"}[state]
}

// NewPlayer creates a stopped player
func NewPlayer(config Config) *Player {
	defaults := DefaultConfig()
	if config.BaseRate <= 0 {
		config.BaseRate = defaults.BaseRate
	}
	if config.DefaultTempo == 0 {
		config.DefaultTempo = defaults.DefaultTempo
	}
	if config.MaxInstructionsPerTick <= 0 {
		config.MaxInstructionsPerTick = defaults.MaxInstructionsPerTick
	}
	return &Player{
		Logger: log.Default(),
		config: config,
		mask:   0xF0,
		tempo:  config.DefaultTempo,
	}
}

// Play resets every channel, installs song and starts ticking. Each channel
// starts at its start track. The mute nibble is kept.
func (p *Player) Play(song *Song) error {
	if song == nil {
		return ErrNoSong
	}

	var cursors [NumChannels]int
	for n := range cursors {
		offset, err := song.TrackOffset(song.StartTrack[n])
		if err != nil {
			return fmt.Errorf("channel %d: %w", n, err)
		}
		cursors[n] = offset
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
	p.song = song
	for n := range p.channels {
		p.channels[n].cursor = cursors[n]
		p.channels[n].track = song.StartTrack[n]
	}
	p.mask |= 0xF0
	p.tempo = p.config.DefaultTempo
	p.output.Store(NoiseChannel, Oscillator{Frequency: 1})
	p.armed = true
	return nil
}

// Stop disarms the tick routine and clears all channel state
func (p *Player) Stop() {
	p.mu.Lock()
	onStop := p.stopLocked()
	p.mu.Unlock()

	if onStop != nil {
		onStop()
	}
}

func (p *Player) resetLocked() {
	p.channels = [NumChannels]Channel{}
	p.ticks = 0
	p.err = nil
	p.output.Reset()
}

func (p *Player) stopLocked() func() {
	wasRunning := p.song != nil && (p.armed || p.mask&0xF0 != 0)
	p.armed = false
	p.mask &= 0x0F
	p.channels = [NumChannels]Channel{}
	p.output.Reset()
	if wasRunning {
		return p.onStop
	}
	return nil
}

// PlayPause toggles the tick routine without touching channel state. It
// reports whether the player is now ticking.
func (p *Player) PlayPause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.song == nil || p.mask&0xF0 == 0 {
		return false
	}
	p.armed = !p.armed
	return p.armed
}

// State reports whether the player is playing, paused or stopped
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.armed:
		return StatePlaying
	case p.song != nil && p.mask&0xF0 != 0:
		return StatePaused
	}
	return StateStopped
}

// Mute stops a channel from writing its output slot. The channel keeps
// sequencing.
func (p *Player) Mute(ch int) error {
	return p.setMute(ch, true)
}

// Unmute lets a channel write its output slot again
func (p *Player) Unmute(ch int) error {
	return p.setMute(ch, false)
}

// ToggleMute flips a channel's mute flag and returns the new value
func (p *Player) ToggleMute(ch int) (bool, error) {
	if ch < 0 || ch >= NumChannels {
		return false, ErrBadChannel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mask ^= muteBit(ch)
	return p.mask&muteBit(ch) != 0, nil
}

func (p *Player) setMute(ch int, muted bool) error {
	if ch < 0 || ch >= NumChannels {
		return ErrBadChannel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if muted {
		p.mask |= muteBit(ch)
	} else {
		p.mask &^= muteBit(ch)
	}
	return nil
}

// WriteOscillator writes a muted channel's output slot directly, for sound
// effects played over the music.
func (p *Player) WriteOscillator(ch int, osc Oscillator) error {
	if ch < 0 || ch >= NumChannels {
		return ErrBadChannel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mask&muteBit(ch) == 0 {
		return fmt.Errorf("%w: channel %d", ErrNotMuted, ch)
	}
	p.output.Store(ch, osc)
	return nil
}

// Tick runs one tick: effect processors, then bytecode, then output, for
// every active channel. It does nothing while stopped or paused. When no
// channel is active, or every active channel has run out of track, the
// player stops itself.
func (p *Player) Tick() {
	p.mu.Lock()
	if !p.armed {
		p.mu.Unlock()
		return
	}

	if p.mask&0xF0 == 0 || p.allExhausted() {
		p.Logger.Printf("atm: all channels finished after %d ticks, stopping", p.ticks)
		onStop := p.stopLocked()
		p.mu.Unlock()
		if onStop != nil {
			onStop()
		}
		return
	}

	for n := range p.channels {
		if p.mask&activeBit(n) == 0 {
			continue
		}
		ch := &p.channels[n]
		ch.reseed = false
		ch.applyEffects()
		p.sequence(n)
		p.publish(n)
	}
	p.ticks++
	p.mu.Unlock()
}

func (p *Player) allExhausted() bool {
	for n := range p.channels {
		if p.mask&activeBit(n) != 0 && !p.channels[n].Exhausted() {
			return false
		}
	}
	return true
}

// SetOnStop registers a function called after playback stops. It runs on
// the goroutine that stopped the player, outside the player lock.
func (p *Player) SetOnStop(onStop func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStop = onStop
}

// Tempo returns the current tick rate in ticks per second
func (p *Player) Tempo() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tempo
}

// TickInterval is the time between ticks at the current tempo
func (p *Player) TickInterval() time.Duration {
	samples := p.baseSamplesPerTick()
	return time.Duration(samples) * time.Second / time.Duration(p.config.BaseRate)
}

// SamplesPerTick converts the tick interval to samples at sampleRate
func (p *Player) SamplesPerTick(sampleRate int) int {
	samples := p.baseSamplesPerTick()
	perTick := int(int64(samples) * int64(sampleRate) / int64(p.config.BaseRate))
	if perTick < 1 {
		return 1
	}
	return perTick
}

func (p *Player) baseSamplesPerTick() int {
	tempo := int(p.Tempo())
	return p.config.BaseRate / tempo
}

// Output returns the oscillator slots. They may be read from any goroutine.
func (p *Player) Output() *Output {
	return &p.output
}

// Song returns the installed song, or nil
func (p *Player) Song() *Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

// Mask returns the activity/mute byte: high nibble active, low nibble muted
func (p *Player) Mask() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mask
}

// Ticks returns the number of ticks run since Play
func (p *Player) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// Err returns the first channel fault since Play
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Channels returns a snapshot of every channel
func (p *Player) Channels() [NumChannels]ChannelState {
	p.mu.Lock()
	defer p.mu.Unlock()

	var states [NumChannels]ChannelState
	for n := range p.channels {
		states[n] = p.channels[n].state()
		states[n].Active = p.mask&activeBit(n) != 0
		states[n].Muted = p.mask&muteBit(n) != 0
	}
	return states
}
