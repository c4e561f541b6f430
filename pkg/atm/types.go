// Package atm plays songs in the ATM tracker format: a compact bytecode
// stream per channel, interpreted once per tick, driving three square
// channels and one noise channel.
package atm

import (
	"log"
	"sync"
)

// NumChannels is the fixed number of channels. Channel 3 is the noise channel.
const NumChannels = 4

// NoiseChannel is the index of the noise channel
const NoiseChannel = 3

const (
	// MaxVolume is the largest channel volume
	MaxVolume = 63
	// MaxFrequency is the largest frequency in the note table
	MaxFrequency = 9397
	// DelayExhausted marks a channel whose track has ended
	DelayExhausted = 0xFFFF
	// StackDepth is the number of nested CALL frames a channel supports
	StackDepth = 7
)

// Player is the playback engine. All mutation of channel state goes through
// its methods; Tick is the only method that advances playback.
type Player struct {
	Logger *log.Logger

	config   Config
	song     *Song
	channels [NumChannels]Channel
	mask     uint8
	armed    bool
	tempo    uint8
	ticks    uint64
	err      error
	output   Output
	onStop   func()

	mu sync.Mutex
}

// Config holds engine settings that do not come from the song
type Config struct {
	// BaseRate is divided by the tempo operand to get the tick interval in
	// samples of the reference 15625 Hz clock.
	BaseRate int
	// DefaultTempo is the tick rate in ticks per second installed by Play
	DefaultTempo uint8
	// RetriggerPolicy selects which modulation envelopes a note-on restarts
	RetriggerPolicy RetriggerPolicy
	// MaxInstructionsPerTick bounds delay-free instructions in one tick
	MaxInstructionsPerTick int
}

// DefaultConfig returns the settings of the reference hardware player
func DefaultConfig() Config {
	return Config{
		BaseRate:               15625,
		DefaultTempo:           25,
		RetriggerPolicy:        RetriggerNone,
		MaxInstructionsPerTick: 4096,
	}
}

// RetriggerPolicy is a bit set of modulation effects restarted by note-on
type RetriggerPolicy uint8

const (
	// RetriggerNone leaves every modulation effect running across note-on
	RetriggerNone RetriggerPolicy = 0
	// RetriggerSlide restarts a volume slide's period counter on note-on
	RetriggerSlide RetriggerPolicy = 1 << 0
	// RetriggerTremolo restarts the tremolo/vibrato phase on note-on
	RetriggerTremolo RetriggerPolicy = 1 << 1
	// RetriggerAll restarts every modulation effect on note-on
	RetriggerAll = RetriggerSlide | RetriggerTremolo
)

func (policy RetriggerPolicy) String() string {
	switch policy {
	case RetriggerNone:
		return "none"
	case RetriggerSlide:
		return "slide"
	case RetriggerTremolo:
		return "tremolo"
	case RetriggerAll:
		return "all"
	}
	return "unknown"
}

// Song is a parsed song blob. Data is referenced, never copied or modified.
type Song struct {
	Data       []byte
	TrackCount int
	StartTrack [NumChannels]uint8

	trackBase int
}

// frame is one call stack entry
type frame struct {
	returnTo int
	counter  uint8
	track    uint8
}

// Slide adds Step to volume or frequency every Period+1 ticks
type Slide struct {
	Step      int8
	Period    uint8 // 6 bits
	Frequency bool
	Unbounded bool
	count     uint8
}

// Arpeggio cycles base, base+Hi, base+Hi+Lo. When Cut is set the register is
// a note-cut timer instead.
type Arpeggio struct {
	Hi, Lo    uint8 // 4 bits each
	Cut       bool
	Ticks     uint8 // 5 bits
	SkipThird bool
	Retrigger bool
	phase     uint8
	count     uint8
}

// Active reports whether the arpeggio or note-cut register is configured
func (arp *Arpeggio) Active() bool {
	return arp.Cut || arp.Hi != 0 || arp.Lo != 0
}

// Tremolo steps volume (or frequency, for vibrato) by Depth, flipping
// direction every Period+1 ticks.
type Tremolo struct {
	Depth     uint8 // 5 bits
	Period    uint8 // 5 bits
	Frequency bool
	Unbounded bool
	rising    bool
	count     uint8
}

// Glissando moves the note by one semitone every Period+1 ticks
type Glissando struct {
	Period uint8 // 7 bits
	Down   bool
	Active bool
	count  uint8
}

// Retrigger reloads the oscillator word from note table entry Note every
// Period+1 ticks.
type Retrigger struct {
	Note   uint8 // 6 bits
	Period uint8 // 2 bits
	Active bool
	count  uint8
}

// Channel is the sequencer and effect state of one channel
type Channel struct {
	cursor  int
	note    uint8
	freq    uint16
	vol     uint8
	volInit uint8
	delay   uint16

	stack   CallStack
	track   uint8
	counter uint8

	slide     Slide
	arpeggio  Arpeggio
	tremolo   Tremolo
	glissando Glissando
	retrigger Retrigger
	transpose int8

	reseed     bool
	reseedFreq uint16
	err        error
	// unknown setup opcodes already logged
	warned [FxStopChannel + 1]bool
}

// Exhausted reports whether the channel's track has ended
func (ch *Channel) Exhausted() bool {
	return ch.delay == DelayExhausted
}

// ChannelState is a read-only snapshot of a channel for monitors
type ChannelState struct {
	Note      uint8
	Frequency uint16
	Volume    uint8
	Delay     uint16
	Cursor    int
	Depth     int
	Track     uint8
	Repeat    uint8
	Transpose int8
	Exhausted bool
	Active    bool
	Muted     bool
	Err       error
}
