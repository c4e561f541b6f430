package atm

import "sync/atomic"

// Oscillator is the frequency and volume a channel asks the mixer to play
type Oscillator struct {
	Frequency uint16
	Volume    uint8
	// Seed counts noise reseeds. The mixer restarts its shift register from
	// Frequency whenever it changes, even if Frequency did not.
	Seed uint8
}

// Output holds one oscillator slot per channel. Each slot is a single atomic
// word, so a reader on another goroutine never sees a frequency from one tick
// paired with a volume from another.
type Output struct {
	slots [NumChannels]uint32
}

func pack(osc Oscillator) uint32 {
	return uint32(osc.Frequency) | uint32(osc.Volume)<<16 | uint32(osc.Seed)<<24
}

func unpack(word uint32) Oscillator {
	return Oscillator{Frequency: uint16(word), Volume: uint8(word >> 16), Seed: uint8(word >> 24)}
}

// Load reads one slot
func (out *Output) Load(ch int) Oscillator {
	return unpack(atomic.LoadUint32(&out.slots[ch]))
}

// Store writes one slot
func (out *Output) Store(ch int, osc Oscillator) {
	atomic.StoreUint32(&out.slots[ch], pack(osc))
}

// Snapshot reads all slots
func (out *Output) Snapshot() [NumChannels]Oscillator {
	var frame [NumChannels]Oscillator
	for ch := range frame {
		frame[ch] = out.Load(ch)
	}
	return frame
}

// Reset silences all slots
func (out *Output) Reset() {
	for ch := range out.slots {
		atomic.StoreUint32(&out.slots[ch], 0)
	}
}
