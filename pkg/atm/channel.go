package atm

import (
	"fmt"
)

func activeBit(n int) uint8 {
	return 1 << uint(n+4)
}

func muteBit(n int) uint8 {
	return 1 << uint(n)
}

// sequence runs the bytecode of channel n for one tick
func (p *Player) sequence(n int) {
	ch := &p.channels[n]
	if ch.Exhausted() {
		return
	}
	if ch.delay > 0 {
		ch.delay--
		return
	}

	budget := p.config.MaxInstructionsPerTick
	for ch.delay == 0 {
		if budget == 0 {
			p.fault(n, ErrRunaway)
			return
		}
		budget--

		in, size, err := Decode(p.song.Data, ch.cursor)
		if err != nil {
			p.fault(n, err)
			return
		}
		ch.cursor += size

		if err := p.execute(n, in); err != nil {
			p.fault(n, err)
			return
		}
	}

	if !ch.Exhausted() {
		ch.delay--
	}
}

// fault halts a channel after a malformed stream. Only the first error of a
// channel is kept.
func (p *Player) fault(n int, err error) {
	ch := &p.channels[n]
	if ch.err == nil {
		ch.err = fmt.Errorf("channel %d at offset %d: %w", n, ch.cursor, err)
		p.Logger.Printf("atm: %v, channel halted", ch.err)
		if p.err == nil {
			p.err = ch.err
		}
	}
	ch.delay = DelayExhausted
}

func (p *Player) execute(n int, in Instruction) error {
	ch := &p.channels[n]

	switch in.Kind {
	case KindNote:
		p.noteOn(ch, in.Note)
	case KindSetup:
		p.setup(n, in)
	case KindDelay:
		ch.delay = in.Delay
	case KindCall:
		offset, err := p.song.TrackOffset(in.Track)
		if err != nil {
			return err
		}
		if err := ch.stack.Push(ch.cursor, ch.counter, ch.track); err != nil {
			return fmt.Errorf("call track %d: %w", in.Track, err)
		}
		ch.counter = in.Repeat
		ch.track = in.Track
		ch.cursor = offset
	case KindReturn:
		return p.ret(ch)
	case KindReserved, KindEmbed:
		// operands and payload are skipped by the decoded size
	}
	return nil
}

func (p *Player) ret(ch *Channel) error {
	if ch.counter > 0 {
		ch.counter--
		offset, err := p.song.TrackOffset(ch.track)
		if err != nil {
			return err
		}
		ch.cursor = offset
		return nil
	}

	if ch.stack.Len() == 0 {
		ch.delay = DelayExhausted
		return nil
	}

	returnTo, counter, track, err := ch.stack.Pop()
	if err != nil {
		return err
	}
	ch.cursor = returnTo
	ch.counter = counter
	ch.track = track
	return nil
}

func (p *Player) noteOn(ch *Channel, note uint8) {
	if note == 0 {
		ch.note = 0
	} else {
		ch.note = clampNote(int(note) + int(ch.transpose))
	}
	ch.freq = NoteTable[ch.note]
	ch.vol = ch.volInit

	if ch.arpeggio.Retrigger {
		ch.arpeggio.count = 0
		ch.arpeggio.phase = 0
	}

	policy := p.config.RetriggerPolicy
	if policy&RetriggerSlide != 0 && !ch.slide.Frequency {
		ch.slide.count = 0
	}
	if policy&RetriggerTremolo != 0 {
		ch.tremolo.count = 0
		ch.tremolo.rising = false
	}
}

func (p *Player) setup(n int, in Instruction) {
	ch := &p.channels[n]
	a := in.Args

	switch in.FX {
	case FxSetVolume:
		vol := a[0]
		if vol > MaxVolume {
			vol = MaxVolume
		}
		ch.vol = vol
		ch.volInit = vol
	case FxSlideVolume:
		ch.slide.configure(a[0], 0x00)
	case FxSlideFrequency:
		ch.slide.configure(a[0], 0x40)
	case FxSlideVolumeAdvanced, FxSlideFrequencyAdvanced:
		ch.slide.configure(a[0], a[1])
	case FxSlideVolumeOff, FxSlideFrequencyOff:
		ch.slide.Step = 0
	case FxArpeggio:
		ch.arpeggio.configure(a[0], a[1])
	case FxArpeggioOff, FxNoteCutOff:
		ch.arpeggio.disable()
	case FxNoteCut:
		ch.arpeggio.configure(0xFF, a[0])
	case FxRetrigger:
		ch.retrigger.configure(a[0])
	case FxRetriggerOff:
		ch.retrigger.Active = false
	case FxAddTranspose:
		ch.transpose += int8(a[0])
	case FxSetTranspose:
		ch.transpose = int8(a[0])
	case FxTransposeOff:
		ch.transpose = 0
	case FxTremolo:
		ch.tremolo.configure(a[0], a[1])
	case FxVibrato:
		ch.tremolo.configure(a[0], a[1]|0x40)
	case FxTremoloOff, FxVibratoOff:
		ch.tremolo.Depth = 0
	case FxGlissando:
		ch.glissando.configure(a[0])
	case FxGlissandoOff:
		ch.glissando.Active = false
	case FxSetTempo:
		if a[0] == 0 {
			p.Logger.Printf("atm: channel %d ignored tempo 0", n)
			return
		}
		if a[0] != p.tempo {
			p.Logger.Printf("atm: channel %d set tempo to %d ticks/s", n, a[0])
		}
		p.tempo = a[0]
	case FxGotoAdvanced:
		for i := range p.channels {
			p.channels[i].track = a[i]
		}
	case FxStopChannel:
		p.mask &^= activeBit(n)
		ch.delay = 1
		p.Logger.Printf("atm: channel %d stopped", n)
	default:
		if !ch.warned[in.FX] {
			ch.warned[in.FX] = true
			p.Logger.Printf("atm: channel %d ignoring unknown setup opcode %d", n, in.Opcode)
		}
	}
}

// publish writes the channel's output slot unless it is muted. The noise
// channel only takes half its volume; its frequency word is the noise seed
// and changes only on retrigger, which also bumps the slot's seed count so the
// mixer reseeds even when the word is unchanged.
func (p *Player) publish(n int) {
	if p.mask&muteBit(n) != 0 {
		return
	}
	ch := &p.channels[n]

	if n == NoiseChannel {
		osc := p.output.Load(n)
		if ch.reseed {
			osc.Frequency = ch.reseedFreq
			osc.Seed++
		}
		osc.Volume = ch.vol >> 1
		p.output.Store(n, osc)
		return
	}

	p.output.Store(n, Oscillator{Frequency: ch.freq, Volume: ch.vol})
}

func (ch *Channel) state() ChannelState {
	return ChannelState{
		Note:      ch.note,
		Frequency: ch.freq,
		Volume:    ch.vol,
		Delay:     ch.delay,
		Cursor:    ch.cursor,
		Depth:     ch.stack.Len(),
		Track:     ch.track,
		Repeat:    ch.counter,
		Transpose: ch.transpose,
		Exhausted: ch.Exhausted(),
		Err:       ch.err,
	}
}
