package atm

// modulate adds delta to a volume or frequency register. Bounded values are
// clamped to [0, limit]; unbounded values wrap at the register width.
func modulate(value int, delta int, limit int, unbounded bool) int {
	value += delta
	if unbounded {
		return value
	}
	if value < 0 {
		return 0
	}
	if value > limit {
		return limit
	}
	return value
}

func (ch *Channel) modulateVolume(delta int, unbounded bool) {
	ch.vol = uint8(modulate(int(ch.vol), delta, MaxVolume, unbounded))
}

func (ch *Channel) modulateFrequency(delta int, unbounded bool) {
	ch.freq = uint16(modulate(int(ch.freq), delta, MaxFrequency, unbounded))
}

// applyEffects runs the effect processors in their fixed order. Each one
// sees the frequency and volume left by the previous.
func (ch *Channel) applyEffects() {
	ch.applySlide()
	ch.applyArpeggio()
	ch.applyTremolo()
	ch.applyGlissando()
	ch.applyRetrigger()
}

func (ch *Channel) applySlide() {
	slide := &ch.slide
	if slide.Step == 0 {
		return
	}

	if slide.count == 0 {
		if slide.Frequency {
			ch.modulateFrequency(int(slide.Step), slide.Unbounded)
		} else {
			ch.modulateVolume(int(slide.Step), slide.Unbounded)
		}
	}

	if slide.count >= slide.Period {
		slide.count = 0
	} else {
		slide.count++
	}
}

func (ch *Channel) applyArpeggio() {
	arp := &ch.arpeggio
	if !arp.Active() || ch.note == 0 {
		return
	}

	if arp.count < arp.Ticks {
		arp.count++
		return
	}

	arp.count = 0
	switch {
	case arp.phase == 0:
		arp.phase = 1
	case arp.phase == 1 && !arp.SkipThird && !arp.Cut:
		arp.phase = 2
	default:
		arp.phase = 0
	}

	if arp.Cut {
		if arp.phase == 1 {
			ch.freq = 0
		} else {
			ch.freq = NoteTable[ch.note]
		}
		return
	}

	note := int(ch.note)
	if arp.phase >= 1 {
		note += int(arp.Hi)
	}
	if arp.phase == 2 {
		note += int(arp.Lo)
	}
	ch.freq = NoteFrequency(note)
}

func (ch *Channel) applyTremolo() {
	trem := &ch.tremolo
	if trem.Depth == 0 {
		return
	}

	delta := int(trem.Depth)
	if !trem.rising {
		delta = -delta
	}
	if trem.Frequency {
		ch.modulateFrequency(delta, trem.Unbounded)
	} else {
		ch.modulateVolume(delta, trem.Unbounded)
	}

	if trem.count < trem.Period {
		trem.count++
	} else {
		trem.count = 0
		trem.rising = !trem.rising
	}
}

func (ch *Channel) applyGlissando() {
	glis := &ch.glissando
	if !glis.Active {
		return
	}

	if glis.count < glis.Period {
		glis.count++
		return
	}

	glis.count = 0
	note := int(ch.note)
	if glis.Down {
		note--
	} else {
		note++
	}
	if note < 1 {
		note = 1
	}
	ch.note = clampNote(note)
	ch.freq = NoteTable[ch.note]
}

func (ch *Channel) applyRetrigger() {
	retrig := &ch.retrigger
	if !retrig.Active {
		return
	}

	if retrig.count < retrig.Period {
		retrig.count++
		return
	}

	retrig.count = 0
	ch.reseed = true
	ch.reseedFreq = NoteTable[retrig.Note]
}

// configure* decode the packed operand bytes of the setup instructions

func (slide *Slide) configure(step uint8, config uint8) {
	slide.Step = int8(step)
	slide.Period = config & 0x3F
	slide.Frequency = config&0x40 != 0
	slide.Unbounded = config&0x80 != 0
}

func (arp *Arpeggio) configure(notes uint8, timing uint8) {
	arp.Cut = notes == 0xFF
	if arp.Cut {
		arp.Hi, arp.Lo = 0, 0
	} else {
		arp.Hi, arp.Lo = notes>>4, notes&0x0F
	}
	arp.Ticks = timing & 0x1F
	arp.Retrigger = timing&0x20 != 0
	arp.SkipThird = timing&0x40 != 0
}

func (arp *Arpeggio) disable() {
	arp.Hi, arp.Lo, arp.Cut = 0, 0, false
}

func (trem *Tremolo) configure(depth uint8, config uint8) {
	trem.Depth = depth & 0x1F
	trem.Period = config & 0x1F
	trem.Frequency = config&0x40 != 0
	trem.Unbounded = config&0x80 != 0
}

func (glis *Glissando) configure(config uint8) {
	glis.Active = config != 0
	glis.Down = config&0x80 != 0
	glis.Period = config & 0x7F
}

func (retrig *Retrigger) configure(config uint8) {
	retrig.Active = config != 0
	retrig.Note = config >> 2
	retrig.Period = config & 0x03
}
