package atm

import (
	"fmt"
	"strings"
)

// Kind is the instruction class selected by the opcode range
type Kind uint8

const (
	KindNote     Kind = iota // 0..63
	KindSetup                // 64..159
	KindDelay                // 160..224
	KindReserved             // 225..251
	KindCall                 // 252, 253
	KindReturn               // 254
	KindEmbed                // 255
)

func (kind Kind) String() string {
	return [...]string{"note", "setup", "delay", "reserved", "call", "return", "embed"}[kind]
}

// FX is a setup sub-opcode, the opcode minus 64
type FX uint8

const (
	FxSetVolume FX = iota
	FxSlideVolume
	FxSlideVolumeAdvanced
	FxSlideVolumeOff
	FxSlideFrequency
	FxSlideFrequencyAdvanced
	FxSlideFrequencyOff
	FxArpeggio
	FxArpeggioOff
	FxRetrigger
	FxRetriggerOff
	FxAddTranspose
	FxSetTranspose
	FxTransposeOff
	FxTremolo
	FxTremoloOff
	FxVibrato
	FxVibratoOff
	FxGlissando
	FxGlissandoOff
	FxNoteCut
	FxNoteCutOff

	FxSetTempo     FX = 93
	FxGotoAdvanced FX = 94
	FxStopChannel  FX = 95
)

var fxNames = map[FX]string{
	FxSetVolume:              "VOLUME",
	FxSlideVolume:            "SLIDE.VOL",
	FxSlideVolumeAdvanced:    "SLIDE.VOL.ADV",
	FxSlideVolumeOff:         "SLIDE.VOL.OFF",
	FxSlideFrequency:         "SLIDE.FREQ",
	FxSlideFrequencyAdvanced: "SLIDE.FREQ.ADV",
	FxSlideFrequencyOff:      "SLIDE.FREQ.OFF",
	FxArpeggio:               "ARPEGGIO",
	FxArpeggioOff:            "ARPEGGIO.OFF",
	FxRetrigger:              "RETRIG",
	FxRetriggerOff:           "RETRIG.OFF",
	FxAddTranspose:           "TRANSPOSE.ADD",
	FxSetTranspose:           "TRANSPOSE",
	FxTransposeOff:           "TRANSPOSE.OFF",
	FxTremolo:                "TREMOLO",
	FxTremoloOff:             "TREMOLO.OFF",
	FxVibrato:                "VIBRATO",
	FxVibratoOff:             "VIBRATO.OFF",
	FxGlissando:              "GLISSANDO",
	FxGlissandoOff:           "GLISSANDO.OFF",
	FxNoteCut:                "NOTECUT",
	FxNoteCutOff:             "NOTECUT.OFF",
	FxSetTempo:               "TEMPO",
	FxGotoAdvanced:           "GOTO",
	FxStopChannel:            "STOP",
}

func (fx FX) String() string {
	if name, ok := fxNames[fx]; ok {
		return name
	}
	return fmt.Sprintf("FX%d", uint8(fx))
}

// Operands is the number of immediate bytes following the opcode
func (fx FX) Operands() int {
	switch fx {
	case FxSetVolume, FxSlideVolume, FxSlideFrequency, FxRetrigger,
		FxAddTranspose, FxSetTranspose, FxGlissando, FxNoteCut, FxSetTempo:
		return 1
	case FxSlideVolumeAdvanced, FxSlideFrequencyAdvanced, FxArpeggio, FxTremolo, FxVibrato:
		return 2
	case FxGotoAdvanced:
		return 4
	}
	return 0
}

// Known reports whether the sub-opcode has a defined meaning
func (fx FX) Known() bool {
	_, ok := fxNames[fx]
	return ok
}

// Instruction is one decoded bytecode instruction
type Instruction struct {
	Kind   Kind
	Opcode uint8

	Note   uint8    // KindNote
	FX     FX       // KindSetup
	Args   [4]uint8 // KindSetup operands, KindReserved padding
	NArgs  int
	Delay  uint16 // KindDelay
	Track  uint8  // KindCall
	Repeat uint8  // KindCall
	Length int    // KindEmbed payload
}

const (
	opSetup     = 64
	opDelay     = 160
	opLongDelay = 224
	opReserved  = 225
	opCall      = 252
	opCallRep   = 253
	opReturn    = 254
	opEmbed     = 255

	longDelayBias = 129
)

// ReadVLE reads a big-endian base-128 integer at offset. It returns the value
// truncated to 16 bits and the number of bytes consumed.
func ReadVLE(data []byte, offset int) (uint16, int, error) {
	var value uint16
	for n := 0; ; n++ {
		if n == 3 {
			return 0, n, ErrVLETooLong
		}
		if offset+n >= len(data) {
			return 0, n, ErrUnexpectedEnd
		}
		b := data[offset+n]
		value = value<<7 | uint16(b&0x7F)
		if b&0x80 == 0 {
			return value, n + 1, nil
		}
	}
}

// Decode decodes the instruction at offset and returns it together with its
// encoded length. It never reads outside data.
func Decode(data []byte, offset int) (Instruction, int, error) {
	if offset < 0 || offset >= len(data) {
		return Instruction{}, 0, ErrUnexpectedEnd
	}

	op := data[offset]
	in := Instruction{Opcode: op}
	size := 1

	operands := func(count int) error {
		if offset+size+count > len(data) {
			return fmt.Errorf("%w: opcode %d at %d needs %d operands", ErrUnexpectedEnd, op, offset, count)
		}
		copy(in.Args[:], data[offset+size:offset+size+count])
		in.NArgs = count
		size += count
		return nil
	}

	switch {
	case op < opSetup:
		in.Kind = KindNote
		in.Note = op
	case op < opDelay:
		in.Kind = KindSetup
		in.FX = FX(op - opSetup)
		if err := operands(in.FX.Operands()); err != nil {
			return in, 0, err
		}
	case op < opLongDelay:
		in.Kind = KindDelay
		in.Delay = uint16(op) - (opDelay - 1)
	case op == opLongDelay:
		in.Kind = KindDelay
		value, n, err := ReadVLE(data, offset+size)
		if err != nil {
			return in, 0, fmt.Errorf("long delay at %d: %w", offset, err)
		}
		size += n
		delay := int(value) + longDelayBias
		if delay >= DelayExhausted {
			delay = DelayExhausted - 1
		}
		in.Delay = uint16(delay)
	case op < opCall:
		in.Kind = KindReserved
		padding := 0
		switch op - opReserved {
		case 1:
			padding = 1
		case 2:
			padding = 2
		}
		if err := operands(padding); err != nil {
			return in, 0, err
		}
	case op == opCall || op == opCallRep:
		in.Kind = KindCall
		count := 1
		if op == opCallRep {
			count = 2
		}
		if err := operands(count); err != nil {
			return in, 0, err
		}
		if op == opCallRep {
			in.Repeat = in.Args[0]
			in.Track = in.Args[1]
		} else {
			in.Track = in.Args[0]
		}
	case op == opReturn:
		in.Kind = KindReturn
	default:
		in.Kind = KindEmbed
		length, n, err := ReadVLE(data, offset+size)
		if err != nil {
			return in, 0, fmt.Errorf("embedded data at %d: %w", offset, err)
		}
		size += n
		if offset+size+int(length) > len(data) {
			return in, 0, fmt.Errorf("%w: %d embedded bytes at %d", ErrUnexpectedEnd, length, offset)
		}
		in.Length = int(length)
		size += int(length)
	}

	return in, size, nil
}

func (in Instruction) String() string {
	switch in.Kind {
	case KindNote:
		if in.Note == 0 {
			return "NOTE OFF"
		}
		return fmt.Sprintf("NOTE %s (%d)", NoteName(in.Note), in.Note)
	case KindSetup:
		var out strings.Builder
		out.WriteString(in.FX.String())
		for _, arg := range in.Args[:in.NArgs] {
			fmt.Fprintf(&out, " $%02X", arg)
		}
		return out.String()
	case KindDelay:
		return fmt.Sprintf("DELAY %d", in.Delay)
	case KindReserved:
		return fmt.Sprintf("NOP%d", in.NArgs)
	case KindCall:
		if in.Opcode == opCallRep {
			return fmt.Sprintf("CALL %d x%d", in.Track, int(in.Repeat)+1)
		}
		return fmt.Sprintf("CALL %d", in.Track)
	case KindReturn:
		return "RETURN"
	case KindEmbed:
		return fmt.Sprintf("DATA %d bytes", in.Length)
	}
	return "?"
}
