package atm

import (
	"errors"
	"testing"
)

func TestReadVLE(t *testing.T) {
	tests := []struct {
		data  []byte
		value uint16
		size  int
		err   error
	}{
		{[]byte{0x00}, 0, 1, nil},
		{[]byte{0x7F}, 127, 1, nil},
		{[]byte{0x81, 0x00}, 128, 2, nil},
		{[]byte{0xFF, 0x7F}, 0x3FFF, 2, nil},
		{[]byte{0x81, 0x80, 0x00}, 0x4000, 3, nil},
		{[]byte{0x81}, 0, 1, ErrUnexpectedEnd},
		{[]byte{0x81, 0x81, 0x81, 0x00}, 0, 3, ErrVLETooLong},
	}

	for i, tt := range tests {
		value, size, err := ReadVLE(tt.data, 0)
		if !errors.Is(err, tt.err) {
			t.Errorf("case %d: expected error %v, got %v", i, tt.err, err)
			continue
		}
		if err != nil {
			continue
		}
		if value != tt.value || size != tt.size {
			t.Errorf("case %d: expected %d (%d bytes), got %d (%d bytes)", i, tt.value, tt.size, value, size)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		kind  Kind
		size  int
		check func(in Instruction) bool
	}{
		{"note", []byte{12}, KindNote, 1, func(in Instruction) bool { return in.Note == 12 }},
		{"note off", []byte{0}, KindNote, 1, func(in Instruction) bool { return in.Note == 0 }},
		{"set volume", []byte{64, 40}, KindSetup, 2, func(in Instruction) bool {
			return in.FX == FxSetVolume && in.Args[0] == 40 && in.NArgs == 1
		}},
		{"arpeggio", []byte{64 + 7, 0x47, 0x03}, KindSetup, 3, func(in Instruction) bool {
			return in.FX == FxArpeggio && in.Args[0] == 0x47 && in.Args[1] == 0x03
		}},
		{"slide off", []byte{64 + 3}, KindSetup, 1, func(in Instruction) bool { return in.FX == FxSlideVolumeOff }},
		{"tempo", []byte{64 + 93, 30}, KindSetup, 2, func(in Instruction) bool { return in.FX == FxSetTempo }},
		{"goto", []byte{64 + 94, 1, 2, 3, 4}, KindSetup, 5, func(in Instruction) bool {
			return in.Args == [4]uint8{1, 2, 3, 4}
		}},
		{"unknown setup", []byte{64 + 50}, KindSetup, 1, func(in Instruction) bool { return !in.FX.Known() }},
		{"shortest delay", []byte{160}, KindDelay, 1, func(in Instruction) bool { return in.Delay == 1 }},
		{"longest short delay", []byte{223}, KindDelay, 1, func(in Instruction) bool { return in.Delay == 64 }},
		{"long delay", []byte{224, 0x05}, KindDelay, 2, func(in Instruction) bool { return in.Delay == 134 }},
		{"long delay two bytes", []byte{224, 0x81, 0x00}, KindDelay, 3, func(in Instruction) bool { return in.Delay == 257 }},
		{"reserved", []byte{225}, KindReserved, 1, func(in Instruction) bool { return in.NArgs == 0 }},
		{"reserved one pad", []byte{226, 9}, KindReserved, 2, nil},
		{"reserved two pads", []byte{227, 9, 9}, KindReserved, 3, nil},
		{"reserved high", []byte{251}, KindReserved, 1, nil},
		{"call", []byte{252, 3}, KindCall, 2, func(in Instruction) bool { return in.Track == 3 && in.Repeat == 0 }},
		{"call repeat", []byte{253, 2, 5}, KindCall, 3, func(in Instruction) bool { return in.Track == 5 && in.Repeat == 2 }},
		{"return", []byte{254}, KindReturn, 1, nil},
		{"embed", []byte{255, 3, 1, 2, 3}, KindEmbed, 5, func(in Instruction) bool { return in.Length == 3 }},
	}

	for _, tt := range tests {
		in, size, err := Decode(tt.data, 0)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if in.Kind != tt.kind {
			t.Errorf("%s: expected kind %v, got %v", tt.name, tt.kind, in.Kind)
		}
		if size != tt.size {
			t.Errorf("%s: expected size %d, got %d", tt.name, tt.size, size)
		}
		if tt.check != nil && !tt.check(in) {
			t.Errorf("%s: unexpected instruction %+v", tt.name, in)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := [][]byte{
		{},
		{64},
		{64 + 7, 0x47},
		{64 + 94, 1, 2},
		{224},
		{224, 0x81},
		{226},
		{252},
		{253, 2},
		{255, 4, 1, 2},
	}

	for i, data := range tests {
		_, _, err := Decode(data, 0)
		if !errors.Is(err, ErrUnexpectedEnd) {
			t.Errorf("case %d (% X): expected ErrUnexpectedEnd, got %v", i, data, err)
		}
	}
}

func TestDecodeOffset(t *testing.T) {
	data := []byte{12, 163, 254}
	offset := 0
	var kinds []Kind
	for offset < len(data) {
		in, size, err := Decode(data, offset)
		if err != nil {
			t.Fatalf("offset %d: %v", offset, err)
		}
		kinds = append(kinds, in.Kind)
		offset += size
	}

	expected := []Kind{KindNote, KindDelay, KindReturn}
	if len(kinds) != len(expected) {
		t.Fatalf("expected %d instructions, got %d", len(expected), len(kinds))
	}
	for i := range expected {
		if kinds[i] != expected[i] {
			t.Errorf("instruction %d: expected %v, got %v", i, expected[i], kinds[i])
		}
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte{1}, "NOTE C-4 (1)"},
		{[]byte{0}, "NOTE OFF"},
		{[]byte{64, 0x28}, "VOLUME $28"},
		{[]byte{163}, "DELAY 4"},
		{[]byte{253, 2, 1}, "CALL 1 x3"},
		{[]byte{252, 1}, "CALL 1"},
		{[]byte{254}, "RETURN"},
		{[]byte{255, 2, 0, 0}, "DATA 2 bytes"},
	}

	for _, tt := range tests {
		in, _, err := Decode(tt.data, 0)
		if err != nil {
			t.Fatalf("% X: %v", tt.data, err)
		}
		if got := in.String(); got != tt.want {
			t.Errorf("% X: expected %q, got %q", tt.data, tt.want, got)
		}
	}
}
