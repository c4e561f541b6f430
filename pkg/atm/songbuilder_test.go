package atm

import (
	"encoding/binary"
	"io"
	"log"
	"testing"
)

// buildSong assembles a song blob from raw track bytecode
func buildSong(start [NumChannels]uint8, tracks ...[]byte) []byte {
	data := []byte{byte(len(tracks))}
	offset := 0
	for _, track := range tracks {
		data = binary.LittleEndian.AppendUint16(data, uint16(offset))
		offset += len(track)
	}
	data = append(data, start[:]...)
	for _, track := range tracks {
		data = append(data, track...)
	}
	return data
}

func note(n uint8) []byte {
	return []byte{n}
}

func delay(ticks uint8) []byte {
	return []byte{opDelay - 1 + ticks}
}

func fx(sub FX, args ...uint8) []byte {
	return append([]byte{opSetup + uint8(sub)}, args...)
}

func call(track uint8) []byte {
	return []byte{opCall, track}
}

func callRepeat(track, repeat uint8) []byte {
	return []byte{opCallRep, repeat, track}
}

func ret() []byte {
	return []byte{opReturn}
}

// longDelay encodes a delay of 129+value ticks, value < 1<<14
func longDelay(value uint16) []byte {
	hi := 0x80 | byte(value>>7)
	lo := byte(value) & 0x7F
	return []byte{opLongDelay, hi, lo}
}

func track(parts ...[]byte) []byte {
	var out []byte
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// silentTrack exhausts on the first tick
var silentTrack = ret()

func newTestPlayer(t *testing.T, config Config, data []byte) *Player {
	t.Helper()
	song, err := ParseSong(data)
	if err != nil {
		t.Fatalf("ParseSong: %v", err)
	}
	player := NewPlayer(config)
	player.Logger = log.New(io.Discard, "", 0)
	if err := player.Play(song); err != nil {
		t.Fatalf("Play: %v", err)
	}
	return player
}
