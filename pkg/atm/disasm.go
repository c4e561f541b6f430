package atm

import "fmt"

// Line is one disassembled instruction
type Line struct {
	Track       uint8
	Offset      int
	Instruction Instruction
}

// Disassemble decodes every track of song from its first instruction to its
// first RETURN. Embedded data is skipped, never decoded. Decoding stops at
// the first malformed instruction, and the lines read so far are returned
// with the error.
func Disassemble(song *Song) ([]Line, error) {
	if song == nil {
		return nil, ErrNoSong
	}

	var lines []Line
	for track := 0; track < song.TrackCount; track++ {
		offset, err := song.TrackOffset(uint8(track))
		if err != nil {
			return lines, err
		}
		for {
			in, size, err := Decode(song.Data, offset)
			if err != nil {
				return lines, fmt.Errorf("track %d: %w", track, err)
			}
			lines = append(lines, Line{Track: uint8(track), Offset: offset, Instruction: in})
			offset += size
			if in.Kind == KindReturn {
				break
			}
		}
	}
	return lines, nil
}
