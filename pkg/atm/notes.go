package atm

import "fmt"

// NoteTable maps a note index to its frequency. Entry 0 is silence.
var NoteTable = [64]uint16{
	0,
	262, 277, 294, 311, 330, 349, 370, 392, 415, 440, 466, 494,
	523, 554, 587, 622, 659, 698, 740, 784, 831, 880, 932, 988,
	1047, 1109, 1175, 1245, 1319, 1397, 1480, 1568, 1661, 1760, 1865, 1976,
	2093, 2217, 2349, 2489, 2637, 2794, 2960, 3136, 3322, 3520, 3729, 3951,
	4186, 4435, 4699, 4978, 5274, 5588, 5920, 6272, 6645, 7040, 7459, 7902,
	8372, 8870, 9397,
}

var noteNames = []string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// clampNote limits a note index to the table
func clampNote(note int) uint8 {
	if note < 0 {
		return 0
	}
	if note > len(NoteTable)-1 {
		return uint8(len(NoteTable) - 1)
	}
	return uint8(note)
}

// NoteFrequency looks up a note index, clamped to the table
func NoteFrequency(note int) uint16 {
	return NoteTable[clampNote(note)]
}

// NoteName returns a tracker style name, C-4 for note 1, "---" for silence
func NoteName(note uint8) string {
	if note == 0 || int(note) >= len(NoteTable) {
		return "---"
	}
	idx := int(note) - 1
	return fmt.Sprintf("%s%d", noteNames[idx%12], 4+idx/12)
}
