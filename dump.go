package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/benwiggins/atmplay/pkg/atm"
)

var (
	trackHeader = color.New(color.FgMagenta, color.Bold)
	offsetColor = color.New(color.FgHiBlack)
	kindColors  = map[atm.Kind]*color.Color{
		atm.KindNote:     color.New(color.FgHiMagenta),
		atm.KindSetup:    color.New(color.FgCyan),
		atm.KindDelay:    color.New(color.FgYellow),
		atm.KindReserved: color.New(color.FgHiBlack),
		atm.KindCall:     color.New(color.FgGreen, color.Bold),
		atm.KindReturn:   color.New(color.FgGreen),
		atm.KindEmbed:    color.New(color.FgRed),
	}
)

// dump prints the header and a colored disassembly of every track
func dump(w io.Writer, song *atm.Song) error {
	fmt.Fprintf(w, "%d tracks, track data at $%04X, start tracks %v\n",
		song.TrackCount, song.TrackBase(), song.StartTrack)

	lines, err := atm.Disassemble(song)
	track := -1
	for _, line := range lines {
		if int(line.Track) != track {
			track = int(line.Track)
			trackHeader.Fprintf(w, "\ntrack %d\n", track)
		}
		offsetColor.Fprintf(w, "  $%04X  ", line.Offset)
		kindColors[line.Instruction.Kind].Fprintln(w, line.Instruction.String())
	}
	return err
}
