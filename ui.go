package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/benwiggins/atmplay/pkg/atm"
	"github.com/benwiggins/atmplay/pkg/mixer"
)

var backgroundColour = tcell.GetColor("#282a36")
var effectColour = tcell.GetColor("#88DEEB")
var songColour = tcell.GetColor("#F879C0")
var noteColour = tcell.GetColor("#F879C0")
var valueColour = tcell.GetColor("#ffb86c")
var errorColour = tcell.GetColor("#ff5555")

var sampleBgColour = tcell.GetColor("#282a36")
var sampleFgColour = tcell.GetColor("#626A86")
var sampleHighlightBgColour = tcell.GetColor("#526A9E")
var sampleHighlightFgColour = tcell.GetColor("#bc91f3")

var boxBgColour = tcell.GetColor("#282a36")
var boxFgColour = tcell.GetColor("#526A9E")

var meterColour1 = tcell.GetColor("#E1FA8C")
var meterColour2 = tcell.GetColor("#50FA7B")

var defStyle = tcell.StyleDefault.Background(backgroundColour).Foreground(tcell.ColorReset)
var labelStyle = defStyle.Foreground(sampleFgColour).Bold(true)
var songStyle = defStyle.Bold(true).Foreground(songColour)
var lineStyle = defStyle.Foreground(sampleFgColour)
var lineHighlightStyle = tcell.StyleDefault.Background(sampleHighlightBgColour).Foreground(sampleHighlightFgColour).Bold(true)

const (
	channelWidth = 31
	meterRows    = 8
)

func drawBox(s tcell.Screen, x1, y1, x2, y2 int) {
	style := tcell.StyleDefault.Background(boxBgColour).Foreground(boxFgColour)

	for row := y1; row <= y2; row++ {
		for col := x1; col <= x2; col++ {
			s.SetContent(col, row, ' ', nil, style)
		}
	}

	for col := x1; col <= x2; col++ {
		s.SetContent(col, y1, '─', nil, style)
		s.SetContent(col, y2, '─', nil, style)
	}
	for row := y1 + 1; row < y2; row++ {
		s.SetContent(x1, row, tcell.RuneVLine, nil, style)
		s.SetContent(x2, row, tcell.RuneVLine, nil, style)
	}

	// Only draw corners if necessary
	if y1 != y2 && x1 != x2 {
		s.SetContent(x1, y1, '╭', nil, style)
		s.SetContent(x2, y1, '╮', nil, style)
		s.SetContent(x1, y2, '╰', nil, style)
		s.SetContent(x2, y2, '╯', nil, style)
	}
}

// drawText writes text into a width x height cell area, wrapping at the
// right edge and padding the rest with spaces
func drawText(s tcell.Screen, x, y, width, height int, style tcell.Style, text string) {
	xPos := x
	yPos := y
	for _, r := range text {
		s.SetContent(xPos, yPos, r, nil, style)
		xPos++
		if xPos > x+width {
			yPos++
			xPos = x
		}
		if yPos > y+height {
			return
		}
	}

	for yPos < y+height {
		for xPos < x+width {
			s.SetContent(xPos, yPos, ' ', nil, style)
			xPos++
		}
		yPos++
		xPos = x
	}
}

// drawField draws "label value" and returns the x after it
func drawField(s tcell.Screen, x, y int, label string, style tcell.Style, value string) int {
	drawText(s, x, y, len(label)+1, 1, labelStyle, label)
	x += len(label) + 1
	drawText(s, x, y, len(value)+2, 1, style, value)
	return x + len(value) + 2
}

func drawStatus(s tcell.Screen, player *atm.Player, mix *mixer.Mixer, name string) {
	xPos, yPos := 2, 0

	drawText(s, xPos, yPos, 40, 1, songStyle, name)
	xPos = 44

	drawText(s, xPos, yPos, 1, 1, labelStyle.Underline(true), "M")
	xPos = drawField(s, xPos+1, yPos, "ixing:", defStyle.Foreground(effectColour), fmt.Sprintf("%-6s", mix.MixingMode()))
	xPos = drawField(s, xPos, yPos, "State:", defStyle.Foreground(valueColour), fmt.Sprintf("%-7s", player.State()))
	xPos = drawField(s, xPos, yPos, "Tempo:", defStyle.Foreground(valueColour), fmt.Sprintf("%3d/s", player.Tempo()))
	drawField(s, xPos, yPos, "Ticks:", defStyle.Foreground(valueColour), fmt.Sprintf("%-8d", player.Ticks()))
}

func drawChannels(s tcell.Screen, states [atm.NumChannels]atm.ChannelState) {
	y := 1
	height := 10

	for n, state := range states {
		x := 1 + n*(channelWidth+1)
		drawBox(s, x, y, x+channelWidth, y+height)
		xPos, yPos := x+1, y+1

		title := fmt.Sprintf("%d square", n+1)
		if n == atm.NoiseChannel {
			title = fmt.Sprintf("%d noise", n+1)
		}
		titleStyle := songStyle
		if state.Muted || !state.Active {
			titleStyle = labelStyle
		}
		drawText(s, xPos, yPos, channelWidth-2, 1, titleStyle, title)
		yPos++

		noteStyle := defStyle.Foreground(noteColour)
		valStyle := defStyle.Foreground(valueColour)

		drawField(s, xPos, yPos, "Note  ", noteStyle, fmt.Sprintf("%s %2d", atm.NoteName(state.Note), state.Note))
		yPos++
		drawField(s, xPos, yPos, "Freq  ", valStyle, fmt.Sprintf("%5d", state.Frequency))
		yPos++
		drawField(s, xPos, yPos, "Vol   ", valStyle, fmt.Sprintf("%2d %-16s", state.Volume, volumeBar(state.Volume)))
		yPos++
		drawField(s, xPos, yPos, "Track ", valStyle, fmt.Sprintf("%3d x%-3d depth %d", state.Track, int(state.Repeat)+1, state.Depth))
		yPos++
		drawField(s, xPos, yPos, "Delay ", valStyle, delayText(state))
		yPos++
		drawField(s, xPos, yPos, "Trans ", valStyle, fmt.Sprintf("%+3d", state.Transpose))
		yPos++

		var flags []string
		if state.Muted {
			flags = append(flags, "muted")
		}
		if !state.Active {
			flags = append(flags, "stopped")
		}
		if state.Exhausted && state.Err == nil {
			flags = append(flags, "ended")
		}
		drawText(s, xPos, yPos, channelWidth-2, 1, labelStyle, strings.Join(flags, " "))
		yPos++

		if state.Err != nil {
			drawText(s, xPos, yPos, channelWidth-2, 1, defStyle.Foreground(errorColour), state.Err.Error())
		}
	}
}

func delayText(state atm.ChannelState) string {
	if state.Exhausted {
		return "----"
	}
	return fmt.Sprintf("%4d", state.Delay)
}

func volumeBar(vol uint8) string {
	if vol > atm.MaxVolume {
		vol = atm.MaxVolume
	}
	return strings.Repeat("▮", int(vol)/4)
}

// currentLine finds the instruction the channel executed last: the line
// with the highest offset below the cursor
func currentLine(lines []atm.Line, cursor int) int {
	found := -1
	for idx, line := range lines {
		if line.Offset < cursor && (found < 0 || line.Offset > lines[found].Offset) {
			found = idx
		}
	}
	return found
}

func drawTracks(s tcell.Screen, lines []atm.Line, states [atm.NumChannels]atm.ChannelState) {
	y := 12
	height := 22
	rows := height - 1

	for n, state := range states {
		x := 1 + n*(channelWidth+1)
		drawBox(s, x, y, x+channelWidth, y+height)
		xPos, yPos := x+1, y+1

		current := currentLine(lines, state.Cursor)
		if current < 0 || state.Exhausted {
			continue
		}
		track := lines[current].Track

		// lines of one track are contiguous
		first := current
		for first > 0 && lines[first-1].Track == track && current-first < rows/2 {
			first--
		}

		for idx := first; idx < len(lines) && lines[idx].Track == track && yPos < y+height; idx++ {
			style := lineStyle
			if idx == current {
				style = lineHighlightStyle
			}
			text := fmt.Sprintf("%02X:%04X %s", track, lines[idx].Offset, lines[idx].Instruction)
			drawText(s, xPos, yPos, channelWidth-2, 1, style, text)
			yPos++
		}
	}
}

var leftValues = make([]float32, meterRows)
var rightValues = make([]float32, meterRows)

func meterDB(values []float32, value float32) float64 {
	if value < 0 {
		value = -value
	}
	if value > 1 {
		value = 1
	}
	copy(values, values[1:])
	values[len(values)-1] = value

	var sum float32
	for _, v := range values {
		sum += v
	}
	db := 20 * math.Log10(float64(sum/float32(len(values))))
	if db > 0 {
		db = 0
	}
	if db < -96 || math.IsInf(db, -1) {
		db = -96
	}
	return db
}

func drawMeters(s tcell.Screen, mix *mixer.Mixer) {
	x, y := 1, 35
	width, height := 127, 3
	drawBox(s, x, y, x+width, y+height)

	left, right := mix.SampleValues()
	drawMeter(s, x+1, y+1, width-2, meterDB(leftValues, left), meterColour1)
	drawMeter(s, x+1, y+2, width-2, meterDB(rightValues, right), meterColour2)
}

func drawMeter(s tcell.Screen, x, y, width int, db float64, colour tcell.Color) {
	style := tcell.StyleDefault.Background(backgroundColour).Foreground(colour)
	runes := []string{"▏", "▎", "▍", "▌", "▋", "▊", "▉", "█"}

	length := float32(width) * float32(96+db) / 96
	xPos := x
	for i := 0; i < int(length); i++ {
		drawText(s, xPos, y, 1, 1, style, runes[7])
		xPos++
	}
	remainder := length - float32(int(length))
	if remainder >= 0.125 {
		drawText(s, xPos, y, 1, 1, style, runes[int(remainder*8)-1])
	}
}

func drawHelp(s tcell.Screen) {
	help := "1-4 mute  space pause  p play  s stop  m mixing  l load  q quit"
	drawText(s, 2, 39, len(help)+1, 1, labelStyle, help)
}
