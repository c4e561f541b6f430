package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/benwiggins/atmplay/pkg/atm"
)

var fileStyle = tcell.StyleDefault.Background(sampleBgColour).Foreground(sampleFgColour)
var fileHighlightStyle = tcell.StyleDefault.Background(sampleHighlightBgColour).Foreground(sampleHighlightFgColour).Bold(true)
var songRegexp = regexp.MustCompile(`(?i)\.(atm|bin)$`)

// errCancelled is returned when the browser is left without picking a file
var errCancelled = errors.New("no song selected")

type file struct {
	name  string
	isDir bool
	size  int64
	info  *string
}

func parseDir(path string) ([]file, error) {
	var matchingFiles []file

	if path != "/" {
		matchingFiles = append(matchingFiles, file{name: "../", isDir: true})
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			matchingFiles = append(matchingFiles, file{name: entry.Name() + "/", isDir: true})
			continue
		}
		if !songRegexp.MatchString(entry.Name()) {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		matchingFiles = append(matchingFiles, file{name: entry.Name(), size: size})
	}

	return matchingFiles, nil
}

// describe summarises a song file for the browser
func describe(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unreadable"
	}
	song, err := atm.ParseSong(data)
	if err != nil {
		return fmt.Sprintf("invalid: %v", err)
	}
	return fmt.Sprintf("%d tracks, start %v", song.TrackCount, song.StartTrack)
}

type browser struct {
	currentDir string
	currentIdx int
	entries    []file
}

func (b *browser) changeDir(dir string) error {
	dir, err := filepath.Abs(filepath.Join(b.currentDir, dir))
	if err != nil {
		return err
	}
	entries, err := parseDir(dir)
	if err != nil {
		return err
	}
	b.currentDir = dir
	b.currentIdx = 0
	b.entries = entries
	return nil
}

func (b *browser) draw(s tcell.Screen) {
	drawBox(s, 0, 0, 130, 38)
	drawText(s, 2, 0, 100, 0, fileStyle.Bold(true), b.currentDir)

	yPos := 1
	for idx := range b.entries {
		entry := &b.entries[idx]
		xPos := 1
		style := fileStyle
		if idx == b.currentIdx {
			style = fileHighlightStyle
		}
		drawText(s, xPos, yPos, 32, 1, style, fmt.Sprintf("%-31s", entry.name))
		xPos += 32

		if entry.isDir {
			drawText(s, xPos, yPos, 9, 1, style, "<dir>")
		} else {
			drawText(s, xPos, yPos, 9, 1, style, fmt.Sprintf("%-8d", entry.size))
			xPos += 9

			if entry.info == nil {
				info := describe(filepath.Join(b.currentDir, entry.name))
				entry.info = &info
			}
			drawText(s, xPos, yPos, 60, 1, style, *entry.info)
		}
		yPos++
		if yPos >= 38 {
			break
		}
	}
	s.Show()
}

// handleKey moves the selection or enters a directory. It returns the song
// path once a file is picked.
func (b *browser) handleKey(ev *tcell.EventKey) (string, error) {
	switch ev.Key() {
	case tcell.KeyDown:
		if b.currentIdx < len(b.entries)-1 {
			b.currentIdx++
		} else {
			b.currentIdx = 0
		}
	case tcell.KeyUp:
		if b.currentIdx > 0 {
			b.currentIdx--
		} else {
			b.currentIdx = len(b.entries) - 1
		}
	case tcell.KeyHome:
		b.currentIdx = 0
	case tcell.KeyEnd:
		b.currentIdx = len(b.entries) - 1
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return "", errCancelled
	case tcell.KeyEnter:
		if len(b.entries) == 0 {
			return "", nil
		}
		entry := b.entries[b.currentIdx]
		if entry.isDir {
			return "", b.changeDir(entry.name)
		}
		return filepath.Join(b.currentDir, entry.name), nil
	}
	return "", nil
}

// load shows a file browser on s starting at dir and returns the chosen
// song path
func load(s tcell.Screen, dir string) (string, error) {
	b := &browser{currentDir: dir}
	if err := b.changeDir(""); err != nil {
		return "", err
	}
	s.Clear()

	var mu sync.Mutex
	var wg sync.WaitGroup
	terminate := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second / 30)
		defer ticker.Stop()
		for {
			select {
			case <-terminate:
				return
			case <-ticker.C:
				mu.Lock()
				b.draw(s)
				mu.Unlock()
			}
		}
	}()
	defer func() {
		close(terminate)
		wg.Wait()
		s.Clear()
	}()

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return "", errCancelled
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			mu.Lock()
			dir := b.currentDir
			path, err := b.handleKey(ev)
			if b.currentDir != dir {
				s.Clear()
			}
			mu.Unlock()
			if err != nil || path != "" {
				return path, err
			}
		}
	}
}
