package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/benwiggins/atmplay/pkg/atm"
	"github.com/benwiggins/atmplay/pkg/mixer"
	"github.com/benwiggins/atmplay/pkg/render"
	"github.com/benwiggins/atmplay/pkg/speaker"
)

type options struct {
	dir        string
	sampleRate int
	bufferSize int
	dump       bool
	wavPath    string
	seconds    int
	silent     bool
	logPath    string
	retrigger  string
}

func parseRetrigger(name string) (atm.RetriggerPolicy, error) {
	for _, policy := range []atm.RetriggerPolicy{atm.RetriggerNone, atm.RetriggerSlide, atm.RetriggerTremolo, atm.RetriggerAll} {
		if policy.String() == name {
			return policy, nil
		}
	}
	return 0, fmt.Errorf("unknown retrigger policy %q (want none, slide, tremolo or all)", name)
}

func readSong(path string) (*atm.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	song, err := atm.LoadSong(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return song, nil
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "./songs", "directory the file browser starts in")
	flag.IntVar(&opts.sampleRate, "rate", 48000, "output sample rate")
	flag.IntVar(&opts.bufferSize, "buffer", 0, "speaker buffer in samples (default rate/100)")
	flag.BoolVar(&opts.dump, "dump", false, "print a disassembly of the song and exit")
	flag.StringVar(&opts.wavPath, "wav", "", "render the song to a WAV file and exit")
	flag.IntVar(&opts.seconds, "seconds", 60, "maximum length of a WAV render")
	flag.BoolVar(&opts.silent, "silent", false, "play without audio or UI until the song ends")
	flag.StringVar(&opts.logPath, "log", "", "append diagnostics to this file")
	flag.StringVar(&opts.retrigger, "retrigger", "none", "effects restarted by note-on: none, slide, tremolo, all")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [song.atm]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(opts, flag.Arg(0)); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(opts options, path string) error {
	interactive := !opts.dump && opts.wavPath == "" && !opts.silent

	switch {
	case opts.logPath != "":
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	case interactive:
		// anything on stderr would corrupt the screen
		log.SetOutput(io.Discard)
	}

	policy, err := parseRetrigger(opts.retrigger)
	if err != nil {
		return err
	}
	config := atm.DefaultConfig()
	config.RetriggerPolicy = policy

	if opts.bufferSize <= 0 {
		opts.bufferSize = opts.sampleRate / 100
	}

	if interactive {
		return runUI(opts, config, path)
	}

	if path == "" {
		flag.Usage()
		return errors.New("no song given")
	}
	song, err := readSong(path)
	if err != nil {
		return err
	}

	switch {
	case opts.dump:
		return dump(os.Stdout, song)
	case opts.wavPath != "":
		return renderWAV(opts, config, song)
	default:
		return playSilent(config, song)
	}
}

func renderWAV(opts options, config atm.Config, song *atm.Song) error {
	player := atm.NewPlayer(config)
	if err := player.Play(song); err != nil {
		return err
	}

	f, err := os.Create(opts.wavPath)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	frames, err := render.WAV(f, mixer.New(player, opts.sampleRate), opts.sampleRate, opts.seconds*opts.sampleRate)
	if err != nil {
		return err
	}
	log.Printf("wrote %s: %.2fs of audio in %v", opts.wavPath, float64(frames)/float64(opts.sampleRate), time.Since(start))
	return f.Close()
}

func playSilent(config atm.Config, song *atm.Song) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	player := atm.NewPlayer(config)
	if err := player.Play(song); err != nil {
		return err
	}

	err := player.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Printf("played %d ticks", player.Ticks())
	if err != nil {
		return err
	}
	return player.Err()
}

// monitor is the live view of a playing song
type monitor struct {
	screen  tcell.Screen
	player  *atm.Player
	mixer   *mixer.Mixer
	speaker *speaker.Speaker

	mu       sync.Mutex
	browsing bool
	path     string
	song     *atm.Song
	lines    []atm.Line
}

func (m *monitor) start(path string, song *atm.Song) error {
	lines, err := atm.Disassemble(song)
	if err != nil {
		log.Printf("%s: %v", path, err)
	}

	m.mu.Lock()
	m.path, m.song, m.lines = path, song, lines
	m.mu.Unlock()

	if err := m.player.Play(song); err != nil {
		return err
	}
	m.speaker.Play(m.mixer, nil)
	return nil
}

func (m *monitor) setBrowsing(browsing bool) {
	m.mu.Lock()
	m.browsing = browsing
	m.mu.Unlock()
}

func (m *monitor) draw() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browsing {
		return
	}

	s := m.screen
	states := m.player.Channels()
	drawStatus(s, m.player, m.mixer, filepath.Base(m.path))
	drawChannels(s, states)
	drawTracks(s, m.lines, states)
	drawMeters(s, m.mixer)
	drawHelp(s)
	s.Show()
}

// browse swaps the monitor for the file browser and plays the chosen song
func (m *monitor) browse(dir string) error {
	m.setBrowsing(true)
	defer m.setBrowsing(false)

	path, err := load(m.screen, dir)
	if errors.Is(err, errCancelled) {
		return nil
	}
	if err != nil {
		return err
	}
	song, err := readSong(path)
	if err != nil {
		return err
	}
	return m.start(path, song)
}

func runUI(opts options, config atm.Config, path string) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	s.SetStyle(defStyle)
	s.Clear()

	if path == "" {
		path, err = load(s, opts.dir)
		if errors.Is(err, errCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	song, err := readSong(path)
	if err != nil {
		return err
	}

	spk, err := speaker.New(opts.sampleRate, opts.bufferSize)
	if err != nil {
		return err
	}
	defer spk.Close()

	player := atm.NewPlayer(config)
	m := &monitor{
		screen:  s,
		player:  player,
		mixer:   mixer.New(player, opts.sampleRate),
		speaker: spk,
	}
	if err := m.start(path, song); err != nil {
		return err
	}

	terminate := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second / 60)
		defer ticker.Stop()
		for {
			select {
			case <-terminate:
				return
			case <-ticker.C:
				m.draw()
			}
		}
	}()
	defer func() {
		close(terminate)
		wg.Wait()
	}()

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				return nil
			}
			switch r := ev.Rune(); r {
			case '1', '2', '3', '4':
				if _, err := player.ToggleMute(int(r - '1')); err != nil {
					log.Printf("mute: %v", err)
				}
			case ' ':
				player.PlayPause()
			case 's', 'S':
				player.Stop()
			case 'p', 'P':
				m.mu.Lock()
				song := m.song
				m.mu.Unlock()
				if err := player.Play(song); err != nil {
					log.Printf("play: %v", err)
				}
				spk.Play(m.mixer, nil)
			case 'm', 'M':
				m.mixer.SetMixingMode((m.mixer.MixingMode() + 1) % 3)
			case 'l', 'L':
				m.mu.Lock()
				dir := filepath.Dir(m.path)
				m.mu.Unlock()
				if err := m.browse(dir); err != nil {
					log.Printf("load: %v", err)
				}
				s.Clear()
			case 'q', 'Q':
				return nil
			}
		}
	}
}
