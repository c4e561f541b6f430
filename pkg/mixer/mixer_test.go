package mixer

import (
	"encoding/binary"
	"io"
	"log"
	"testing"

	"github.com/benwiggins/atmplay/pkg/atm"
)

// songOf builds a one-track song played by every channel
func songOf(t *testing.T, bytecode ...byte) *atm.Song {
	t.Helper()
	data := []byte{1}
	data = binary.LittleEndian.AppendUint16(data, 0)
	data = append(data, 0, 0, 0, 0)
	data = append(data, bytecode...)
	song, err := atm.ParseSong(data)
	if err != nil {
		t.Fatalf("ParseSong: %v", err)
	}
	return song
}

func newPlayer(t *testing.T, song *atm.Song) *atm.Player {
	t.Helper()
	player := atm.NewPlayer(atm.DefaultConfig())
	player.Logger = log.New(io.Discard, "", 0)
	if err := player.Play(song); err != nil {
		t.Fatalf("Play: %v", err)
	}
	return player
}

func TestStreamTicksPlayer(t *testing.T) {
	// volume 63, note A-4, delay 10, return
	song := songOf(t, 64, 63, 10, 169, 254)
	player := newPlayer(t, song)
	mixer := New(player, 15625)

	samples := make([][2]float32, 625*3)
	n, ok := mixer.Stream(samples)
	if n != len(samples) || !ok {
		t.Fatalf("expected %d samples, got %d %v", len(samples), n, ok)
	}
	if ticks := player.Ticks(); ticks != 3 {
		t.Errorf("expected 3 ticks, got %d", ticks)
	}

	nonZero := 0
	for _, sample := range samples {
		if sample[0] < -1 || sample[0] > 1 {
			t.Fatalf("sample out of range: %v", sample[0])
		}
		if sample[0] != 0 {
			nonZero++
		}
		if sample[0] != sample[1] {
			t.Fatalf("mono mix differs between ears: %v", sample)
		}
	}
	if nonZero == 0 {
		t.Errorf("expected audible output")
	}
}

func TestStreamEndsWhenPlayerStops(t *testing.T) {
	song := songOf(t, 10, 160, 254)
	player := newPlayer(t, song)
	mixer := New(player, 8000)

	samples := make([][2]float32, 4096)
	total := 0
	for i := 0; i < 100; i++ {
		n, ok := mixer.Stream(samples)
		total += n
		if !ok {
			if n != 0 {
				t.Errorf("expected no samples with ok=false, got %d", n)
			}
			break
		}
	}
	if player.State() != atm.StateStopped {
		t.Fatalf("expected player to stop, got %v", player.State())
	}
	// one tick of note, one tick to exhaust, then the stopping tick
	if perTick := player.SamplesPerTick(8000); total != 3*perTick {
		t.Errorf("expected %d samples, got %d", 3*perTick, total)
	}
}

func TestPausedPlayerIsSilent(t *testing.T) {
	song := songOf(t, 64, 63, 10, 224, 0x81, 0x00, 254)
	player := newPlayer(t, song)
	mixer := New(player, 15625)

	samples := make([][2]float32, 625)
	mixer.Stream(samples)
	player.PlayPause()

	mixer.Stream(samples)
	for _, sample := range samples {
		if sample[0] != 0 || sample[1] != 0 {
			t.Fatalf("expected silence while paused, got %v", sample)
		}
	}
	if ticks := player.Ticks(); ticks != 1 {
		t.Errorf("expected paused player to stay at 1 tick, got %d", ticks)
	}
}

func TestSplitMixing(t *testing.T) {
	song := songOf(t, 64, 63, 10, 224, 0x81, 0x00, 254)
	player := newPlayer(t, song)
	for _, ch := range []int{1, 2, 3} {
		player.Mute(ch)
	}
	mixer := New(player, 15625)
	mixer.SetMixingMode(SplitMixingMode)

	samples := make([][2]float32, 625)
	mixer.Stream(samples)
	for _, sample := range samples {
		if sample[1] != 0 {
			t.Fatalf("expected voice 0 in the left ear only, got %v", sample)
		}
	}
	left, _ := mixer.SampleValues()
	if left == 0 {
		t.Errorf("expected voice 0 in the left ear")
	}
}

func TestLFSR(t *testing.T) {
	seen := map[uint16]bool{}
	sr := uint16(1)
	for i := 0; i < 1<<15-1; i++ {
		if seen[sr] {
			t.Fatalf("shift register repeated after %d steps", i)
		}
		seen[sr] = true
		sr = stepLFSR(sr)
	}
	if sr != 1 {
		t.Errorf("expected period 32767, register is %#x", sr)
	}
}

func TestSquarePeriod(t *testing.T) {
	m := New(nil, 8000)
	osc := atm.Oscillator{Frequency: 1000, Volume: atm.MaxVolume}

	high := 0
	for i := 0; i < 16; i++ {
		if m.square(0, osc) > 0 {
			high++
		}
	}
	if high != 8 {
		t.Errorf("expected 8 high samples over two periods, got %d", high)
	}

	// frequencies above the sample rate alias instead of overflowing
	osc.Frequency = atm.MaxFrequency
	for i := 0; i < 100; i++ {
		if v := m.square(0, osc); v != 1 && v != -1 {
			t.Fatalf("expected a full-scale sample, got %v", v)
		}
	}
}

func TestNoiseClock(t *testing.T) {
	tests := []struct {
		sampleRate int
		samples    int
		steps      int
	}{
		{15625, 15625, 15625},
		{8000, 8000, 15625},
		{48000, 48000, 15625},
		{8000, 1, 1},
		{8000, 2, 3},
	}

	osc := atm.Oscillator{Frequency: 1, Volume: atm.MaxVolume}
	for _, tt := range tests {
		m := New(nil, tt.sampleRate)
		values := map[float32]bool{}
		for i := 0; i < tt.samples; i++ {
			values[m.noise(osc)] = true
		}

		want := uint16(noiseSeed)
		for i := 0; i < tt.steps; i++ {
			want = stepLFSR(want)
		}
		if m.lfsr != want {
			t.Errorf("%d Hz, %d samples: expected register %#x after %d steps, got %#x", tt.sampleRate, tt.samples, want, tt.steps, m.lfsr)
		}
		if tt.samples > 100 && len(values) != 2 {
			t.Errorf("%d Hz: expected noise, got values %v", tt.sampleRate, values)
		}
	}
}

func TestNoiseClocksEverySampleAtBaseRate(t *testing.T) {
	m := New(nil, 15625)
	osc := atm.Oscillator{Frequency: 1, Volume: atm.MaxVolume}
	want := uint16(noiseSeed)
	for i := 0; i < 1000; i++ {
		m.noise(osc)
		want = stepLFSR(want)
		if m.lfsr != want {
			t.Fatalf("sample %d: expected register %#x, got %#x", i, want, m.lfsr)
		}
	}
}

func TestRetriggerReseedsNoise(t *testing.T) {
	// volume 40, retrigger note 5 every 2 ticks, long delay
	song := songOf(t, 64, 40, 73, 5<<2|1, 224, 0x81, 0x00, 254)
	player := newPlayer(t, song)
	m := New(player, 15625)
	seed := atm.NoteTable[5] & 0x7FFF

	// the retrigger fires on ticks 3, 5 and 7
	reseeds := map[int]bool{3: true, 5: true, 7: true}
	for tick := 1; tick <= 8; tick++ {
		if !m.nextTick() {
			t.Fatalf("tick %d: player stopped", tick)
		}
		if reseeds[tick] && m.lfsr != seed {
			t.Errorf("tick %d: expected register back at seed %#x, got %#x", tick, seed, m.lfsr)
		}
		for i := 0; i < m.samplesPerTick; i++ {
			m.nextSample()
		}
		if tick >= 3 && m.lfsr == seed {
			t.Fatalf("tick %d: expected register to move off the seed", tick)
		}
	}
	if gen := player.Output().Load(atm.NoiseChannel).Seed; gen != 3 {
		t.Errorf("expected 3 reseeds, got %d", gen)
	}
}
