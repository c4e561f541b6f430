// Package render writes a Streamer to a WAV file instead of the sound card.
package render

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/benwiggins/atmplay/pkg/speaker"
)

const (
	bitDepth    = 16
	numChannels = 2
	chunkFrames = 4096
)

// WAV pulls up to maxFrames stereo frames from streamer and encodes them as
// 16-bit PCM. It stops early when the streamer is drained and returns the
// number of frames written.
func WAV(w io.WriteSeeker, streamer speaker.Streamer, sampleRate int, maxFrames int) (int, error) {
	enc := wav.NewEncoder(w, sampleRate, bitDepth, numChannels, 1)

	samples := make([][2]float32, chunkFrames)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, chunkFrames*numChannels),
		SourceBitDepth: bitDepth,
	}

	frames := 0
	for frames < maxFrames {
		want := maxFrames - frames
		if want > chunkFrames {
			want = chunkFrames
		}

		n, ok := streamer.Stream(samples[:want])
		if n > 0 {
			intBuf.Data = intBuf.Data[:n*numChannels]
			for i := 0; i < n; i++ {
				intBuf.Data[i*2] = quantize(samples[i][0])
				intBuf.Data[i*2+1] = quantize(samples[i][1])
			}
			if err := enc.Write(intBuf); err != nil {
				return frames, fmt.Errorf("encode wav: %w", err)
			}
			frames += n
		}
		if !ok {
			break
		}
	}

	if err := streamer.Err(); err != nil {
		enc.Close()
		return frames, err
	}
	if err := enc.Close(); err != nil {
		return frames, fmt.Errorf("finish wav: %w", err)
	}
	return frames, nil
}

func quantize(val float32) int {
	if val < -1 {
		val = -1
	}
	if val > 1 {
		val = 1
	}
	return int(val * 32767)
}
