package atm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrShortSong      = errors.New("song header is truncated")
	ErrNoTracks       = errors.New("song has no tracks")
	ErrTrackOffset    = errors.New("track offset outside song data")
	ErrStartTrack     = errors.New("start track outside track list")
	ErrUnexpectedEnd  = errors.New("instruction runs past end of song data")
	ErrVLETooLong     = errors.New("variable length integer longer than 3 bytes")
	ErrStackOverflow  = errors.New("call stack overflow")
	ErrStackUnderflow = errors.New("call stack underflow")
	ErrRunaway        = errors.New("too many instructions without a delay")
	ErrBadChannel     = errors.New("channel index out of range")
	ErrNotMuted       = errors.New("channel output is not muted")
	ErrNoSong         = errors.New("no song loaded")
)

// LoadSong reads a whole song blob
func LoadSong(r io.Reader) (*Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseSong(data)
}

// ParseSong validates the header of a song blob. The returned Song keeps a
// reference to data.
//
//	byte trackCount
//	word trackOffset[trackCount]  little endian, relative to the track base
//	byte startTrack[4]
//	track data
func ParseSong(data []byte) (*Song, error) {
	if len(data) < 1 {
		return nil, ErrShortSong
	}
	trackCount := int(data[0])
	if trackCount == 0 {
		return nil, ErrNoTracks
	}

	trackBase := 1 + trackCount*2 + NumChannels
	if len(data) < trackBase {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortSong, trackBase, len(data))
	}

	song := Song{
		Data:       data,
		TrackCount: trackCount,
		trackBase:  trackBase,
	}

	for track := 0; track < trackCount; track++ {
		offset, _ := song.TrackOffset(uint8(track))
		if offset >= len(data) {
			return nil, fmt.Errorf("%w: track %d starts at %d, song is %d bytes", ErrTrackOffset, track, offset, len(data))
		}
	}

	startOffset := 1 + trackCount*2
	for n := range song.StartTrack {
		start := data[startOffset+n]
		if int(start) >= trackCount {
			return nil, fmt.Errorf("%w: channel %d starts on track %d of %d", ErrStartTrack, n, start, trackCount)
		}
		song.StartTrack[n] = start
	}

	return &song, nil
}

// TrackBase is the offset of the first byte after the header
func (song *Song) TrackBase() int {
	return song.trackBase
}

// TrackOffset returns the absolute offset of a track's first instruction
func (song *Song) TrackOffset(track uint8) (int, error) {
	if int(track) >= song.TrackCount {
		return 0, fmt.Errorf("%w: track %d of %d", ErrTrackOffset, track, song.TrackCount)
	}
	word := binary.LittleEndian.Uint16(song.Data[1+int(track)*2:])
	return song.trackBase + int(word), nil
}
