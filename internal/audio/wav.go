package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("audio: not a valid wav file")

// Info describes a decoded WAV header.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Probe reads the header of a WAV file.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, ErrNotWAV
	}
	return Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}, nil
}

// ReadMono16 decodes a WAV file into mono 16-bit samples at its own rate.
func ReadMono16(path string) ([]int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, ErrNotWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: decode %s: %w", filepath.Base(path), err)
	}
	data := To16Bit(buf.Data, int(d.BitDepth))
	data = DownmixToMono(data, int(d.NumChans))
	return data, int(d.SampleRate), nil
}

// WriteMono16 encodes samples as a mono 16-bit PCM WAV file. The file is
// written beside path and renamed into place.
func WriteMono16(path string, data []int, sampleRate int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".assemble-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("audio: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("audio: finish: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
