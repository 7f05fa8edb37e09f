package audio

import (
	"errors"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoClips means none of the requested clips could be read.
var ErrNoClips = errors.New("audio: no clips to assemble")

// Report describes one assembly.
type Report struct {
	Clips      int
	Skipped    []string
	SampleRate int
	Duration   time.Duration
}

// Assembler concatenates clips in the given order with Gap silence between
// consecutive clips. Missing or undecodable clips are skipped, so no gap is
// emitted for them.
type Assembler struct {
	Gap time.Duration
	Log *logrus.Logger
}

func NewAssembler(gap time.Duration, log *logrus.Logger) *Assembler {
	return &Assembler{Gap: gap, Log: log}
}

// Assemble writes a mono 16-bit WAV at the first readable clip's sample rate.
func (a *Assembler) Assemble(clips []string, outPath string) (*Report, error) {
	rep := &Report{}
	var out []int

	for _, path := range clips {
		data, rate, err := ReadMono16(path)
		if err != nil {
			rep.Skipped = append(rep.Skipped, path)
			if a.Log != nil && !errors.Is(err, os.ErrNotExist) {
				a.Log.WithError(err).WithField("clip", path).Warn("skipping unreadable clip")
			}
			continue
		}
		if rep.SampleRate == 0 {
			rep.SampleRate = rate
		}
		data = ResampleLinear(data, rate, rep.SampleRate)

		if rep.Clips > 0 {
			out = append(out, make([]int, a.gapSamples(rep.SampleRate))...)
		}
		for _, v := range data {
			out = append(out, clamp16(v))
		}
		rep.Clips++
	}

	if rep.Clips == 0 {
		return rep, ErrNoClips
	}
	if err := WriteMono16(outPath, out, rep.SampleRate); err != nil {
		return rep, err
	}
	rep.Duration = time.Duration(len(out)) * time.Second / time.Duration(rep.SampleRate)
	return rep, nil
}

func (a *Assembler) gapSamples(rate int) int {
	return int(int64(rate) * int64(a.Gap) / int64(time.Second))
}
