package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeClip(t *testing.T, path string, rate, channels int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func constant(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAssemble_SkipsMissingClipWithoutExtraGap(t *testing.T) {
	dir := t.TempDir()
	clip1 := filepath.Join(dir, "A_1.wav")
	clip2 := filepath.Join(dir, "B_2.wav")
	clip3 := filepath.Join(dir, "A_3.wav")
	writeClip(t, clip1, 1000, 1, constant(100, 1000))
	writeClip(t, clip3, 1000, 1, constant(50, -2000))

	out := filepath.Join(dir, "final.wav")
	rep, err := NewAssembler(300*time.Millisecond, nil).Assemble([]string{clip1, clip2, clip3}, out)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Clips)
	assert.Equal(t, []string{clip2}, rep.Skipped)
	assert.Equal(t, 1000, rep.SampleRate)

	data, rate, err := ReadMono16(out)
	require.NoError(t, err)
	assert.Equal(t, 1000, rate)
	// 100 samples of clip 1, one 300ms gap, 50 samples of clip 3
	require.Len(t, data, 100+300+50)
	assert.Equal(t, constant(100, 1000), data[:100])
	assert.Equal(t, constant(300, 0), data[100:400])
	assert.Equal(t, constant(50, -2000), data[400:])
	assert.Equal(t, 450*time.Millisecond, rep.Duration)
}

func TestAssemble_NoLeadingOrTrailingSilence(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "A_1.wav")
	writeClip(t, clip, 8000, 1, constant(80, 7))

	out := filepath.Join(dir, "final.wav")
	_, err := NewAssembler(300*time.Millisecond, nil).Assemble([]string{filepath.Join(dir, "missing.wav"), clip}, out)
	require.NoError(t, err)

	data, _, err := ReadMono16(out)
	require.NoError(t, err)
	assert.Equal(t, constant(80, 7), data)
}

func TestAssemble_NormalizesToFirstClip(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "A_1.wav")
	stereo := filepath.Join(dir, "B_2.wav")
	writeClip(t, first, 1000, 1, constant(10, 1))
	// stereo at double rate: 40 frames -> 20 mono samples at 1000 Hz
	writeClip(t, stereo, 2000, 2, constant(80, 100))

	out := filepath.Join(dir, "final.wav")
	rep, err := NewAssembler(0, nil).Assemble([]string{first, stereo}, out)
	require.NoError(t, err)
	assert.Equal(t, 1000, rep.SampleRate)

	info, err := Probe(out)
	require.NoError(t, err)
	assert.Equal(t, Info{SampleRate: 1000, Channels: 1, BitDepth: 16}, info)

	data, _, err := ReadMono16(out)
	require.NoError(t, err)
	require.Len(t, data, 30)
	assert.Equal(t, constant(20, 100), data[10:])
}

func TestAssemble_CorruptClipIsSkipped(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "A_1.wav")
	require.NoError(t, os.WriteFile(bad, []byte(`{"error":"quota"}`), 0o644))
	good := filepath.Join(dir, "B_2.wav")
	writeClip(t, good, 1000, 1, constant(5, 3))

	rep, err := NewAssembler(time.Second, nil).Assemble([]string{bad, good}, filepath.Join(dir, "final.wav"))
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Clips)
	assert.Equal(t, []string{bad}, rep.Skipped)
}

func TestAssemble_NothingReadable(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "final.wav")
	_, err := NewAssembler(time.Second, nil).Assemble([]string{filepath.Join(dir, "nope.wav")}, out)
	assert.ErrorIs(t, err, ErrNoClips)
	assert.NoFileExists(t, out)
}

func TestConvertHelpers(t *testing.T) {
	assert.Equal(t, []int{15, -5}, DownmixToMono([]int{10, 20, -10, 0}, 2))
	assert.Equal(t, []int{0, -32768}, To16Bit([]int{128, 0}, 8))
	assert.Equal(t, []int{1}, To16Bit([]int{256}, 24))
	assert.Equal(t, []int{0, 10, 20}, ResampleLinear([]int{0, 10, 20}, 2, 2))
	assert.Equal(t, []int{0, 5, 10, 15, 20, 20}, ResampleLinear([]int{0, 10, 20}, 1, 2))
	assert.Equal(t, []int{0, 20}, ResampleLinear([]int{0, 10, 20, 30}, 2, 1))
}
