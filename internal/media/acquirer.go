// Package media resolves a source reference into a normalized waveform:
// mono, 16 kHz, 16-bit PCM WAV.
package media

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/yoockh/podcaster/internal/audio"
	"github.com/yoockh/podcaster/internal/logger"
	"github.com/yoockh/podcaster/internal/utils"
)

const (
	TargetSampleRate = 16000
	TargetChannels   = 1
	TargetBitDepth   = 16
)

// Waveform is a normalized source ready for transcription.
type Waveform struct {
	Path string
	// Owned is true when the file was produced for this request and should
	// be removed after use. Cached downloads and caller-supplied WAVs are not
	// owned.
	Owned bool
}

// Remove deletes the waveform if it is owned.
func (w *Waveform) Remove() error {
	if w == nil || !w.Owned {
		return nil
	}
	if err := os.Remove(w.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type Acquirer struct {
	dir    string
	runner CommandRunner
	log    *logrus.Logger
}

func NewAcquirer(downloadDir string, runner CommandRunner, log *logrus.Logger) *Acquirer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Acquirer{dir: downloadDir, runner: runner, log: log}
}

// IsRemote reports whether ref is an http(s) locator.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Acquire downloads or converts ref. Remote downloads are cached under the
// download dir by a hash of the URL, so a repeated URL skips the download.
func (a *Acquirer) Acquire(ctx context.Context, ref string) (*Waveform, error) {
	const op = "Acquirer.Acquire"

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "source is required", nil)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to prepare download dir", err)
	}

	if IsRemote(ref) {
		return a.download(ctx, ref)
	}
	st, err := os.Stat(ref)
	if err != nil || st.IsDir() {
		return nil, utils.E(utils.CodeSourceError, op, "source is neither a URL nor an existing file", err)
	}
	return a.local(ctx, ref)
}

func (a *Acquirer) download(ctx context.Context, url string) (*Waveform, error) {
	const op = "Acquirer.download"

	key := HashString(url)
	out := filepath.Join(a.dir, key+".wav")
	if isNormalized(out) {
		a.log.WithField("source", url).Debug("reusing cached download")
		return &Waveform{Path: out}, nil
	}

	raw := filepath.Join(a.dir, key+".m4a")
	defer os.Remove(raw)
	if err := a.runner.Run(ctx, "yt-dlp", "-f", "bestaudio[ext=m4a]", "-o", raw, url); err != nil {
		if ctx.Err() != nil {
			return nil, utils.Upstream(op, "download interrupted", ctx.Err())
		}
		return nil, utils.E(utils.CodeSourceError, op, "failed to download source", err)
	}
	if err := a.normalize(ctx, raw, out); err != nil {
		return nil, err
	}
	return &Waveform{Path: out}, nil
}

func (a *Acquirer) local(ctx context.Context, path string) (*Waveform, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") && isNormalized(path) {
		return &Waveform{Path: path}, nil
	}
	out := filepath.Join(a.dir, uuid.NewString()+".wav")
	if err := a.normalize(ctx, path, out); err != nil {
		return nil, err
	}
	return &Waveform{Path: out, Owned: true}, nil
}

func (a *Acquirer) normalize(ctx context.Context, in, out string) error {
	const op = "Acquirer.normalize"

	err := a.runner.Run(ctx, "ffmpeg", "-y", "-i", in,
		"-vn", "-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(TargetSampleRate), "-ac", fmt.Sprint(TargetChannels),
		out)
	if err != nil {
		_ = os.Remove(out)
		if ctx.Err() != nil {
			return utils.Upstream(op, "conversion interrupted", ctx.Err())
		}
		return utils.E(utils.CodeSourceError, op, "failed to convert source audio", err)
	}
	if !isNormalized(out) {
		_ = os.Remove(out)
		return utils.E(utils.CodeSourceError, op, "converted audio is not a mono 16 kHz wav", nil)
	}
	return nil
}

func isNormalized(path string) bool {
	info, err := audio.Probe(path)
	if err != nil {
		return false
	}
	return info.SampleRate == TargetSampleRate && info.Channels == TargetChannels && info.BitDepth == TargetBitDepth
}

// SaveUpload stores an uploaded file under the download dir as
// <uuid>_<name> and returns its path. At most limit bytes are accepted.
func (a *Acquirer) SaveUpload(name string, r io.Reader, limit int64) (string, error) {
	const op = "Acquirer.SaveUpload"

	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to prepare download dir", err)
	}
	path := filepath.Join(a.dir, uuid.NewString()+"_"+base)
	f, err := os.Create(path)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to create upload file", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", utils.E(utils.CodeInternal, op, "failed to store upload", err)
	}
	if n > limit {
		_ = os.Remove(path)
		return "", utils.E(utils.CodeTooLarge, op, fmt.Sprintf("upload exceeds %d bytes", limit), nil)
	}
	if n == 0 {
		_ = os.Remove(path)
		return "", utils.E(utils.CodeInvalidArgument, op, "upload is empty", nil)
	}
	return path, nil
}

// HashString is the hex BLAKE2b-128 of s, used for cache file names.
func HashString(s string) string {
	return Fingerprint([]byte(s))
}

// Fingerprint is the hex BLAKE2b-128 of b.
func Fingerprint(b []byte) string {
	h, _ := blake2b.New(16, nil)
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
