package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalPublisher serves files out of the media dir, which the HTTP server
// exposes under baseURL. Files outside the dir are copied in first.
type LocalPublisher struct {
	dir     string
	baseURL string
}

var _ Publisher = (*LocalPublisher)(nil)

func NewLocalPublisher(mediaDir, baseURL string) *LocalPublisher {
	return &LocalPublisher{dir: mediaDir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *LocalPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := p.relative(localPath)
	if err != nil {
		rel = filepath.Base(localPath)
		if err := copyFile(localPath, filepath.Join(p.dir, rel)); err != nil {
			return "", fmt.Errorf("local publish: %w", err)
		}
	}
	if _, err := os.Stat(filepath.Join(p.dir, rel)); err != nil {
		return "", fmt.Errorf("local publish: %w", err)
	}
	return p.URLFor(rel), nil
}

// URLFor maps a media-dir relative path to its URL.
func (p *LocalPublisher) URLFor(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return p.baseURL + "/" + path.Join(parts...)
}

func (p *LocalPublisher) relative(localPath string) (string, error) {
	absDir, err := filepath.Abs(p.dir)
	if err != nil {
		return "", err
	}
	absFile, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absDir, absFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", localPath, p.dir)
	}
	return rel, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
