// Package storage publishes finished artifacts at a URL clients can fetch.
package storage

import (
	"context"
	"io"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// Publisher makes a local file reachable and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (url string, err error)
}

func contentTypeFor(name string) string {
	switch {
	case hasExt(name, ".wav"):
		return "audio/wav"
	case hasExt(name, ".mp4"):
		return "video/mp4"
	case hasExt(name, ".mp3"):
		return "audio/mpeg"
	}
	return "application/octet-stream"
}
