// Package blob uploads media to an external object store and deletes it by
// the id derived from its serving URL.
package blob

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

// ResourceType hints the provider about how to store and delete an object.
type ResourceType string

const (
	ResourceImage ResourceType = "image"
	ResourceVideo ResourceType = "video"
)

// UploadInput describes one object to upload.
type UploadInput struct {
	Body         io.Reader
	Size         int64
	ContentType  string
	Folder       string
	ResourceType ResourceType
	// MaxDuration asks the provider to truncate audio/video. Zero means no limit.
	MaxDuration time.Duration
}

// Store is the blob store contract the profile service depends on.
type Store interface {
	// Upload stores the object and returns its public URL.
	Upload(ctx context.Context, in UploadInput) (string, error)
	// Delete removes the object with the given public id.
	Delete(ctx context.Context, publicID string, rt ResourceType) error
	// PublicID derives the object id from a URL this store served.
	PublicID(rawURL string) (string, bool)
}

var versionSegment = regexp.MustCompile(`^v\d+/`)

// publicIDAfter returns the object id encoded in rawURL after marker: the
// serving prefix is dropped, then an optional "v<digits>/" version segment,
// then the file extension.
func publicIDAfter(rawURL, marker string) (string, bool) {
	if rawURL == "" || marker == "" {
		return "", false
	}
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return "", false
	}
	rest := rawURL[i+len(marker):]
	if q := strings.IndexAny(rest, "?#"); q >= 0 {
		rest = rest[:q]
	}
	rest = strings.TrimPrefix(rest, "/")
	rest = versionSegment.ReplaceAllString(rest, "")
	rest = strings.TrimSuffix(rest, path.Ext(rest))
	if rest == "" {
		return "", false
	}
	return rest, true
}
