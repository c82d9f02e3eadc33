package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps objects in process. It serves BLOB_PROVIDER=memory and tests.
type Memory struct {
	mu      sync.Mutex
	base    string
	objects map[string]Object

	// FailDeletes makes every Delete return an error.
	FailDeletes bool
	// Deleted records every successful delete in order.
	Deleted []string
}

// Object is one stored upload.
type Object struct {
	Data         []byte
	ContentType  string
	ResourceType ResourceType
	MaxSeconds   int
}

func NewMemory(base string) *Memory {
	if base == "" {
		base = "https://blobs.local"
	}
	return &Memory{base: strings.TrimSuffix(base, "/"), objects: make(map[string]Object)}
}

func (m *Memory) Upload(_ context.Context, in UploadInput) (string, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	id := strings.Trim(in.Folder, "/") + "/" + uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = Object{
		Data:         data,
		ContentType:  in.ContentType,
		ResourceType: in.ResourceType,
		MaxSeconds:   int(in.MaxDuration.Seconds()),
	}
	return fmt.Sprintf("%s/%s/upload/v1/%s%s", m.base, in.ResourceType, id, extFor(in.ContentType)), nil
}

func (m *Memory) Delete(_ context.Context, publicID string, _ ResourceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeletes {
		return errors.New("blob store unavailable")
	}
	delete(m.objects, publicID)
	m.Deleted = append(m.Deleted, publicID)
	return nil
}

func (m *Memory) PublicID(rawURL string) (string, bool) {
	if !strings.HasPrefix(rawURL, m.base+"/") {
		return "", false
	}
	return publicIDAfter(rawURL, cloudinaryMarker)
}

// Get returns the stored object with the given public id.
func (m *Memory) Get(publicID string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[publicID]
	return o, ok
}

// SetFailDeletes toggles delete failures.
func (m *Memory) SetFailDeletes(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailDeletes = fail
}

// DeletedIDs returns a copy of the delete history.
func (m *Memory) DeletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Deleted...)
}

func extFor(contentType string) string {
	_, sub, ok := strings.Cut(contentType, "/")
	if !ok || sub == "" {
		return ""
	}
	sub, _, _ = strings.Cut(sub, ";")
	return "." + strings.TrimSpace(sub)
}
