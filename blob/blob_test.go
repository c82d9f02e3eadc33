package blob

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/raushankrgupta/dreamsoul/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublicIDAfter(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		marker string
		want   string
		ok     bool
	}{
		{
			name:   "versioned image",
			url:    "https://res.cloudinary.com/demo/image/upload/v1712345678/DreamSoul/photos/abc123.jpg",
			marker: cloudinaryMarker,
			want:   "DreamSoul/photos/abc123",
			ok:     true,
		},
		{
			name:   "no version",
			url:    "https://res.cloudinary.com/demo/video/upload/DreamSoul/voices/clip.webm",
			marker: cloudinaryMarker,
			want:   "DreamSoul/voices/clip",
			ok:     true,
		},
		{
			name:   "query string dropped",
			url:    "https://res.cloudinary.com/demo/image/upload/v1/DreamSoul/hobbies/x.png?_a=1",
			marker: cloudinaryMarker,
			want:   "DreamSoul/hobbies/x",
			ok:     true,
		},
		{
			name:   "s3 key without extension",
			url:    "https://bucket.s3.ap-south-1.amazonaws.com/DreamSoul/photos/3f1c",
			marker: "https://bucket.s3.ap-south-1.amazonaws.com/",
			want:   "DreamSoul/photos/3f1c",
			ok:     true,
		},
		{
			name:   "foreign url",
			url:    "https://example.com/pic.png",
			marker: cloudinaryMarker,
			ok:     false,
		},
		{
			name:   "empty",
			url:    "",
			marker: cloudinaryMarker,
			ok:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := publicIDAfter(tt.url, tt.marker)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("id = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemory_UploadDeleteRoundTrip(t *testing.T) {
	m := NewMemory("")
	ctx := context.Background()

	url, err := m.Upload(ctx, UploadInput{
		Body:         bytes.NewReader([]byte("voice")),
		ContentType:  "audio/webm",
		Folder:       "DreamSoul/voices",
		ResourceType: ResourceVideo,
		MaxDuration:  15 * time.Second,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasSuffix(url, ".webm") {
		t.Errorf("url %q missing extension", url)
	}

	id, ok := m.PublicID(url)
	if !ok {
		t.Fatalf("PublicID(%q) not ok", url)
	}
	if !strings.HasPrefix(id, "DreamSoul/voices/") {
		t.Errorf("id = %q", id)
	}
	obj, ok := m.Get(id)
	if !ok {
		t.Fatal("object not stored")
	}
	if obj.MaxSeconds != 15 || obj.ResourceType != ResourceVideo {
		t.Errorf("object = %+v", obj)
	}

	if err := m.Delete(ctx, id, ResourceVideo); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := m.Get(id); ok {
		t.Error("object still present")
	}

	m.SetFailDeletes(true)
	if err := m.Delete(ctx, id, ResourceVideo); err == nil {
		t.Error("expected failure")
	}
}

func TestExtFor(t *testing.T) {
	if got := extFor("image/png"); got != ".png" {
		t.Errorf("extFor(image/png) = %q", got)
	}
	if got := extFor("audio/webm;codecs=opus"); got != ".webm" {
		t.Errorf("extFor(audio/webm;codecs=opus) = %q", got)
	}
	if got := extFor("garbage"); got != "" {
		t.Errorf("extFor(garbage) = %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()

	st, err := FromConfig(ctx, &config.Config{BlobProvider: "memory"}, zap.NewNop())
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := st.(*Memory); !ok {
		t.Errorf("memory provider = %T", st)
	}

	st, err = FromConfig(ctx, &config.Config{
		BlobProvider:        "cloudinary",
		CloudinaryCloudName: "demo",
		CloudinaryAPIKey:    "key",
		CloudinaryAPISecret: "secret",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("cloudinary: %v", err)
	}
	if _, ok := st.(*Cloudinary); !ok {
		t.Errorf("cloudinary provider = %T", st)
	}

	if _, err := FromConfig(ctx, &config.Config{BlobProvider: "ftp"}, zap.NewNop()); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestCloudinaryPublicID(t *testing.T) {
	tests := []struct {
		name  string
		cloud string
		url   string
		want  string
		ok    bool
	}{
		{"own cloud", "demo", "https://res.cloudinary.com/demo/image/upload/v17/DreamSoul/photos/u1/a.jpg", "DreamSoul/photos/u1/a", true},
		{"plain http", "demo", "http://res.cloudinary.com/demo/video/upload/DreamSoul/voices/u1/c.webm", "DreamSoul/voices/u1/c", true},
		{"other cloud", "demo", "https://res.cloudinary.com/other/image/upload/DreamSoul/photos/u1/a.jpg", "", false},
		{"cloud name prefix", "demo", "https://res.cloudinary.com/demo2/image/upload/DreamSoul/photos/u1/a.jpg", "", false},
		{"foreign host", "demo", "https://evil.example/upload/DreamSoul/photos/u1/a.jpg", "", false},
		{"host in path", "demo", "https://evil.example/res.cloudinary.com/demo/image/upload/DreamSoul/photos/u1/a.jpg", "", false},
		{"no scheme", "demo", "res.cloudinary.com/demo/image/upload/DreamSoul/photos/u1/a.jpg", "", false},
		{"no cloud configured", "", "https://res.cloudinary.com/demo/image/upload/DreamSoul/photos/u1/a.jpg", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cloudinaryPublicID(tt.cloud, tt.url)
			if got != tt.want || ok != tt.ok {
				t.Errorf("cloudinaryPublicID = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCloudinary_PublicIDUsesConfiguredCloud(t *testing.T) {
	c, err := NewCloudinary("", "demo", "key", "secret")
	if err != nil {
		t.Fatalf("NewCloudinary: %v", err)
	}
	if _, ok := c.PublicID("https://res.cloudinary.com/demo/image/upload/DreamSoul/photos/u1/a.jpg"); !ok {
		t.Error("own delivery URL rejected")
	}
	if _, ok := c.PublicID("https://evil.example/upload/DreamSoul/photos/u1/a.jpg"); ok {
		t.Error("foreign URL accepted")
	}
}

func TestNewS3_LogsThroughZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s, err := NewS3(context.Background(), "us-east-1", "dreamsoul-media", "", zap.New(core))
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	entries := logs.FilterMessage("S3 client initialized").All()
	if len(entries) != 1 {
		t.Fatalf("init entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["bucket"]; got != "dreamsoul-media" {
		t.Errorf("bucket field = %v", got)
	}

	id, ok := s.PublicID("https://dreamsoul-media.s3.us-east-1.amazonaws.com/DreamSoul/photos/u1/abc")
	if !ok || id != "DreamSoul/photos/u1/abc" {
		t.Errorf("PublicID = (%q, %v)", id, ok)
	}
}
