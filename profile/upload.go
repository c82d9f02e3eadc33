package profile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/raushankrgupta/dreamsoul/apperr"
	"github.com/raushankrgupta/dreamsoul/blob"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Upload size ceilings.
const (
	MaxImageBytes = 2 << 20
	MaxMediaBytes = 10 << 20
)

// Duration ceilings requested from the blob store.
const (
	MaxVoiceDuration      = 15 * time.Second
	MaxHobbyVideoDuration = 10 * time.Second
)

// Blob store folders. Every upload lands in a per-user subfolder, see
// userFolder.
const (
	FolderPhotos          = "DreamSoul/photos"
	FolderVoices          = "DreamSoul/voices"
	FolderHobbies         = "DreamSoul/hobbies"
	FolderProfilePictures = "DreamSoul/profile-pictures"
)

var mediaFolders = []string{FolderPhotos, FolderVoices, FolderHobbies, FolderProfilePictures}

// userFolder is where uploads of one user go, e.g. DreamSoul/photos/<userID>.
func userFolder(folder string, userID primitive.ObjectID) string {
	return folder + "/" + userID.Hex()
}

// ownedBy reports whether publicID lives in one of userID's folders.
func ownedBy(publicID string, userID primitive.ObjectID) bool {
	if publicID != path.Clean(publicID) {
		return false
	}
	for _, folder := range mediaFolders {
		if strings.HasPrefix(publicID, userFolder(folder, userID)+"/") {
			return true
		}
	}
	return false
}

// File is one uploaded file. ContentType may be empty, in which case it is
// sniffed from the first bytes.
type File struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// UploadResult is returned by every upload; Type is set for hobby media only.
type UploadResult struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// mediaClass returns the top-level type of f ("image", "audio", "video").
// When the type has to be sniffed, f.Body is replaced by a buffered reader
// that still yields the whole body.
func mediaClass(f *File) (string, error) {
	ct := f.ContentType
	if ct == "" || ct == "application/octet-stream" {
		br := bufio.NewReader(f.Body)
		head, err := br.Peek(512)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return "", fmt.Errorf("read upload: %w", err)
		}
		ct = http.DetectContentType(head)
		f.Body = br
		f.ContentType = ct
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// rejected by the caller's allow-list
		return "", nil
	}
	class, _, _ := strings.Cut(mediaType, "/")
	return class, nil
}

func (s *Service) upload(ctx context.Context, f *File, folder string, rt blob.ResourceType, maxDuration time.Duration) (string, error) {
	url, err := s.blobs.Upload(ctx, blob.UploadInput{
		Body:         f.Body,
		Size:         f.Size,
		ContentType:  f.ContentType,
		Folder:       folder,
		ResourceType: rt,
		MaxDuration:  maxDuration,
	})
	if err != nil {
		return "", apperr.Internal("upload media", err)
	}
	s.logger.Info("media uploaded", zap.String("folder", folder), zap.Int64("bytes", f.Size), zap.String("content_type", f.ContentType))
	return url, nil
}

func requireFile(f *File) error {
	if f == nil || f.Body == nil {
		return apperr.Validation("No file uploaded")
	}
	return nil
}

// UploadPhoto stores an image of at most 2MB in the user's photo folder.
func (s *Service) UploadPhoto(ctx context.Context, email string, f *File) (*UploadResult, error) {
	if err := requireFile(f); err != nil {
		return nil, err
	}
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if f.Size > MaxImageBytes {
		return nil, apperr.Validation("Photo must be less than 2MB")
	}
	class, err := mediaClass(f)
	if err != nil {
		return nil, apperr.Internal("inspect upload", err)
	}
	if class != "image" {
		return nil, apperr.Validation("Only image files are allowed for photo upload")
	}
	url, err := s.upload(ctx, f, userFolder(FolderPhotos, m.User.ID), blob.ResourceImage, 0)
	if err != nil {
		return nil, err
	}
	return &UploadResult{URL: url}, nil
}

// UploadVoice stores an audio or video clip, truncated to 15 seconds by the
// blob store.
func (s *Service) UploadVoice(ctx context.Context, email string, f *File) (*UploadResult, error) {
	if err := requireFile(f); err != nil {
		return nil, err
	}
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if f.Size > MaxMediaBytes {
		return nil, apperr.Validation("Voice must be less than 10MB")
	}
	class, err := mediaClass(f)
	if err != nil {
		return nil, apperr.Internal("inspect upload", err)
	}
	if class != "audio" && class != "video" {
		return nil, apperr.Validation("Only audio or video files are allowed for voice upload")
	}
	url, err := s.upload(ctx, f, userFolder(FolderVoices, m.User.ID), blob.ResourceVideo, MaxVoiceDuration)
	if err != nil {
		return nil, err
	}
	return &UploadResult{URL: url}, nil
}

// UploadHobbyMedia stores an image (at most 2MB) or a video truncated to 10
// seconds, and reports which one it was.
func (s *Service) UploadHobbyMedia(ctx context.Context, email string, f *File) (*UploadResult, error) {
	if err := requireFile(f); err != nil {
		return nil, err
	}
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if f.Size > MaxMediaBytes {
		return nil, apperr.Validation("Media must be less than 10MB")
	}
	class, err := mediaClass(f)
	if err != nil {
		return nil, apperr.Internal("inspect upload", err)
	}

	folder := userFolder(FolderHobbies, m.User.ID)
	switch class {
	case "image":
		if f.Size > MaxImageBytes {
			return nil, apperr.Validation("Photo must be less than 2MB")
		}
		url, err := s.upload(ctx, f, folder, blob.ResourceImage, 0)
		if err != nil {
			return nil, err
		}
		return &UploadResult{URL: url, Type: string(blob.ResourceImage)}, nil
	case "video":
		url, err := s.upload(ctx, f, folder, blob.ResourceVideo, MaxHobbyVideoDuration)
		if err != nil {
			return nil, err
		}
		return &UploadResult{URL: url, Type: string(blob.ResourceVideo)}, nil
	default:
		return nil, apperr.Validation("Only image or video allowed for hobby media")
	}
}

// UploadProfilePicture stores a new avatar, saves it on the user and removes
// the previous one from the blob store.
func (s *Service) UploadProfilePicture(ctx context.Context, email string, f *File) (*UploadResult, error) {
	if err := requireFile(f); err != nil {
		return nil, err
	}
	m, err := s.resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if f.Size > MaxImageBytes {
		return nil, apperr.Validation("Photo must be less than 2MB")
	}
	class, err := mediaClass(f)
	if err != nil {
		return nil, apperr.Internal("inspect upload", err)
	}
	if class != "image" {
		return nil, apperr.Validation("Only image files are allowed for profile picture")
	}

	url, err := s.upload(ctx, f, userFolder(FolderProfilePictures, m.User.ID), blob.ResourceImage, 0)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetProfilePicture(ctx, m.Bucket, m.User.ID, url); err != nil {
		return nil, storeErr("set profile picture", err, "")
	}
	if old := m.User.ProfilePicture; old != "" && old != url {
		s.deleteBlob(ctx, m.User.ID, old, blob.ResourceImage)
	}
	return &UploadResult{URL: url}, nil
}
