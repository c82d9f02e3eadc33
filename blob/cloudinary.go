package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// cloudinaryMarker precedes the optional version and the public id in every
// delivery URL, for example
// https://res.cloudinary.com/demo/video/upload/v1712/DreamSoul/voices/abc.webm
const cloudinaryMarker = "/upload/"

const cloudinaryHost = "res.cloudinary.com"

type Cloudinary struct {
	cld       *cloudinary.Cloudinary
	cloudName string
}

// NewCloudinary builds a client from a cloudinary:// URL when given, else
// from the individual credentials.
func NewCloudinary(rawURL, cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if rawURL != "" {
		cld, err = cloudinary.NewFromURL(rawURL)
	} else {
		cld, err = cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld, cloudName: cld.Config.Cloud.CloudName}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, in UploadInput) (string, error) {
	params := uploader.UploadParams{
		Folder:       in.Folder,
		ResourceType: string(in.ResourceType),
	}
	if in.MaxDuration > 0 {
		params.Transformation = fmt.Sprintf("du_%d", int(in.MaxDuration.Seconds()))
	}

	res, err := c.cld.Upload.Upload(ctx, in.Body, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure url")
	}
	return res.SecureURL, nil
}

func (c *Cloudinary) Delete(ctx context.Context, publicID string, rt ResourceType) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: string(rt),
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	// "not found" means there is nothing left to reconcile
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: unexpected result %q", res.Result)
	}
	return nil
}

// PublicID only accepts delivery URLs of this account's cloud.
func (c *Cloudinary) PublicID(rawURL string) (string, bool) {
	return cloudinaryPublicID(c.cloudName, rawURL)
}

func cloudinaryPublicID(cloudName, rawURL string) (string, bool) {
	if cloudName == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(rawURL, "https://")
	if !ok {
		if rest, ok = strings.CutPrefix(rawURL, "http://"); !ok {
			return "", false
		}
	}
	if !strings.HasPrefix(rest, cloudinaryHost+"/"+cloudName+"/") {
		return "", false
	}
	return publicIDAfter(rest, cloudinaryMarker)
}
