// Package storage wraps the object store used for post media and chat
// attachments.
package storage

import (
	"context"
	"io"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// UploadResult describes a stored file. ResourceType is the store's
// classification of the content ("image" or "video").
type UploadResult struct {
	URL          string
	PublicID     string
	ResourceType string
}

// Uploader is the object-store surface the handlers and the cleanup
// sweeper depend on.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder string) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}

// Cloudinary implements Uploader against the Cloudinary API.
type Cloudinary struct {
	cld        *cloudinary.Cloudinary
	baseFolder string
}

// NewCloudinary builds a client from a CLOUDINARY_URL-style DSN. All
// uploads land under baseFolder.
func NewCloudinary(url, baseFolder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld, baseFolder: baseFolder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, folder string) (*UploadResult, error) {
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       path.Join(c.baseFolder, folder),
		PublicID:     uuid.NewString(),
		ResourceType: "auto",
	})
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		ResourceType: res.ResourceType,
	}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}
