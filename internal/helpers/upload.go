package helpers

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const CMSFolder = "cms"

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cld *cloudinary.Cloudinary, folder string) *CloudinaryUploader {
	return &CloudinaryUploader{cld: cld, folder: folder}
}

// Upload stores the image and returns its secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: u.folder,
		Tags:   []string{"airportcar", "cms"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image %s: %w", filename, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image %s: %s", filename, res.Error.Message)
	}
	return res.SecureURL, nil
}
