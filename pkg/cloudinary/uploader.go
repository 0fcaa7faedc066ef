package cloudinary

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/SundayYogurt/inkpress-account-svc/pkg/imageutil"
)

const avatarFolder = "inkpress/avatars"

type AvatarStore struct {
	cld *cld.Cloudinary
}

func NewAvatarStore(cloud *cld.Cloudinary) *AvatarStore {
	return &AvatarStore{cld: cloud}
}

func boolPtr(b bool) *bool {
	return &b
}

// StoreImage renders data to an exact width×height JPEG and uploads it
// under id, returning the public URL.
func (s *AvatarStore) StoreImage(ctx context.Context, id string, data []byte, width, height int) (string, error) {
	rendered, err := imageutil.RenderJPEG(data, width, height)
	if err != nil {
		return "", err
	}

	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(rendered), uploader.UploadParams{
		Folder:       avatarFolder,
		PublicID:     id,
		ResourceType: "image",
		Overwrite:    boolPtr(true),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	return res.SecureURL, nil
}

// Remove destroys the stored image. A missing id counts as removed, so
// retries stay idempotent.
func (s *AvatarStore) Remove(ctx context.Context, id string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     avatarFolder + "/" + id,
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy failed: %w", err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return errors.New("cloudinary destroy failed: " + res.Result)
	}
	return nil
}
