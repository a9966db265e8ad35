package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"exam-room/internal/domain"
	"exam-room/internal/dto"
	"exam-room/internal/logger"
	"exam-room/internal/util"
	"exam-room/internal/validation"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	// AssetFolder holds uploaded images.
	AssetFolder = "EXAMROOM_ASSET"

	maxFileNameLength = 100
)

// allowedImageTypes mirrors the file name extension allow-list. Anything else
// sniffed as an image, SVG in particular, is refused.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadService stores images referenced by questions and serves stored blobs.
type UploadService interface {
	// UploadImage stores a data-URL encoded image and returns its public URL.
	UploadImage(ctx context.Context, req *dto.UploadImageRequest) (string, error)
	// OpenBlob returns a stored blob by id.
	OpenBlob(ctx context.Context, id string) (*domain.Blob, error)
}

type uploadServiceImpl struct {
	blobs     domain.BlobStore
	validator *validation.Validator
}

func NewUploadService(blobs domain.BlobStore, validator *validation.Validator) UploadService {
	return &uploadServiceImpl{blobs: blobs, validator: validator}
}

// readImage validates an UPLOAD_IMAGE payload and returns the decoded bytes
// with their sniffed content type.
func readImage(v *validation.Validator, req *dto.UploadImageRequest) ([]byte, string, error) {
	req.FileName = util.Sanitize(req.FileName, maxFileNameLength)
	if err := v.Struct(req); err != nil {
		return nil, "", err
	}

	data, err := decodeDataURL(req.Base64Data)
	if err != nil {
		return nil, "", domain.ValidationErrors{domain.NewInvalidFormatError("base64Data", nil)}
	}
	mime := mimetype.Detect(data)
	if !allowedImageTypes[mime.String()] {
		return nil, "", domain.ValidationErrors{domain.NewInvalidFormatError("base64Data", mime.String())}
	}
	return data, mime.String(), nil
}

func (s *uploadServiceImpl) UploadImage(ctx context.Context, req *dto.UploadImageRequest) (string, error) {
	data, contentType, err := readImage(s.validator, req)
	if err != nil {
		return "", err
	}

	id, err := s.blobs.Put(ctx, AssetFolder, req.FileName, contentType, data)
	if err != nil {
		return "", domain.NewStorageError("upload image", err)
	}
	url := s.blobs.URL(id)
	logger.Get().Info("Image uploaded",
		zap.String("fileName", req.FileName),
		zap.String("contentType", contentType),
		zap.Int("bytes", len(data)),
		zap.String("blobId", id))
	return url, nil
}

// decodeDataURL decodes "data:<type>;base64,<payload>". A bare base64
// payload without the data: header is accepted as well.
func decodeDataURL(s string) ([]byte, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, errors.New("data URL without payload")
		}
		payload = s[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, errors.New("empty payload")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	return data, nil
}

func (s *uploadServiceImpl) OpenBlob(ctx context.Context, id string) (*domain.Blob, error) {
	if !validation.IsRecordID(id) {
		return nil, domain.NewNotFoundError("Blob not found")
	}
	b, err := s.blobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			return nil, domain.NewNotFoundError("Blob not found").WithContext("blobId", id)
		}
		return nil, domain.NewStorageError("read blob", err)
	}
	return b, nil
}
