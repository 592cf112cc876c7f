package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// Register decoders for the accepted upload formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"recipeexchange/internal/models"
	"recipeexchange/internal/observability"
	"recipeexchange/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadMaxSizeMB = 5
	PreviewMaxSize         = 1280
	PreviewWebPQuality     = 75
	// Decoding a preview allocates width*height*4 bytes.
	maxPreviewPixels = 40_000_000
)

var allowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type UploadImageInput struct {
	UserID   string
	Filename string
	Content  []byte
}

// UploadResult holds the public URLs of a stored image and its preview.
type UploadResult struct {
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl"`
}

// UploadService validates images and writes them with a WebP preview.
type UploadService struct {
	store              storage.ImageStore
	maxUploadSizeBytes int64
}

func NewUploadService(store storage.ImageStore, maxUploadSizeMB int) *UploadService {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultUploadMaxSizeMB
	}
	return &UploadService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

func (s *UploadService) Upload(ctx context.Context, in UploadImageInput) (*UploadResult, error) {
	result, err := s.upload(ctx, in)
	outcome := "success"
	if err != nil {
		outcome = "rejected"
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeInternal {
			outcome = "error"
		}
	}
	observability.UploadsTotal.WithLabelValues(outcome).Inc()
	return result, err
}

func (s *UploadService) upload(ctx context.Context, in UploadImageInput) (*UploadResult, error) {
	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)))
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	contentType, ok := allowedImageExtensions[ext]
	if !ok {
		return nil, models.NewValidationError("Only .jpg, .jpeg, .png, .gif and .webp images are allowed.")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("File is not a valid image.")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPreviewPixels {
		return nil, models.NewValidationError("Image dimensions are not supported.")
	}

	preview, err := buildPreview(in.Content)
	if err != nil {
		return nil, models.NewValidationError("File is not a valid image.")
	}

	name := uuid.NewString()
	url, err := s.store.Put(ctx, name+ext, contentType, in.Content)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	previewURL, err := s.store.Put(ctx, name+".preview.webp", "image/webp", preview)
	if err != nil {
		_ = s.store.Delete(ctx, name+ext)
		return nil, models.NewInternalError(err)
	}

	return &UploadResult{URL: url, PreviewURL: previewURL}, nil
}

func buildPreview(content []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return encodeWebP(resizeToFit(decoded, PreviewMaxSize, PreviewMaxSize), PreviewWebPQuality)
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
