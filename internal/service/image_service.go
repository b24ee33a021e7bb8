package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"animeverse/internal/config"
	"animeverse/internal/featureflags"
	"animeverse/internal/middleware"
	"animeverse/internal/models"
	"animeverse/internal/observability"
	"animeverse/internal/storage"

	"github.com/chai2010/webp"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	DefaultImageQuality         = 85
	imageQueueSize              = 64
)

// Bounds is the box an image is shrunk to fit.
type Bounds struct {
	Width  int
	Height int
}

// Default bounds for the two post image fields.
var (
	FeaturedBounds  = Bounds{Width: 1200, Height: 600}
	ThumbnailBounds = Bounds{Width: 400, Height: 300}
)

// Upload is an image file received with a post form.
type Upload struct {
	Filename string
	Content  []byte
}

type imageJob struct {
	key    string
	bounds Bounds
}

// ImageService stores uploaded post images and optimises them after the post is saved.
type ImageService struct {
	store              storage.Storage
	flags              *featureflags.Manager
	quality            int
	featured           Bounds
	thumbnail          Bounds
	maxUploadSizeBytes int64

	jobs          chan imageJob
	workerOnce    sync.Once
	workerRunning atomic.Bool
}

func NewImageService(store storage.Storage, cfg *config.Config, flags *featureflags.Manager) *ImageService {
	s := &ImageService{
		store:              store,
		flags:              flags,
		quality:            DefaultImageQuality,
		featured:           FeaturedBounds,
		thumbnail:          ThumbnailBounds,
		maxUploadSizeBytes: DefaultImageMaxUploadSizeMB * 1024 * 1024,
		jobs:               make(chan imageJob, imageQueueSize),
	}

	if cfg != nil {
		if cfg.ImageQuality > 0 {
			s.quality = cfg.ImageQuality
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			s.maxUploadSizeBytes = int64(cfg.ImageMaxUploadSizeMB) * 1024 * 1024
		}
		if cfg.FeaturedMaxWidth > 0 && cfg.FeaturedMaxHeight > 0 {
			s.featured = Bounds{Width: cfg.FeaturedMaxWidth, Height: cfg.FeaturedMaxHeight}
		}
		if cfg.ThumbnailMaxWidth > 0 && cfg.ThumbnailMaxHeight > 0 {
			s.thumbnail = Bounds{Width: cfg.ThumbnailMaxWidth, Height: cfg.ThumbnailMaxHeight}
		}
	}
	return s
}

// URL returns the public address of a stored image key.
func (s *ImageService) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}

// Store validates an upload and writes it unmodified into bucket. The returned key
// keeps an extension matching the detected format.
func (s *ImageService) Store(ctx context.Context, bucket string, up Upload) (string, error) {
	if len(up.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(up.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(up.Content)
	ext, ok := extensionFor(detected)
	if !ok {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(up.Content)); err != nil {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	key := storage.NewKey(bucket, "upload"+ext)
	if err := s.store.Save(ctx, key, bytes.NewReader(up.Content), detected); err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

// Remove deletes a stored image, logging failures.
func (s *ImageService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete image", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// ProcessPost optimises the featured image and thumbnail of a saved post. Each field
// is handled independently; failures are logged and never returned. With the
// deferred_image_processing flag on for the post, the work goes to the background
// worker when it is running and has room.
func (s *ImageService) ProcessPost(ctx context.Context, post *models.Post) {
	jobs := make([]imageJob, 0, 2)
	if post.FeaturedImage != "" {
		jobs = append(jobs, imageJob{key: post.FeaturedImage, bounds: s.featured})
	}
	if post.Thumbnail != "" {
		jobs = append(jobs, imageJob{key: post.Thumbnail, bounds: s.thumbnail})
	}

	deferred := s.flags.Enabled(featureflags.DeferredImageProcessing, post.ID) && s.workerRunning.Load()
	for _, job := range jobs {
		if deferred && s.enqueue(job) {
			continue
		}
		s.optimizeLogged(ctx, job)
	}
}

func (s *ImageService) enqueue(job imageJob) bool {
	select {
	case s.jobs <- job:
		return true
	default:
		return false
	}
}

// StartBackgroundWorker drains deferred optimisation jobs until ctx is cancelled.
func (s *ImageService) StartBackgroundWorker(ctx context.Context) {
	s.workerOnce.Do(func() {
		s.workerRunning.Store(true)
		go s.workerLoop(ctx)
	})
}

func (s *ImageService) workerLoop(ctx context.Context) {
	defer s.workerRunning.Store(false)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			// Jobs outlive the request that queued them.
			s.optimizeLogged(context.WithoutCancel(ctx), job)
		}
	}
}

func (s *ImageService) optimizeLogged(ctx context.Context, job imageJob) {
	if err := s.Optimize(ctx, job.key, job.bounds); err != nil {
		middleware.Logger.WarnContext(ctx, "image optimization failed, keeping original",
			slog.String("key", job.key), slog.String("error", err.Error()))
	}
}

// Optimize rewrites the image at key in place: it is flattened onto an opaque white
// background, shrunk to fit b when larger, and re-encoded in its own format.
// On error the stored object is left untouched.
func (s *ImageService) Optimize(ctx context.Context, key string, b Bounds) (err error) {
	bucket := bucketOf(key)
	ctx, span := observability.StartSpan(ctx, "image", "optimize", attribute.String("image.key", key))
	start := time.Now()
	defer func() {
		observability.ImageOptimizationDuration.WithLabelValues(bucket).Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case errors.Is(err, storage.ErrNotFound):
			result = "missing"
		case err != nil:
			result = "error"
		}
		observability.ImageOptimizations.WithLabelValues(bucket, result).Inc()
		observability.EndSpan(span, err)
	}()

	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	out := resizeToFit(flatten(src), b.Width, b.Height)

	encoded, contentType, err := s.encode(out, format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.store.Save(ctx, key, bytes.NewReader(encoded), contentType)
}

// flatten composites src over white so palette and alpha images become opaque RGBA.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// resizeToFit shrinks src to fit maxWidth x maxHeight keeping the aspect ratio.
// Images already within bounds are returned unchanged.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst
}

func (s *ImageService) encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	contentType := "image/" + format

	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256})
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(s.quality)})
	default:
		return nil, "", fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), contentType, nil
}

func extensionFor(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/gif":
		return ".gif", true
	case "image/webp":
		return ".webp", true
	default:
		return "", false
	}
}

func bucketOf(key string) string {
	if bucket, _, ok := strings.Cut(key, "/"); ok {
		return bucket
	}
	return "unknown"
}
