// Package pipeline turns a dish photo into an analysis, a recipe and a
// generated photo of the dish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"autonomeal/apperr"
	"autonomeal/upstream"
	"autonomeal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	analysisPrompt     = "Describe this image in detail and suggest what dish it might be."
	recipeSystemPrompt = "You are a professional chef. Generate a detailed recipe including ingredients and step-by-step instructions."
	dishImagePrompt    = "A professional, realistic photograph of %s, plated which looks like I would make it at home, make it look realistic and less perfectionist like a human would actually make it, make it less perfect and less fancy, and make it look human like."

	analysisMaxTokens = 300
	recipeMaxTokens   = 1000

	// ImagePathPrefix is where generated images are served from.
	ImagePathPrefix = "/api/images/"
)

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

type Completer interface {
	Complete(ctx context.Context, model string, messages []upstream.Message, maxTokens int) (string, error)
}

// ImageHost publishes an image and returns a URL the vision model can fetch.
type ImageHost interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

type Options struct {
	UploadDir   string
	VisionModel string
	RecipeModel string
}

type Analysis struct {
	Analysis string `json:"analysis"`
	ImageURL string `json:"image_url"`
}

type Service struct {
	completer Completer
	host      ImageHost
	generator ImageGenerator
	blobs     BlobStore
	opts      Options
	logger    *zap.Logger
}

func NewService(completer Completer, host ImageHost, generator ImageGenerator, blobs BlobStore, opts Options, logger *zap.Logger) *Service {
	return &Service{
		completer: completer,
		host:      host,
		generator: generator,
		blobs:     blobs,
		opts:      opts,
		logger:    logger,
	}
}

// AnalyzeImage hosts the uploaded photo and asks the vision model what dish
// it shows. The upload only lives on disk for the duration of the call.
func (s *Service) AnalyzeImage(ctx context.Context, filename string, body io.Reader) (*Analysis, error) {
	if body == nil {
		return nil, apperr.BadRequest("No file part")
	}
	if filename == "" {
		return nil, apperr.BadRequest("No selected file")
	}
	ext, ok := allowedExtension(filename)
	if !ok {
		return nil, apperr.UnsupportedMediaType("File type not allowed")
	}

	var result Analysis
	err := WithTempFile(s.opts.UploadDir, ext, body, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return apperr.Internal(fmt.Errorf("read upload: %w", err))
		}

		imageURL, err := s.host.Upload(ctx, data)
		if err != nil {
			return apperr.Upstream("Image analysis failed", fmt.Errorf("host image: %w", err))
		}

		messages := []upstream.Message{upstream.VisionMessage(analysisPrompt, imageURL)}
		analysis, err := s.completer.Complete(ctx, s.opts.VisionModel, messages, analysisMaxTokens)
		if err != nil {
			return apperr.Upstream("Image analysis failed", fmt.Errorf("analyze image: %w", err))
		}

		result = Analysis{Analysis: analysis, ImageURL: imageURL}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info("image analyzed", zap.String("image_url", result.ImageURL))
	return &result, nil
}

// GenerateRecipe writes a recipe for dish.
func (s *Service) GenerateRecipe(ctx context.Context, dish string) (string, error) {
	dish = strings.TrimSpace(dish)
	if dish == "" {
		return "", apperr.BadRequest("Dish name is required")
	}

	messages := []upstream.Message{
		upstream.TextMessage("system", recipeSystemPrompt),
		upstream.TextMessage("user", fmt.Sprintf("Generate a detailed recipe for %s.", dish)),
	}
	recipe, err := s.completer.Complete(ctx, s.opts.RecipeModel, messages, recipeMaxTokens)
	if err != nil {
		return "", apperr.Upstream("Recipe generation failed", err)
	}
	return recipe, nil
}

// GenerateDishImage renders a home-cooked looking photo of dish, stores it
// and returns the path it is served from.
func (s *Service) GenerateDishImage(ctx context.Context, dish string) (string, error) {
	dish = strings.TrimSpace(dish)
	if dish == "" {
		return "", apperr.BadRequest("Dish name is required")
	}

	image, err := s.generator.Generate(ctx, fmt.Sprintf(dishImagePrompt, dish))
	if err != nil {
		return "", apperr.Upstream("Failed to generate image", err)
	}

	key := uuid.NewString() + ".png"
	if err := s.blobs.Put(ctx, key, image); err != nil {
		return "", apperr.Internal(fmt.Errorf("store generated image: %w", err))
	}

	s.logger.Info("dish image generated", zap.String("key", key), zap.Int("bytes", len(image)))
	return ImagePathPrefix + key, nil
}

// OpenImage returns a generated image. Only keys of the form <uuid>.png are
// served; anything else is reported as not found.
func (s *Service) OpenImage(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validImageKey(key) {
		return nil, apperr.NotFound("Image not found")
	}

	rc, err := s.blobs.Get(ctx, key)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, apperr.NotFound("Image not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return rc, nil
}

func allowedExtension(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext, allowedExtensions[ext]
}

func validImageKey(key string) bool {
	name, ok := strings.CutSuffix(key, ".png")
	if !ok {
		return false
	}
	id, err := uuid.Parse(name)
	return err == nil && id.String() == name
}
