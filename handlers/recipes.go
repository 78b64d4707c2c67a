package handlers

import (
	"errors"
	"io"
	"net/http"

	"autonomeal/apperr"
	"autonomeal/pipeline"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type dishRequest struct {
	DishName string `json:"dish_name" validate:"required"`
}

func AnalyzeImageHandler(w http.ResponseWriter, r *http.Request, svc *pipeline.Service, maxUpload int64, logger *zap.Logger) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	var (
		filename string
		body     io.Reader
	)
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		filename, body = header.Filename, file
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// the service reports the missing part
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, logger, apperr.BadRequest("File too large"))
			return
		}
		writeError(w, r, logger, apperr.BadRequest("No file part"))
		return
	}

	result, err := svc.AnalyzeImage(r.Context(), filename, body)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"analysis":  result.Analysis,
		"image_url": result.ImageURL,
	})
}

func GenerateRecipeHandler(w http.ResponseWriter, r *http.Request, svc *pipeline.Service, logger *zap.Logger) {
	var req dishRequest
	if err := decodeDish(w, r, &req); err != nil {
		writeError(w, r, logger, err)
		return
	}

	recipe, err := svc.GenerateRecipe(r.Context(), req.DishName)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"recipe":  recipe,
	})
}

func GenerateDishImageHandler(w http.ResponseWriter, r *http.Request, svc *pipeline.Service, logger *zap.Logger) {
	var req dishRequest
	if err := decodeDish(w, r, &req); err != nil {
		writeError(w, r, logger, err)
		return
	}

	imageURL, err := svc.GenerateDishImage(r.Context(), req.DishName)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"image_url": imageURL,
	})
}

func ImageHandler(w http.ResponseWriter, r *http.Request, svc *pipeline.Service, logger *zap.Logger) {
	rc, err := svc.OpenImage(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, r, logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("failed to stream image", zap.Error(err))
	}
}

func decodeDish(w http.ResponseWriter, r *http.Request, req *dishRequest) error {
	if err := decodeJSON(w, r, req); err != nil {
		return apperr.BadRequest("Dish name is required")
	}
	return validateStruct(req, "Dish name is required")
}
