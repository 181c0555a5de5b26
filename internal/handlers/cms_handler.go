package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/services"
)

const maxImageSize = 10 << 20

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".svg": true}

// GetCMS returns one page plus the shared sections. The edit-mode flag tells
// the console whether to show edit controls.
func GetCMS(s *services.CMSService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.Query("page"))
		if key == "" {
			badRequest(c, "page is required")
			return
		}

		bundle, err := s.GetPageBundle(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		bundle.EditMode = helpers.SessionFrom(c).EditMode
		c.JSON(http.StatusOK, bundle)
	}
}

func UpdateCMSField(s *services.CMSService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FieldPath string          `json:"fieldPath"`
			Value     json.RawMessage `json:"value"`
		}
		if !bindJSON(c, &req) {
			return
		}

		if err := s.UpdateField(c.Request.Context(), req.FieldPath, req.Value); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Content updated"))
	}
}

func UpdateCMSPage(s *services.CMSService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			badRequest(c, "invalid request payload")
			return
		}

		page, err := s.UpdatePage(c.Request.Context(), c.Param("key"), body)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(page, "Page updated"))
	}
}

func UploadCMSImage(s *services.CMSService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("image")
		if err != nil {
			badRequest(c, "image file is required")
			return
		}
		if fh.Size > maxImageSize {
			badRequest(c, "image must be 10MB or smaller")
			return
		}
		if !allowedImageExt[strings.ToLower(filepath.Ext(fh.Filename))] {
			badRequest(c, "unsupported image type")
			return
		}

		file, err := fh.Open()
		if err != nil {
			badRequest(c, "could not read the uploaded image")
			return
		}
		defer file.Close()

		url, err := s.UploadImage(c.Request.Context(), file, fh.Filename)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(gin.H{"url": url}, "Image uploaded"))
	}
}
