package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vehiclematch/backend/internal/domain"
	"github.com/vehiclematch/backend/internal/infrastructure/csvcatalog"
	"github.com/vehiclematch/backend/internal/usecase"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// maxUploadSize bounds multipart catalog uploads
const maxUploadSize = 32 << 20

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service *usecase.RecommendationService
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil service makes the catalog
// and recommendation endpoints answer 501.
func NewHandler(service *usecase.RecommendationService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RecommendationResponse is the body returned by POST /api/v1/recommendations
type RecommendationResponse struct {
	Tier    domain.Tier            `json:"tier"`
	Message string                 `json:"message"`
	Make    string                 `json:"make"`
	Cluster string                 `json:"cluster"`
	Query   domain.Query           `json:"query"`
	Results []domain.RankedVehicle `json:"results"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "vehiclematch-backend",
		"version": Version,
	})
}

// Recommend handles recommendation requests
func (h *Handler) Recommend(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	var request domain.RecommendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.service.Recommend(c.Request.Context(), &request)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecommendationResponse{
		Tier:    result.Tier,
		Message: result.Tier.Message(),
		Make:    result.Query.Make,
		Cluster: result.Cluster,
		Query:   result.Query,
		Results: result.Vehicles,
	})
}

// ListMakes returns the distinct makes of the active catalog
func (h *Handler) ListMakes(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	makes, err := h.service.Makes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"makes": makes})
}

// PreviewCatalog returns the first rows of the catalog (?rows=N, default 5)
func (h *Handler) PreviewCatalog(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	rows := 0
	if raw := c.Query("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rows must be a positive integer"})
			return
		}
		rows = n
	}

	vehicles, total, err := h.service.Preview(c.Request.Context(), rows)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"vehicles": vehicles,
	})
}

// UploadCatalog replaces the active catalog with an uploaded CSV file (form field "file")
func (h *Handler) UploadCatalog(c *gin.Context) {
	if !h.configured(c) {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read uploaded file"})
		return
	}
	defer file.Close()

	vehicles, err := csvcatalog.Parse(file)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if len(vehicles) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "uploaded catalog has no vehicles"})
		return
	}

	if err := h.service.ReplaceCatalog(c.Request.Context(), vehicles); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("catalog uploaded",
		zap.String("filename", header.Filename),
		zap.Int("vehicles", len(vehicles)),
	)
	c.JSON(http.StatusOK, gin.H{
		"status":   "replaced",
		"vehicles": len(vehicles),
	})
}

func (h *Handler) configured(c *gin.Context) bool {
	if h.service == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "recommendation service not configured",
		})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMakeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCatalogEmpty):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMissingColumns), errors.Is(err, domain.ErrInvalidCatalog):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRemoteCatalogFailure), errors.Is(err, domain.ErrCatalogNotFound):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
