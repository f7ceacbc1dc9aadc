package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
	"github.com/verdictapp/backend/internal/usecase"
)

const (
	serviceName         = "verdict-backend"
	serviceVersion      = "1.0.0"
	defaultMaxBatchSize = 100
)

// HandlerConfig holds request limits enforced by the handlers
type HandlerConfig struct {
	MaxBatchSize int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	matching     *usecase.MatchingService
	catalog      *usecase.CatalogService
	recalls      *usecase.RecallMatcher // nil when the recall feed is disabled
	maxBatchSize int
}

// NewHandler creates a new HTTP handler. recalls may be nil.
func NewHandler(
	matching *usecase.MatchingService,
	catalog *usecase.CatalogService,
	recalls *usecase.RecallMatcher,
	config HandlerConfig,
) *Handler {
	maxBatchSize := config.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}

	return &Handler{
		matching:     matching,
		catalog:      catalog,
		recalls:      recalls,
		maxBatchSize: maxBatchSize,
	}
}

// productPayload is a product as sent by API clients
type productPayload struct {
	Name  string `json:"name" binding:"required"`
	Brand string `json:"brand"`
	UPC   string `json:"upc"`
}

func (p productPayload) record() domain.ProductRecord {
	return domain.ProductRecord{Name: p.Name, Brand: p.Brand, UPC: p.UPC}
}

// matchOptions are the tuning fields shared by the matching endpoints
type matchOptions struct {
	Threshold     float64  `json:"threshold" binding:"gte=0,lte=1"`
	Limit         int      `json:"limit" binding:"gte=0,lte=100"`
	ExcludeStatus []string `json:"excludeStatus"`
}

func (o matchOptions) findOptions() usecase.FindOptions {
	return usecase.FindOptions{
		Threshold:     o.Threshold,
		Limit:         o.Limit,
		ExcludeStatus: o.ExcludeStatus,
	}
}

type duplicatesRequest struct {
	productPayload
	matchOptions
}

type batchRequest struct {
	Products []productPayload `json:"products" binding:"dive"`
	matchOptions
}

type scoreRequest struct {
	A productPayload `json:"a"`
	B productPayload `json:"b"`
}

type ingestRequest struct {
	productPayload
	Status string `json:"status" binding:"omitempty,oneof=draft published archived"`
	Force  bool   `json:"force"`
	matchOptions
}

// recallMatchRequest selects up to Limit recalls; MatchLimit caps matches per recall
type recallMatchRequest struct {
	Search        string   `json:"search" binding:"required"`
	Limit         int      `json:"limit" binding:"gte=0,lte=100"`
	Threshold     float64  `json:"threshold" binding:"gte=0,lte=1"`
	MatchLimit    int      `json:"matchLimit" binding:"gte=0,lte=100"`
	ExcludeStatus []string `json:"excludeStatus"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// FindDuplicates handles single-product duplicate lookups
func (h *Handler) FindDuplicates(c *gin.Context) {
	var req duplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	matches, err := h.matching.FindPotentialDuplicates(c.Request.Context(), req.record(), req.findOptions())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// FindDuplicatesBatch handles duplicate lookups for several products at once
func (h *Handler) FindDuplicatesBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.Products) > h.maxBatchSize {
		respondError(c, fmt.Errorf("%w: %d products, limit is %d", domain.ErrBatchTooLarge, len(req.Products), h.maxBatchSize))
		return
	}

	products := make([]domain.ProductRecord, len(req.Products))
	for i, p := range req.Products {
		products[i] = p.record()
	}

	results, err := h.matching.FindPotentialDuplicatesBatch(c.Request.Context(), products, req.findOptions())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ScoreProducts returns the duplicate score of two products without touching the store
func (h *Handler) ScoreProducts(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": usecase.CalculateDuplicateScore(req.A.record(), req.B.record())})
}

// CreateProduct ingests a product, refusing with 409 when it looks like a duplicate
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.catalog.Ingest(c.Request.Context(), usecase.IngestRequest{
		Product: req.record(),
		Status:  req.Status,
		Force:   req.Force,
		Options: req.findOptions(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Action == usecase.ActionFlagged {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// GetProduct returns a catalog product by ID
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, fmt.Errorf("%w: product id must be an integer", domain.ErrInvalidRequest))
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// MatchRecalls pairs recall feed reports with catalog products
func (h *Handler) MatchRecalls(c *gin.Context) {
	if h.recalls == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "recall matching is not configured"})
		return
	}

	var req recallMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	matches, err := h.recalls.MatchRecalls(c.Request.Context(), usecase.RecallQuery{
		Search: req.Search,
		Limit:  req.Limit,
		Options: usecase.FindOptions{
			Threshold:     req.Threshold,
			Limit:         req.MatchLimit,
			ExcludeStatus: req.ExcludeStatus,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recalls": matches})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRecallFeedFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Int("status", status).Str("path", c.FullPath()).Msg("Request failed")
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}

	c.JSON(status, gin.H{"error": message})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: %v", domain.ErrInvalidRequest, err)})
}
