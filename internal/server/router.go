package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/citypulselabs/citypulse/backend/internal/reviews"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	moderatorContextKey = "citypulse_moderator"
	requestIDContextKey = "citypulse_request_id"
	requestIDHeader     = "X-Request-ID"

	// Multipart bodies are dominated by the photo; inputs past this bound are
	// rejected before buffering.
	maxPhotoUploadBytes = 16 << 20
)

var (
	errMissingReviewService = errors.New("review service dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// TokenValidator checks a moderator bearer token and returns its subject.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP surface to the underlying services.
type Dependencies struct {
	Reviews *reviews.Service
	Tokens  TokenValidator
	Logger  *zap.Logger
}

// NewHTTPHandler builds the gin router for the reviews API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Reviews == nil {
		return nil, errMissingReviewService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		reviewService: deps.Reviews,
		tokens:        deps.Tokens,
		logger:        logger,
	}

	router.POST("/reviews", handler.handleAddReview)
	router.GET("/reviews", handler.handleListReviews)
	router.GET("/reviews/summary", handler.handleRatingSummary)
	router.GET("/reviews/:id/photo", handler.handleReviewPhoto)

	protected := router.Group("/")
	protected.Use(handler.authorizeModerator)
	protected.DELETE("/reviews/:id", handler.handleDeleteReview)

	return router, nil
}

type httpHandler struct {
	reviewService *reviews.Service
	tokens        TokenValidator
	logger        *zap.Logger
}

type reviewPayload struct {
	ID            int64  `json:"id"`
	City          string `json:"city"`
	Rating        int    `json:"rating"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	HasPhoto      bool   `json:"has_photo"`
	PhotoFilename string `json:"photo_filename,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type summaryPayload struct {
	Counts  map[string]int64 `json:"counts"`
	Average float64          `json:"average"`
	Total   int64            `json:"total"`
}

func (h *httpHandler) handleAddReview(c *gin.Context) {
	rating, err := strconv.Atoi(strings.TrimSpace(c.PostForm("rating")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating"})
		return
	}

	submission, err := reviews.NewSubmission(c.PostForm("city"), rating, c.PostForm("title"), c.PostForm("text"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": submissionErrorCode(err)})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err == nil && fileHeader != nil {
		if fileHeader.Size > maxPhotoUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo_too_large"})
			return
		}
		file, openErr := fileHeader.Open()
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_photo"})
			return
		}
		defer file.Close()
		raw, readErr := io.ReadAll(file)
		if readErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_photo"})
			return
		}
		submission = submission.WithPhoto(raw, fileHeader.Filename)
	}

	id, err := h.reviewService.Add(c.Request.Context(), submission)
	if err != nil {
		h.logger.Error("failed to add review",
			zap.Error(err),
			zap.String("request_id", c.GetString(requestIDContextKey)))
		h.respondServiceError(c, "add_failed", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *httpHandler) handleListReviews(c *gin.Context) {
	city := c.Query("city")

	matched, err := h.reviewService.ListForCity(c.Request.Context(), city)
	if err != nil {
		h.logger.Error("failed to list reviews",
			zap.Error(err),
			zap.String("city", city),
			zap.String("request_id", c.GetString(requestIDContextKey)))
		h.respondServiceError(c, "list_failed", err)
		return
	}

	payload := make([]reviewPayload, 0, len(matched))
	for _, review := range matched {
		payload = append(payload, reviewPayload{
			ID:            review.ID,
			City:          review.City,
			Rating:        review.Rating,
			Title:         review.Title,
			Text:          review.ReviewText,
			HasPhoto:      review.HasPhoto(),
			PhotoFilename: review.PhotoFilename,
			CreatedAt:     review.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"reviews": payload})
}

func (h *httpHandler) handleRatingSummary(c *gin.Context) {
	city := c.Query("city")

	summary, err := h.reviewService.RatingSummary(c.Request.Context(), city)
	if err != nil {
		h.logger.Error("failed to summarize reviews",
			zap.Error(err),
			zap.String("city", city),
			zap.String("request_id", c.GetString(requestIDContextKey)))
		h.respondServiceError(c, "summary_failed", err)
		return
	}

	counts := make(map[string]int64, len(summary.Counts))
	for star, count := range summary.Counts {
		counts[strconv.Itoa(star)] = count
	}

	c.JSON(http.StatusOK, summaryPayload{
		Counts:  counts,
		Average: summary.Average,
		Total:   summary.Total,
	})
}

func (h *httpHandler) handleReviewPhoto(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}

	review, err := h.reviewService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, reviews.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.logger.Error("failed to load review photo",
			zap.Error(err),
			zap.Int64("review_id", id),
			zap.String("request_id", c.GetString(requestIDContextKey)))
		h.respondServiceError(c, "photo_failed", err)
		return
	}
	if !review.HasPhoto() {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", review.PhotoData)
}

func (h *httpHandler) handleDeleteReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("failed to delete review",
			zap.Error(err),
			zap.Int64("review_id", id),
			zap.String("moderator", c.GetString(moderatorContextKey)),
			zap.String("request_id", c.GetString(requestIDContextKey)))
		h.respondServiceError(c, "delete_failed", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) authorizeModerator(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("moderator token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(moderatorContextKey, subject)
	c.Next()
}

func (h *httpHandler) respondServiceError(c *gin.Context, fallback string, err error) {
	var serviceErr *reviews.ServiceError
	if errors.As(err, &serviceErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "code": serviceErr.Code()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

func submissionErrorCode(err error) string {
	switch {
	case errors.Is(err, reviews.ErrInvalidCity):
		return "invalid_city"
	case errors.Is(err, reviews.ErrInvalidTitle):
		return "invalid_title"
	case errors.Is(err, reviews.ErrInvalidText):
		return "invalid_text"
	case errors.Is(err, reviews.ErrInvalidRating):
		return "invalid_rating"
	default:
		return "invalid_request"
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}
