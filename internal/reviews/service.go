package reviews

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()

	// ErrReviewNotFound indicates that no review exists for the requested id.
	ErrReviewNotFound = errors.New("reviews: review not found")
)

// ServiceError carries a stable operation code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "reviews.service.new"
	opEnsureSchema  = "reviews.ensure_schema"
	opAdd           = "reviews.add"
	opGet           = "reviews.get"
	opListForCity   = "reviews.list_for_city"
	opRatingSummary = "reviews.rating_summary"
	opDelete        = "reviews.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies required by the review store.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns the durable review collection: add, list, summarize, delete.
// Reviews are immutable after creation; there is no update operation.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger

	schemaOnce sync.Once
	schemaErr  error
}

// NewService constructs the review store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// EnsureSchema makes sure the reviews table exists. It is idempotent, never
// touches existing rows, and is invoked by every other operation so that any
// entry point works without an explicit setup step.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		s.logError(opEnsureSchema, "missing_database", errMissingDatabase)
		return newServiceError(opEnsureSchema, "missing_database", errMissingDatabase)
	}

	s.schemaOnce.Do(func() {
		s.schemaErr = s.db.WithContext(ctx).AutoMigrate(&Review{})
	})
	if s.schemaErr != nil {
		s.logError(opEnsureSchema, "migrate_failed", s.schemaErr)
		return newServiceError(opEnsureSchema, "migrate_failed", s.schemaErr)
	}
	return nil
}

// Add persists a new review and returns its assigned id. Photo bytes, when
// present, are normalized first; undecodable bytes drop the attachment rather
// than failing the write.
func (s *Service) Add(ctx context.Context, submission Submission) (int64, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	review := Review{
		City:       submission.City,
		Rating:     submission.Rating,
		Title:      submission.Title,
		ReviewText: submission.Text,
		CreatedAt:  s.clock().UTC(),
	}

	if len(submission.PhotoBytes) > 0 {
		normalized, ok := normalizePhoto(submission.PhotoBytes)
		if ok {
			review.PhotoData = normalized
			review.PhotoFilename = submission.PhotoFilename
		} else {
			s.logger.Warn("review photo discarded",
				zap.String("city", submission.City),
				zap.String("filename", submission.PhotoFilename),
				zap.Int("bytes", len(submission.PhotoBytes)))
		}
	}

	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		s.logError(opAdd, "insert_failed", err, zap.String("city", submission.City))
		return 0, newServiceError(opAdd, "insert_failed", err)
	}

	return review.ID, nil
}

// Get returns the review with the given id, or ErrReviewNotFound.
func (s *Service) Get(ctx context.Context, id int64) (Review, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return Review{}, err
	}

	var review Review
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Review{}, newServiceError(opGet, "not_found", ErrReviewNotFound)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Int64("review_id", id))
		return Review{}, newServiceError(opGet, "query_failed", err)
	}
	return review, nil
}

// ListForCity returns all reviews whose city matches exactly, newest first.
// Equal timestamps surface the later insertion first so the ordering is total.
func (s *Service) ListForCity(ctx context.Context, city string) ([]Review, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	var matched []Review
	if err := s.db.WithContext(ctx).
		Where("city = ?", city).
		Order("created_at DESC, id DESC").
		Find(&matched).Error; err != nil {
		s.logError(opListForCity, "query_failed", err, zap.String("city", city))
		return nil, newServiceError(opListForCity, "query_failed", err)
	}

	return matched, nil
}

type ratingCount struct {
	Rating int
	Count  int64
}

// RatingSummary computes the per-star distribution for a city over the same
// exact-match rows as ListForCity. All five star keys are always present;
// rows with a rating outside [MinRating, MaxRating] do not contribute.
func (s *Service) RatingSummary(ctx context.Context, city string) (CityRatingSummary, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return CityRatingSummary{}, err
	}

	var rows []ratingCount
	if err := s.db.WithContext(ctx).
		Model(&Review{}).
		Select("rating, COUNT(*) AS count").
		Where("city = ?", city).
		Group("rating").
		Scan(&rows).Error; err != nil {
		s.logError(opRatingSummary, "query_failed", err, zap.String("city", city))
		return CityRatingSummary{}, newServiceError(opRatingSummary, "query_failed", err)
	}

	summary := CityRatingSummary{Counts: make(map[int]int64, MaxRating)}
	for star := MinRating; star <= MaxRating; star++ {
		summary.Counts[star] = 0
	}

	var weighted int64
	for _, row := range rows {
		if row.Rating < MinRating || row.Rating > MaxRating {
			continue
		}
		summary.Counts[row.Rating] = row.Count
		summary.Total += row.Count
		weighted += int64(row.Rating) * row.Count
	}
	if summary.Total > 0 {
		summary.Average = float64(weighted) / float64(summary.Total)
	}

	return summary, nil
}

// Delete removes the review with the given id. Deleting an unknown id is a
// no-op; the id is never reissued to a later Add.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&Review{}, id).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.Int64("review_id", id))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("review store error", attrs...)
}
