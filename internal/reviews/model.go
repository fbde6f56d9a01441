package reviews

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MinRating is the lowest star value the public surface accepts.
	MinRating = 1
	// MaxRating is the highest star value the public surface accepts.
	MaxRating = 5
)

var (
	// ErrInvalidCity indicates that a submitted city name is blank.
	ErrInvalidCity = errors.New("reviews: invalid city")
	// ErrInvalidTitle indicates that a submitted review title is blank.
	ErrInvalidTitle = errors.New("reviews: invalid title")
	// ErrInvalidText indicates that a submitted review body is blank.
	ErrInvalidText = errors.New("reviews: invalid review text")
	// ErrInvalidRating indicates a star value outside [MinRating, MaxRating].
	ErrInvalidRating = errors.New("reviews: rating out of range")
)

// Review models one persisted city review. Ids are assigned by the store and
// never reused after deletion.
type Review struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	City          string    `gorm:"column:city;type:text;not null;index:idx_reviews_city_created,priority:1"`
	Rating        int       `gorm:"column:rating;not null"`
	Title         string    `gorm:"column:title;type:text;not null"`
	ReviewText    string    `gorm:"column:review_text;type:text;not null"`
	PhotoData     []byte    `gorm:"column:photo_data"`
	PhotoFilename string    `gorm:"column:photo_filename;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;index:idx_reviews_city_created,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Review) TableName() string {
	return "reviews"
}

// HasPhoto reports whether a normalized photo is attached.
func (r Review) HasPhoto() bool {
	return len(r.PhotoData) > 0
}

// Submission carries the input for Add. The store persists whatever it is
// handed; construct via NewSubmission to apply the public-surface validation.
type Submission struct {
	City          string
	Rating        int
	Title         string
	Text          string
	PhotoBytes    []byte
	PhotoFilename string
}

// NewSubmission validates user-facing input before it reaches the store:
// non-blank city, title and text, rating within [MinRating, MaxRating].
func NewSubmission(city string, rating int, title, text string) (Submission, error) {
	trimmedCity := strings.TrimSpace(city)
	if trimmedCity == "" {
		return Submission{}, fmt.Errorf("%w: empty", ErrInvalidCity)
	}
	if strings.TrimSpace(title) == "" {
		return Submission{}, fmt.Errorf("%w: empty", ErrInvalidTitle)
	}
	if strings.TrimSpace(text) == "" {
		return Submission{}, fmt.Errorf("%w: empty", ErrInvalidText)
	}
	if rating < MinRating || rating > MaxRating {
		return Submission{}, fmt.Errorf("%w: %d", ErrInvalidRating, rating)
	}
	return Submission{
		City:   trimmedCity,
		Rating: rating,
		Title:  title,
		Text:   text,
	}, nil
}

// WithPhoto attaches raw photo bytes and the caller-supplied filename. The
// bytes are normalized during Add; the filename is stored verbatim.
func (s Submission) WithPhoto(raw []byte, filename string) Submission {
	s.PhotoBytes = raw
	s.PhotoFilename = filename
	return s
}

// CityRatingSummary is the derived rating distribution for one city. Counts
// always carries the keys MinRating..MaxRating; Average is 0 when Total is 0.
type CityRatingSummary struct {
	Counts  map[int]int64
	Average float64
	Total   int64
}
