package reviews

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type manualClock struct {
	current time.Time
}

func (c *manualClock) Now() time.Time {
	return c.current
}

func (c *manualClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *manualClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:citypulse_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	clock := &manualClock{current: time.Unix(1700000000, 0).UTC()}

	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to construct review service: %v", err)
	}

	return service, db, clock
}

func mustSubmission(t *testing.T, city string, rating int, title, text string) Submission {
	t.Helper()
	submission, err := NewSubmission(city, rating, title, text)
	if err != nil {
		t.Fatalf("unexpected submission error: %v", err)
	}
	return submission
}

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			canvas.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, canvas); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return encoded.Bytes()
}
