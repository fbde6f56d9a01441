package reviews

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	"testing"
)

func TestNormalizePhotoBoundsOversizedImages(t *testing.T) {
	raw := makePNG(t, 1600, 1200)

	normalized, ok := normalizePhoto(raw)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(normalized))
	if err != nil {
		t.Fatalf("failed to decode normalized photo: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Fatalf("expected 800x600 output preserving 4:3, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestNormalizePhotoKeepsSmallImageDimensions(t *testing.T) {
	raw := makePNG(t, 320, 200)

	normalized, ok := normalizePhoto(raw)
	if !ok {
		t.Fatalf("expected normalization to succeed")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(normalized))
	if err != nil {
		t.Fatalf("failed to decode normalized photo: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Fatalf("expected dimensions unchanged, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestNormalizePhotoRejectsNonImageBytes(t *testing.T) {
	if _, ok := normalizePhoto([]byte("not an image at all")); ok {
		t.Fatalf("expected normalization to fail for arbitrary bytes")
	}
	if _, ok := normalizePhoto(nil); ok {
		t.Fatalf("expected normalization to fail for empty input")
	}
}

func TestAddStoresNormalizedPhotoWithFilename(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	submission := mustSubmission(t, "Goa", 5, "Beaches", "Sunset photo attached.").
		WithPhoto(makePNG(t, 1000, 1000), "sunset.png")

	id, err := service.Add(ctx, submission)
	if err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}

	stored, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !stored.HasPhoto() {
		t.Fatalf("expected photo attachment")
	}
	if stored.PhotoFilename != "sunset.png" {
		t.Fatalf("expected caller-supplied filename, got %s", stored.PhotoFilename)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(stored.PhotoData))
	if err != nil {
		t.Fatalf("stored photo is not decodable: %v", err)
	}
	if cfg.Width > maxPhotoDimension || cfg.Height > maxPhotoDimension {
		t.Fatalf("stored photo exceeds bound: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestAddDiscardsUndecodablePhotoButKeepsReview(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	submission := mustSubmission(t, "Goa", 4, "No photo", "Attachment was corrupt.").
		WithPhoto([]byte{0x00, 0x01, 0x02, 0x03}, "broken.jpg")

	id, err := service.Add(ctx, submission)
	if err != nil {
		t.Fatalf("expected add to succeed despite bad photo: %v", err)
	}

	stored, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if stored.HasPhoto() {
		t.Fatalf("expected photo to be discarded")
	}
	if stored.PhotoFilename != "" {
		t.Fatalf("expected no filename for discarded photo, got %s", stored.PhotoFilename)
	}
}
