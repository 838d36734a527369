package ticket

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"symposium/internal/model"
)

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("entry-secret")
	token := s.Sign("3f1c2a")

	id, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "3f1c2a" {
		t.Fatalf("id = %q", id)
	}
}

func TestSignerRejectsForgedTokens(t *testing.T) {
	s := NewSigner("entry-secret")
	other := NewSigner("another-secret")

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"bare id", "3f1c2a", ErrMalformedToken},
		{"empty mac", "3f1c2a.", ErrMalformedToken},
		{"empty", "", ErrMalformedToken},
		{"other secret", other.Sign("3f1c2a"), ErrBadSignature},
		{"swapped id", "99aa00." + s.Sign("3f1c2a")[len("3f1c2a."):], ErrBadSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("Verify(%q) error = %v, want %v", tt.token, err, tt.want)
			}
		})
	}
}

func TestQRCodeIsPNG(t *testing.T) {
	png, err := QRCode("3f1c2a.abc")
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("QR output is not a PNG")
	}
}

func TestPDF(t *testing.T) {
	out, err := PDF(Ticket{
		RegistrationNumber: "SHACK202600001",
		ParticipantName:    "Asha",
		ParticipantEmail:   "asha@example.com",
		Title:              "Code Sprint",
		Kind:               model.TargetEvent,
		Venue:              "Hall A",
		StartsAt:           time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Amount:             299,
		Token:              NewSigner("s").Sign("reg-1"),
	})
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}
