package ticket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"symposium/internal/model"
)

const qrSize = 300

// QRCode renders token as a PNG.
func QRCode(token string) ([]byte, error) {
	png, err := qrcode.Encode(token, qrcode.High, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Ticket is everything printed on an entry pass.
type Ticket struct {
	RegistrationNumber string
	ParticipantName    string
	ParticipantEmail   string
	College            string
	Title              string
	Kind               model.TargetKind
	Venue              string
	StartsAt           time.Time
	TeamName           string
	Amount             model.Amount
	Token              string
}

// PDF renders an A5 entry pass with the QR code of the entry token.
func PDF(t Ticket) ([]byte, error) {
	png, err := QRCode(t.Token)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Entry pass "+t.RegistrationNumber, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "SHACKLES SYMPOSIUM", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Entry pass", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Registration", t.RegistrationNumber},
		{"Name", t.ParticipantName},
		{"Email", t.ParticipantEmail},
		{"College", t.College},
		{capitalize(string(t.Kind)), t.Title},
		{"Venue", t.Venue},
	}
	if !t.StartsAt.IsZero() {
		rows = append(rows, [2]string{"Starts", t.StartsAt.Format("02 Jan 2006 15:04")})
	}
	if t.TeamName != "" {
		rows = append(rows, [2]string{"Team", t.TeamName})
	}
	rows = append(rows, [2]string{"Amount paid", fmt.Sprintf("INR %d", t.Amount)})

	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 7, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, r[1], "", 1, "L", false, 0, "")
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("qr", 44, pdf.GetY()+6, 60, 60, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + 70)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "Show this code at the venue entrance.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
