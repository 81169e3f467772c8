package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"parkometr/internal/domain"
	"parkometr/internal/domain/models"
	"parkometr/internal/repositories"
	"parkometr/internal/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"gopkg.in/guregu/null.v4"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Z0-9_-]+`)

// TicketService renders the parking ticket behind a payment token as JSON or PDF.
type TicketService struct {
	Sessions  repositories.SessionRepository
	BaseURL   string
	Now       func() time.Time
	RequestID string
	Loader    func(ctx context.Context, token string) (models.ParkingSession, error)
}

// Ticket is the customer facing view of a session.
type Ticket struct {
	Token         string              `json:"token"`
	SessionID     int64               `json:"session_id"`
	SpotID        int64               `json:"spot_id"`
	SpotNumber    int                 `json:"spot_number"`
	Floor         null.Int            `json:"floor"`
	PlateNumber   string              `json:"plate_number"`
	EntryTime     time.Time           `json:"entry_time"`
	ExitTime      time.Time           `json:"exit_time"`
	PaymentStatus string              `json:"payment_status"`
	Active        bool                `json:"active"`
	TotalCost     decimal.NullDecimal `json:"total_cost"`
	CurrentPrice  decimal.Decimal     `json:"current_price"`
	Currency      string              `json:"currency"`
	TicketURL     string              `json:"ticket_url"`
}

func (s TicketService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// TicketURL is the public link encoded in the ticket QR code.
func (s TicketService) TicketURL(token string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/api/get-ticket/" + token
}

func (s TicketService) load(ctx context.Context, token string) (models.ParkingSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.ParkingSession{}, domain.ValidationError{Field: "token", Msg: "is required"}
	}
	if s.Loader != nil {
		return s.Loader(ctx, token)
	}
	return s.Sessions.GetByToken(ctx, token)
}

// Get returns the ticket with the price owed right now. A paid ticket reports
// its settled cost.
func (s TicketService) Get(ctx context.Context, token string) (Ticket, error) {
	session, err := s.load(ctx, token)
	if err != nil {
		return Ticket{}, wrapInternal(err)
	}

	now := s.now()
	t := Ticket{
		Token:         session.PaymentToken,
		SessionID:     session.ID,
		SpotID:        session.SpotID,
		SpotNumber:    session.SpotNumber,
		Floor:         session.Floor,
		PlateNumber:   session.PlateNumber,
		EntryTime:     session.EntryTime,
		ExitTime:      session.ExitTime,
		PaymentStatus: session.PaymentStatus,
		Active:        session.ActiveAt(now),
		TotalCost:     session.TotalCost,
		Currency:      domain.Currency,
		TicketURL:     s.TicketURL(session.PaymentToken),
	}
	if session.Paid() {
		t.CurrentPrice = session.TotalCost.Decimal
	} else {
		end := now
		if !session.ActiveAt(now) {
			end = session.ExitTime
		}
		t.CurrentPrice = domain.Fee(domain.HoursBetween(session.EntryTime, end))
	}
	return t, nil
}

// PDF renders the ticket with a QR code of its URL.
func (s TicketService) PDF(ctx context.Context, token string) ([]byte, string, error) {
	t, err := s.Get(ctx, token)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "ticket", "generate_pdf", fmt.Sprintf("session_id=%d", t.SessionID))
	out, name, err := buildTicketPDF(t)
	if err != nil {
		return nil, "", domain.InternalError{Err: err}
	}
	return out, name, nil
}

func buildTicketPDF(t Ticket) ([]byte, string, error) {
	qrPNG, err := qrcode.Encode(t.TicketURL, qrcode.Medium, 256)
	if err != nil {
		return nil, "", fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Parking ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PARKING TICKET")
	pdf.Ln(12)

	floor := "-"
	if t.Floor.Valid {
		floor = fmt.Sprintf("%d", t.Floor.Int64)
	}
	total := "-"
	if t.TotalCost.Valid {
		total = t.TotalCost.Decimal.StringFixed(2) + " " + t.Currency
	}

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Plate        : %s", t.PlateNumber),
		fmt.Sprintf("Spot         : %d (floor %s)", t.SpotNumber, floor),
		fmt.Sprintf("Entry        : %s", utils.FormatDateTime(t.EntryTime)),
		fmt.Sprintf("Paid until   : %s", utils.FormatDateTime(t.ExitTime)),
		fmt.Sprintf("Status       : %s", t.PaymentStatus),
		fmt.Sprintf("Amount due   : %s %s", t.CurrentPrice.StringFixed(2), t.Currency),
		fmt.Sprintf("Total paid   : %s", total),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 44, pdf.GetY()+6, 60, 60, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + 70)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, t.Token, "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), ticketFilename(t), nil
}

// ticketFilename is safe to put into a Content-Disposition header unquoted.
func ticketFilename(t Ticket) string {
	plate := unsafeFilenameChars.ReplaceAllString(strings.ToUpper(t.PlateNumber), "")
	if plate == "" {
		plate = "PLATE"
	}
	return fmt.Sprintf("TICKET_%s_%d.pdf", plate, t.SessionID)
}
