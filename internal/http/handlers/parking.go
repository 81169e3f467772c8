package handlers

import (
	"net/http"
	"time"

	"parkometr/internal/http/middleware"
	"parkometr/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type entryRequest struct {
	SpotID        int64    `json:"spot_id"`
	PlateNumber   string   `json:"plate_number"`
	DurationHours int64    `json:"duration_hours"`
	UserID        null.Int `json:"user_id"`
}

type exitRequest struct {
	SpotID int64               `json:"spot_id"`
	Price  decimal.NullDecimal `json:"price"`
	UserID null.Int            `json:"user_id"`
}

type immediateExitRequest struct {
	SpotID int64 `json:"spot_id"`
}

// actingUser is the explicit user_id of the body, else the bearer token's user.
func actingUser(c *gin.Context, explicit null.Int) null.Int {
	if explicit.Valid {
		return explicit
	}
	if id := middleware.CurrentUserID(c); id > 0 {
		return null.IntFrom(id)
	}
	return explicit
}

func ledgerService(c *gin.Context) services.LedgerService {
	return services.LedgerService{Now: currentDeps().Now, RequestID: requestID(c)}
}

func ticketService(c *gin.Context) services.TicketService {
	d := currentDeps()
	return services.TicketService{BaseURL: d.PublicBaseURL, Now: d.Now, RequestID: requestID(c)}
}

// GET /api/parking-status
func ParkingStatus(c *gin.Context) {
	st, err := ledgerService(c).Status(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": st.Summary, "spots": st.Spots})
}

// POST /api/entry
func Entry(c *gin.Context) {
	var req entryRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := ledgerService(c).Enter(c.Request.Context(), services.EntryInput{
		SpotID:        req.SpotID,
		PlateNumber:   req.PlateNumber,
		DurationHours: req.DurationHours,
		UserID:        actingUser(c, req.UserID),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Vehicle registered on the spot",
		"token":       res.Token,
		"ticket_url":  ticketService(c).TicketURL(res.Token),
		"session_id":  res.SessionID,
		"spot_id":     res.Spot.ID,
		"spot_number": res.Spot.SpotNumber,
		"floor":       res.Spot.Floor,
		"entry_time":  res.EntryTime.Format(time.RFC3339),
		"exit_time":   res.ExitTime.Format(time.RFC3339),
	})
}

// POST /api/exit
func Exit(c *gin.Context) {
	var req exitRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	svc := services.BillingService{Now: currentDeps().Now, RequestID: requestID(c)}
	out, err := svc.Settle(c.Request.Context(), services.SettleInput{
		SpotID: req.SpotID,
		UserID: actingUser(c, req.UserID),
		Price:  req.Price,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Payment accepted, spot released",
		"total_cost": out.TotalCost,
		"balance":    out.Balance,
		"hours":      out.Hours,
		"session_id": out.SessionID,
		"user_id":    out.UserID,
	})
}

// POST /api/exit/immediate
func ExitImmediate(c *gin.Context) {
	var req immediateExitRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if err := ledgerService(c).ExitImmediate(c.Request.Context(), req.SpotID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Spot released"})
}

// GET /api/history/:user_id
func UserHistory(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	history, err := ledgerService(c).UserHistory(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": userID, "count": len(history), "history": history})
}

// GET /api/spot-history/:spot_id
func SpotHistory(c *gin.Context) {
	spotID, ok := pathID(c, "spot_id")
	if !ok {
		return
	}
	history, err := ledgerService(c).SpotHistory(c.Request.Context(), spotID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if len(history) == 0 {
		respondError(c, http.StatusNotFound, "not_found", "no history for this spot", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spot_id": spotID, "count": len(history), "history": history})
}

// GET /api/spots/:user_id
func ActiveSessions(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	sessions, err := ledgerService(c).ActiveByUser(c.Request.Context(), userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": sessions})
}

// GET /api/calculate-price/:hours
func CalculatePrice(c *gin.Context) {
	hours, err := parseHours(c.Param("hours"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	q, err := services.BillingService{}.Quote(hours)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// GET /api/stats
func Stats(c *gin.Context) {
	out, err := services.StatsService{Now: currentDeps().Now}.Today(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/get-ticket/:token
func GetTicket(c *gin.Context) {
	t, err := ticketService(c).Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ticket": t})
}

// GET /api/get-ticket/:token/pdf
func GetTicketPDF(c *gin.Context) {
	pdf, filename, err := ticketService(c).PDF(c.Request.Context(), c.Param("token"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
