package services

import (
	"context"
	"time"

	"parkometr/internal/domain"
	"parkometr/internal/domain/models"
	"parkometr/internal/repositories"
	"parkometr/internal/utils"
)

// StatsService reports how spots were used.
type StatsService struct {
	Spots repositories.SpotRepository
	Now   func() time.Time
}

// DailyUsage is the per-spot count of sessions started on one day.
type DailyUsage struct {
	Date string             `json:"date"`
	Data []models.SpotUsage `json:"data"`
}

// Today counts sessions started today per spot, busiest first.
func (s StatsService) Today(ctx context.Context) (DailyUsage, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	from, to := utils.DayBounds(now)
	data, err := s.Spots.DailyUsage(ctx, from, to)
	if err != nil {
		return DailyUsage{}, domain.InternalError{Err: err}
	}
	return DailyUsage{Date: from.Format("2006-01-02"), Data: data}, nil
}
