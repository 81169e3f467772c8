package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatsToday(t *testing.T) {
	db, mock := newMock(t)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("COUNT\\(ps.id\\)").WithArgs(from, from.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"spot_number", "floor", "cnt"}).
			AddRow(3, 0, 4).
			AddRow(1, 0, 1))

	svc := StatsService{Now: fixedNow}
	svc.Spots.DB = db
	out, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}
	if out.Date != "2025-03-01" || len(out.Data) != 2 || out.Data[0].SpotNumber != 3 || out.Data[0].Count != 4 {
		t.Fatalf("unexpected usage %+v", out)
	}
}
