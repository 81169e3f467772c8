package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"parkometr/internal/domain"
	"parkometr/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/guregu/null.v4"
)

var (
	testNow     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sessionCols = []string{"id", "spot_id", "user_id", "plate_number", "entry_time", "exit_time",
		"payment_status", "total_cost", "payment_token", "spot_number", "floor"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func fixedNow() time.Time { return testNow }

func newLedger(db *sql.DB) LedgerService {
	return LedgerService{DB: db, Now: fixedNow, NewToken: func() string { return "tok-1" }}
}

func expectSpotLock(mock sqlmock.Sqlmock, spotID int64) {
	mock.ExpectQuery("FROM spots WHERE id = \\? FOR UPDATE").WithArgs(spotID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "spot_number", "floor"}).AddRow(spotID, spotID, 0))
}

func TestEnterCreatesSession(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	expectSpotLock(mock, 5)
	mock.ExpectQuery("WHERE ps.spot_id = \\? AND ps.exit_time > \\?").WithArgs(int64(5), testNow).
		WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectExec("INSERT INTO parking_sessions").
		WithArgs(int64(5), sqlmock.AnyArg(), "ABC123", "tok-1", models.PaymentUnpaid, testNow, testNow.Add(2*time.Hour)).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	res, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 5, PlateNumber: " abc 123", DurationHours: 2})
	if err != nil {
		t.Fatalf("Enter error: %v", err)
	}
	if res.SessionID != 11 || res.Token != "tok-1" || !res.ExitTime.Equal(testNow.Add(2*time.Hour)) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnterDefaultsDurationToOneHour(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	expectSpotLock(mock, 2)
	mock.ExpectQuery("AND ps.exit_time > \\?").WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectExec("INSERT INTO parking_sessions").
		WithArgs(int64(2), int64(7), "XYZ9", "tok-1", models.PaymentUnpaid, testNow, testNow.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	_, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 2, PlateNumber: "XYZ9", UserID: null.IntFrom(7)})
	if err != nil {
		t.Fatalf("Enter error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnterDurationBounds(t *testing.T) {
	db, mock := newMock(t)
	longest := testNow.Add(time.Duration(MaxDurationHours) * time.Hour)

	mock.ExpectBegin()
	expectSpotLock(mock, 5)
	mock.ExpectQuery("AND ps.exit_time > \\?").WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectExec("INSERT INTO parking_sessions").
		WithArgs(int64(5), sqlmock.AnyArg(), "ABC", "tok-1", models.PaymentUnpaid, testNow, longest).
		WillReturnResult(sqlmock.NewResult(13, 1))
	mock.ExpectCommit()

	res, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 5, PlateNumber: "ABC", DurationHours: MaxDurationHours})
	if err != nil {
		t.Fatalf("Enter error: %v", err)
	}
	if !res.ExitTime.After(res.EntryTime) || res.ExitTime.Year() != 2125 {
		t.Fatalf("unexpected exit time %v", res.ExitTime)
	}

	for _, hours := range []int64{MaxDurationHours + 1, 3_000_000} {
		_, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 5, PlateNumber: "ABC", DurationHours: hours})
		if !domain.IsValidation(err) {
			t.Fatalf("duration %d: expected validation error, got %v", hours, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnterOccupiedSpotConflicts(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	expectSpotLock(mock, 5)
	mock.ExpectQuery("AND ps.exit_time > \\?").
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow(3, 5, nil, "OLD1", testNow.Add(-time.Hour), testNow.Add(time.Hour), "UNPAID", nil, "tok-0", 5, 0))
	mock.ExpectRollback()

	_, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 5, PlateNumber: "ABC123"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnterUnknownSpot(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM spots WHERE id = \\? FOR UPDATE").WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "spot_number", "floor"}))
	mock.ExpectRollback()

	_, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 404, PlateNumber: "ABC123"})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnterUnknownUser(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	expectSpotLock(mock, 5)
	mock.ExpectQuery("AND ps.exit_time > \\?").WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectExec("INSERT INTO parking_sessions").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	_, err := newLedger(db).Enter(context.Background(), EntryInput{SpotID: 5, PlateNumber: "ABC123", UserID: null.IntFrom(99)})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestEnterValidation(t *testing.T) {
	svc := LedgerService{Now: fixedNow}
	cases := []EntryInput{
		{SpotID: 0, PlateNumber: "ABC"},
		{SpotID: 1, PlateNumber: "   "},
		{SpotID: 1, PlateNumber: "ABC", DurationHours: -2},
		{SpotID: 1, PlateNumber: "ABC", UserID: null.IntFrom(0)},
		{SpotID: 1, PlateNumber: "ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
	}
	for _, in := range cases {
		if _, err := svc.Enter(context.Background(), in); !domain.IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
}

func TestExitImmediate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("UPDATE parking_sessions SET exit_time = \\?").WithArgs(testNow, int64(5), testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE parking_sessions SET exit_time = \\?").WithArgs(testNow, int64(6), testNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	svc := newLedger(db)
	if err := svc.ExitImmediate(context.Background(), 5); err != nil {
		t.Fatalf("ExitImmediate error: %v", err)
	}
	if err := svc.ExitImmediate(context.Background(), 6); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on a free spot, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStatusSummarizesOccupancy(t *testing.T) {
	db, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "spot_number", "floor", "plate_number", "user_id", "entry_time", "exit_time"}).
		AddRow(1, 1, 0, nil, nil, nil, nil).
		AddRow(2, 2, 0, "ABC123", nil, testNow, testNow.Add(time.Hour)).
		AddRow(3, 3, 1, nil, nil, nil, nil)
	mock.ExpectQuery("FROM spots s").WithArgs(testNow).WillReturnRows(rows)

	st, err := newLedger(db).Status(context.Background())
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if st.Summary != (models.OccupancySummary{Total: 3, Occupied: 1, Free: 2}) {
		t.Fatalf("unexpected summary: %+v", st.Summary)
	}
	if st.Spots[1].Status != models.SpotOccupied {
		t.Fatalf("spot 2 should be occupied")
	}
}

func TestHistoryRejectsBadIDs(t *testing.T) {
	svc := LedgerService{}
	if _, err := svc.SpotHistory(context.Background(), -1); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UserHistory(context.Background(), 0); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.ActiveByUser(context.Background(), 0); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
