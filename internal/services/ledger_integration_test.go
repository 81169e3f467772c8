package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	intdb "parkometr/internal/db"
	"parkometr/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// Runs against a disposable MySQL database, e.g.
// PARKOMETR_TEST_DSN="root:pw@tcp(127.0.0.1:3306)/parking_test?parseTime=true&loc=UTC"
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PARKOMETR_TEST_DSN")
	if dsn == "" {
		t.Skip("PARKOMETR_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := intdb.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func TestConcurrentEntryAdmitsOneVehicle(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()

	spotNumber := int(time.Now().UnixNano() % 1_000_000_000)
	res, err := db.ExecContext(ctx, `INSERT INTO spots (spot_number, floor) VALUES (?, 99)`, spotNumber)
	if err != nil {
		t.Fatalf("insert spot: %v", err)
	}
	spotID, _ := res.LastInsertId()
	t.Cleanup(func() {
		db.Exec(`DELETE FROM parking_sessions WHERE spot_id = ?`, spotID)
		db.Exec(`DELETE FROM spots WHERE id = ?`, spotID)
	})

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		admitted  int
		conflicts int
		failures  []error
	)
	svc := LedgerService{DB: db}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Enter(ctx, EntryInput{SpotID: spotID, PlateNumber: fmt.Sprintf("RACE%d", i), DurationHours: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case domain.IsConflict(err):
				conflicts++
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected errors: %v", failures)
	}
	if admitted != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 admitted and %d conflicts, got %d and %d", workers-1, admitted, conflicts)
	}

	var active int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_sessions WHERE spot_id = ? AND exit_time > ?`, spotID, time.Now()).Scan(&active); err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected one active session, got %d", active)
	}
}
