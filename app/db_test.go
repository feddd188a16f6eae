package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// withMockDB swaps the package-global db for a mock for the test's duration.
func withMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	prev := db
	db = mockDB
	t.Cleanup(func() {
		db = prev
		mockDB.Close()
	})
	return mock
}

func TestUpgradeProfileToPro(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("pro", 500, "cus_123", "sub_123", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := upgradeProfileToPro(context.Background(), "user-1", 500, "cus_123", "sub_123"); err != nil {
		t.Fatalf("upgradeProfileToPro: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDowngradeProfileBySubscription(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectExec(`UPDATE profiles`).
		WithArgs("free", 10, "sub_123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := downgradeProfileBySubscription(context.Background(), "sub_123", 10); err != nil {
		t.Fatalf("downgradeProfileBySubscription: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIncrementGenerationsUsedIsSingleAtomicUpdate(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectExec(`SET generations_used = generations_used \+ 1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := incrementGenerationsUsed(context.Background(), "user-1"); err != nil {
		t.Fatalf("incrementGenerationsUsed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIncrementGenerationsUsedUnknownUser(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectExec(`SET generations_used = generations_used \+ 1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := incrementGenerationsUsed(context.Background(), "ghost")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for missing profile, got %v", err)
	}
}
