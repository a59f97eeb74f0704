package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"farm2go/internal/model"
	"farm2go/pkg/utils"
)

func setupTransactionTestDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}

	return gormDB, mock, nil
}

func TestTransactionRepository_Create(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)

	txn := &model.Transaction{
		OrderID: 1,
		Amount:  13000,
		Status:  model.TransactionStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = repo.Create(context.Background(), txn)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepository_GetByOrderID(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "order_id", "amount", "status"}).
		AddRow(1, 1, 13000, model.TransactionStatusPending)

	mock.ExpectQuery("SELECT \\* FROM `transactions` WHERE order_id = \\? ORDER BY `transactions`.`id` LIMIT \\?").
		WithArgs(uint64(1), 1).
		WillReturnRows(rows)

	txn, err := repo.GetByOrderID(context.Background(), 1)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if txn == nil || txn.Amount != 13000 {
		t.Errorf("Unexpected transaction %+v", txn)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepository_GetByOrderID_NotFound(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `transactions` WHERE order_id = \\? ORDER BY `transactions`.`id` LIMIT \\?").
		WithArgs(uint64(999), 1).
		WillReturnError(gorm.ErrRecordNotFound)

	txn, err := repo.GetByOrderID(context.Background(), 999)
	if !errors.Is(err, utils.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
	if txn != nil {
		t.Error("Expected nil transaction, got non-nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepository_UpdateStatus_Completed(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)

	// Completion writes both status and paid_at.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `transactions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.UpdateStatus(context.Background(), 1, model.TransactionStatusCompleted)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `transactions` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = repo.UpdateStatus(context.Background(), 999, model.TransactionStatusFailed)
	if !errors.Is(err, utils.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepository_Complete(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)
	method := model.PaymentMethodGCash

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `transactions` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Complete(context.Background(), 1, &method)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepository_Complete_AlreadyClosed(t *testing.T) {
	db, mock, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewTransactionRepository(db)

	// The pending predicate matched no row.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `transactions` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = repo.Complete(context.Background(), 1, nil)
	if !errors.Is(err, utils.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestTransactionRepositoryInterface(t *testing.T) {
	db, _, err := setupTransactionTestDB()
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	var _ TransactionRepository = NewTransactionRepository(db)
}
