package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockUpdateRejectsQuantityBelowBooked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewStockRepo(db)

	mock.ExpectQuery("SELECT of.owner_user_id").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}).AddRow(7))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\),0\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(5))

	qty := int32(3)
	err = repo.Update(context.Background(), 7, 3, 1500, &qty, nil, nil)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet(), "the UPDATE must never run")
}

func TestStockUpdateAllowsQuantityCoveringBooked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewStockRepo(db)

	mock.ExpectQuery("SELECT of.owner_user_id").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}).AddRow(7))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\),0\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(5))
	mock.ExpectExec("UPDATE stocks SET price_cents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	qty := int32(5)
	limit := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	err = repo.Update(context.Background(), 7, 3, 1500, &qty, nil, &limit)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockUpdateUnlimitedSkipsBookedCheck(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewStockRepo(db)

	mock.ExpectQuery("SELECT of.owner_user_id").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}).AddRow(7))
	mock.ExpectExec("UPDATE stocks SET price_cents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Update(context.Background(), 7, 3, 1500, nil, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStockUpdateForeignOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewStockRepo(db)

	mock.ExpectQuery("SELECT of.owner_user_id").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}).AddRow(99))

	qty := int32(5)
	err = repo.Update(context.Background(), 7, 3, 1500, &qty, nil, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
