package common

import (
	"arr/src/types"
	"arr/src/utils"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestLockRacks(t *testing.T) {
	t.Run("Should serialize callers regardless of rack order", func(t *testing.T) {
		unlock := lockRacks(4, 3)

		done := make(chan struct{})
		go func() {
			u := lockRacks(3, 4)
			u()
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("second caller acquired the rack locks while they were held")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("second caller never acquired the rack locks")
		}
	})
}

func TestAdminUpdateBooking(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	start := now.Add(48 * time.Hour)
	end := start.Add(2 * time.Hour)

	bookingColumns := []string{"id", "user_id", "rack_id", "start_time", "end_time", "token_cost", "status"}

	t.Run("Should lock the booking row and reject a conflicting move", func(t *testing.T) {
		mock := newMockDB(t)
		mock.ExpectQuery(`SELECT "id","rack_id" FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "rack_id"}).AddRow(7, 3))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "bookings".*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(7, 1, 3, start, end, 200, "confirmed"))
		mock.ExpectQuery(`SELECT \* FROM "racks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "token_cost_per_hour"}).
				AddRow(4, "Rack B", 100))
		// The target rack already has a confirmed booking in the window
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(9, 2, 4, start, end, 200, "confirmed"))
		mock.ExpectRollback()

		newRack := uint(4)
		_, err := AdminUpdateBooking(7, &types.AdminUpdateBookingRequestBody{RackID: &newRack}, now)

		var apiErr *utils.APIError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 409, apiErr.Status)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("Should fail fast when the booking does not exist", func(t *testing.T) {
		mock := newMockDB(t)
		mock.ExpectQuery(`SELECT "id","rack_id" FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "rack_id"}))

		_, err := AdminUpdateBooking(7, &types.AdminUpdateBookingRequestBody{}, now)

		var apiErr *utils.APIError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 404, apiErr.Status)
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}
