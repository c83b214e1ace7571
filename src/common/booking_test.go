package common

import (
	"errors"
	"testing"
	"time"

	"arr/src/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestComputeTokenCost(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Should charge per full hour", func(t *testing.T) {
		cost := ComputeTokenCost(base, base.Add(2*time.Hour), 100)
		assert.Equal(t, uint(200), cost)
	})

	t.Run("Should round partial hours up", func(t *testing.T) {
		cost := ComputeTokenCost(base, base.Add(90*time.Minute), 100)
		assert.Equal(t, uint(150), cost)

		cost = ComputeTokenCost(base, base.Add(66*time.Minute), 100)
		assert.Equal(t, uint(110), cost)
	})

	t.Run("Should fall back to the default hourly rate", func(t *testing.T) {
		cost := ComputeTokenCost(base, base.Add(time.Hour), 0)
		assert.Equal(t, uint(100), cost)
	})

	t.Run("Should use the rack's own rate", func(t *testing.T) {
		cost := ComputeTokenCost(base, base.Add(time.Hour), 250)
		assert.Equal(t, uint(250), cost)
	})
}

func TestRefundForCancellation(t *testing.T) {
	t.Run("Should refund in full at exactly the window boundary", func(t *testing.T) {
		assert.Equal(t, uint(100), RefundForCancellation(100, 4.0))
	})

	t.Run("Should refund in full well before the window", func(t *testing.T) {
		assert.Equal(t, uint(333), RefundForCancellation(333, 48))
	})

	t.Run("Should refund half inside the window", func(t *testing.T) {
		assert.Equal(t, uint(50), RefundForCancellation(100, 3.99))
	})

	t.Run("Should round odd half-refunds down", func(t *testing.T) {
		assert.Equal(t, uint(50), RefundForCancellation(101, 1))
		assert.Equal(t, uint(75), RefundForCancellation(151, 0.5))
	})

	t.Run("Should refund nothing from a zero-cost booking", func(t *testing.T) {
		assert.Equal(t, uint(0), RefundForCancellation(0, 1))
	})
}

// waitForExpectations blocks until every expectation on the mock has been
// consumed, so assertions do not race the post-commit goroutines.
func waitForExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for mock.ExpectationsWereMet() != nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestCancelBooking(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	start := now.Add(48 * time.Hour)
	end := start.Add(2 * time.Hour)

	bookingColumns := []string{"id", "user_id", "rack_id", "start_time", "end_time", "token_cost", "status"}

	t.Run("Should refuse a booking that is no longer confirmed", func(t *testing.T) {
		mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "bookings".*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(7, 1, 3, start, end, 200, "cancelled"))
		mock.ExpectRollback()

		_, err := CancelBooking(1, 7, now, false)

		var apiErr *utils.APIError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 400, apiErr.Status)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("Should not refund when the status flip loses a concurrent cancel", func(t *testing.T) {
		mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "bookings".*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(7, 1, 3, start, end, 200, "confirmed"))
		// The other cancel committed first: the guarded flip matches no row
		mock.ExpectExec(`UPDATE "bookings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		refund, err := CancelBooking(1, 7, now, false)

		assert.Equal(t, uint(0), refund)
		var apiErr *utils.APIError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 409, apiErr.Status)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("Should flip the status and credit the refund exactly once", func(t *testing.T) {
		mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "bookings".*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(7, 1, 3, start, end, 200, "confirmed"))
		mock.ExpectExec(`UPDATE "bookings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "users" SET "tokens"=tokens \+ \$1`).
			WithArgs(int64(200), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT \* FROM "waitlists"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		refund, err := CancelBooking(1, 7, now, false)

		assert.Nil(t, err)
		assert.Equal(t, uint(200), refund)
		waitForExpectations(t, mock)
	})
}
