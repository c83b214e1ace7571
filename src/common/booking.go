package common

import (
	"arr/src/config"
	"arr/src/db"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"errors"
	"log"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Booking creation and cancellation serialize per rack: the mutex is held
// across the whole conflict-check-then-write sequence so two concurrent
// requests for the same rack cannot both pass the overlap check. The
// unique (rack_id, start_time, end_time) index is the last-resort guard
// against exact duplicates.
var rackLocks sync.Map

func rackLock(rackID uint) *sync.Mutex {
	lock, _ := rackLocks.LoadOrStore(rackID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// lockRacks locks the distinct rack mutexes in ascending id order, so two
// callers touching the same pair of racks can never deadlock. The returned
// func releases them in reverse order.
func lockRacks(rackIDs ...uint) (unlock func()) {
	ids := make([]uint, 0, len(rackIDs))
	seen := make(map[uint]bool, len(rackIDs))
	for _, id := range rackIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		rackLock(id).Lock()
	}
	return func() {
		for i := len(ids) - 1; i >= 0; i-- {
			rackLock(ids[i]).Unlock()
		}
	}
}

// ComputeTokenCost prices a half-open [start, end) window. Partial hours
// always round up against the user.
func ComputeTokenCost(start, end time.Time, tokensPerHour uint) uint {
	if tokensPerHour == 0 {
		tokensPerHour = config.DEFAULT_TOKENS_PER_HOUR
	}
	durationInHours := end.Sub(start).Hours()
	return uint(math.Ceil(durationInHours * float64(tokensPerHour)))
}

// RefundForCancellation returns the token refund for cancelling a booking
// with the given time left before start. Inside the penalty window only
// half the cost comes back, rounded down in the system's favour.
func RefundForCancellation(tokenCost uint, hoursUntilStart float64) uint {
	if hoursUntilStart < config.CANCELLATION_PENALTY_WINDOW_HOURS {
		return uint(math.Floor(float64(tokenCost) * 0.5))
	}
	return tokenCost
}

// findConflictingBooking reports any confirmed booking on the rack whose
// [start_time, end_time) overlaps the candidate window. excludeID skips a
// booking being updated in place.
func findConflictingBooking(tx *gorm.DB, rackID uint, start, end time.Time, excludeID uint) (*models.Booking, error) {
	var conflict models.Booking
	query := tx.
		Model(&models.Booking{}).
		Where("rack_id = ? AND status = ?", rackID, types.BOOKING_CONFIRMED).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.First(&conflict).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}

func CreateBooking(userID, rackID uint, startTime, endTime, now time.Time) (*models.Booking, error) {
	if !startTime.Before(endTime) {
		return nil, utils.NewAPIError(http.StatusBadRequest, "End time must be after start time.")
	}
	if !startTime.After(now) {
		return nil, utils.NewAPIError(http.StatusBadRequest, "Booking start time must be in the future.")
	}

	lock := rackLock(rackID)
	lock.Lock()
	defer lock.Unlock()

	var booking *models.Booking
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		var rack models.Rack
		if err := tx.
			Model(&models.Rack{}).
			Where("id = ?", rackID).
			First(&rack).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Rack not found or is currently unavailable.")
			}
			return err
		}
		if rack.Status != types.RACK_AVAILABLE {
			return utils.NewAPIError(http.StatusNotFound, "Rack not found or is currently unavailable.")
		}

		conflict, err := findConflictingBooking(tx, rackID, startTime, endTime, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return utils.NewAPIError(http.StatusConflict, "This time slot is already booked. Please select another time.")
		}

		tokenCost := ComputeTokenCost(startTime, endTime, rack.TokenCostPerHour)

		// Debit and booking creation commit or roll back together: a
		// dangling debit with no booking is a data-integrity defect.
		if err := DebitTokens(tx, userID, int64(tokenCost)); err != nil {
			return err
		}

		booking = &models.Booking{
			UserID:    userID,
			RackID:    rackID,
			StartTime: startTime,
			EndTime:   endTime,
			TokenCost: tokenCost,
			Status:    types.BOOKING_CONFIRMED,
		}
		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func CancelBooking(userID, bookingID uint, now time.Time, isAdmin bool) (uint, error) {
	var refundAmount uint
	var booking models.Booking
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		query := tx.
			Model(&models.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID)
		if !isAdmin {
			query = query.Where("user_id = ?", userID)
		}
		if err := query.First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Booking not found or you do not have permission to cancel it.")
			}
			return err
		}
		if booking.Status != types.BOOKING_CONFIRMED {
			return utils.NewAPIError(http.StatusBadRequest, "Cannot cancel a booking with status '"+string(booking.Status)+"'.")
		}
		if booking.StartTime.Before(now) {
			return utils.NewAPIError(http.StatusBadRequest, "Cannot cancel a booking that has already started.")
		}

		// Flip the status before crediting. The status predicate makes a
		// concurrent cancel lose here instead of refunding a second time.
		res := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, types.BOOKING_CONFIRMED).
			Update("status", types.BOOKING_CANCELLED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewAPIError(http.StatusConflict, "Booking status changed. Please refresh and try again.")
		}

		hoursUntilBooking := booking.StartTime.Sub(now).Hours()
		refundAmount = RefundForCancellation(booking.TokenCost, hoursUntilBooking)

		return CreditTokens(tx, booking.UserID, int64(refundAmount))
	})
	if err != nil {
		return 0, err
	}

	// Best-effort: a failed promotion must never undo the cancellation
	go func() {
		if err := PromoteWaitlist(booking.RackID, booking.StartTime, booking.EndTime); err != nil {
			log.Printf("Failed to process waitlist notifications after cancellation: %s\n", err.Error())
		}
	}()

	return refundAmount, nil
}

type BookedSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// GetRackAvailability lists confirmed intervals on the rack that overlap
// the requested range.
func GetRackAvailability(rackID uint, rangeStart, rangeEnd time.Time) ([]BookedSlot, error) {
	slots := make([]BookedSlot, 0)
	err := db.GetDb().
		Model(&models.Booking{}).
		Select("start_time", "end_time").
		Where("rack_id = ? AND status = ?", rackID, types.BOOKING_CONFIRMED).
		Where("start_time < ? AND end_time > ?", rangeEnd, rangeStart).
		Order("start_time asc").
		Find(&slots).
		Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// UpdateExpiredBookings transitions confirmed bookings whose window has
// elapsed to completed, firing a best-effort completion email per booking.
// Only confirmed rows are selected, so re-running is a no-op.
func UpdateExpiredBookings(now time.Time) error {
	db := db.GetDb()
	var expired []models.Booking
	if err := db.
		Model(&models.Booking{}).
		Preload("User").
		Preload("Rack").
		Where("status = ? AND end_time < ?", types.BOOKING_CONFIRMED, now).
		Find(&expired).
		Error; err != nil {
		log.Printf("Error retrieving expired bookings: %s\n", err.Error())
		return err
	}

	for _, booking := range expired {
		if err := db.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, types.BOOKING_CONFIRMED).
			Update("status", types.BOOKING_COMPLETED).
			Error; err != nil {
			log.Printf("Error completing booking [%d]: %s\n", booking.ID, err.Error())
			continue
		}
		if booking.User != nil && booking.Rack != nil {
			if err := SendBookingCompletionEmail(booking.User, &booking, booking.Rack); err != nil {
				log.Printf("Failed to send completion email for booking [%d]: %s\n", booking.ID, err.Error())
			}
		}
	}
	return nil
}
