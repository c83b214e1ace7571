package common

import (
	"arr/src/db"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminCreateBooking books a slot on behalf of a user. Unlike self-service
// booking the start time may be in the past, but the window still has to be
// well-formed, conflict-free, and paid for out of the user's balance.
func AdminCreateBooking(userID, rackID uint, startTime, endTime time.Time) (*models.Booking, error) {
	if !startTime.Before(endTime) {
		return nil, utils.NewAPIError(http.StatusBadRequest, "End time must be after start time.")
	}

	lock := rackLock(rackID)
	lock.Lock()
	defer lock.Unlock()

	var booking *models.Booking
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "User not found.")
			}
			return err
		}
		var rack models.Rack
		if err := tx.First(&rack, rackID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Rack not found.")
			}
			return err
		}

		conflict, err := findConflictingBooking(tx, rackID, startTime, endTime, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return utils.NewAPIError(http.StatusConflict, "This time slot is already booked. Please select another time.")
		}

		tokenCost := ComputeTokenCost(startTime, endTime, rack.TokenCostPerHour)
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
		return tx.Create(booking).Error
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// AdminUpdateBooking rewrites a booking in place. Token movements are
// settled as a net operation inside one transaction: the previous payer is
// refunded the old cost and the new payer is charged the new cost. When the
// payer is unchanged only the difference moves, so an identical window
// costs nothing to re-save.
func AdminUpdateBooking(bookingID uint, body *types.AdminUpdateBookingRequestBody, now time.Time) (*models.Booking, error) {
	// Learn the racks involved first, then serialize against concurrent
	// booking creation on both before running the conflict check.
	var current models.Booking
	if err := db.GetDb().
		Model(&models.Booking{}).
		Select("id", "rack_id").
		Where("id = ?", bookingID).
		First(&current).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAPIError(http.StatusNotFound, "Booking not found.")
		}
		return nil, err
	}
	targetRackID := current.RackID
	if body.RackID != nil {
		targetRackID = *body.RackID
	}
	unlock := lockRacks(current.RackID, targetRackID)
	defer unlock()

	var booking models.Booking
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID).
			First(&booking).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Booking not found.")
			}
			return err
		}
		if booking.Status != types.BOOKING_CONFIRMED {
			return utils.NewAPIError(http.StatusBadRequest, "Only confirmed bookings can be updated.")
		}

		newUserID := booking.UserID
		if body.UserID != nil {
			newUserID = *body.UserID
		}
		newRackID := booking.RackID
		if body.RackID != nil {
			newRackID = *body.RackID
		}
		newStart := booking.StartTime
		if body.StartTime != nil {
			parsed, err := utils.ParseRequestTime(*body.StartTime)
			if err != nil {
				return utils.NewAPIError(http.StatusBadRequest, "Invalid start_time format.")
			}
			newStart = parsed
		}
		newEnd := booking.EndTime
		if body.EndTime != nil {
			parsed, err := utils.ParseRequestTime(*body.EndTime)
			if err != nil {
				return utils.NewAPIError(http.StatusBadRequest, "Invalid end_time format.")
			}
			newEnd = parsed
		}
		if !newStart.Before(newEnd) {
			return utils.NewAPIError(http.StatusBadRequest, "End time must be after start time.")
		}
		if body.Status != nil {
			status := types.BookingStatus(*body.Status)
			if status != types.BOOKING_CONFIRMED && status != types.BOOKING_CANCELLED && status != types.BOOKING_COMPLETED {
				return utils.NewAPIError(http.StatusBadRequest, "Invalid booking status.")
			}
			booking.Status = status
		}

		var rack models.Rack
		if err := tx.First(&rack, newRackID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Rack not found.")
			}
			return err
		}

		conflict, err := findConflictingBooking(tx, newRackID, newStart, newEnd, booking.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return utils.NewAPIError(http.StatusConflict, "This time slot is already booked. Please select another time.")
		}

		newCost := ComputeTokenCost(newStart, newEnd, rack.TokenCostPerHour)
		oldCost := booking.TokenCost

		if newUserID != booking.UserID {
			if err := DebitTokens(tx, newUserID, int64(newCost)); err != nil {
				if errors.Is(err, ErrInsufficientTokens) {
					return utils.NewAPIError(http.StatusPaymentRequired, "New user has insufficient tokens.")
				}
				return err
			}
			if err := CreditTokens(tx, booking.UserID, int64(oldCost)); err != nil {
				return err
			}
		} else if newCost > oldCost {
			if err := DebitTokens(tx, booking.UserID, int64(newCost-oldCost)); err != nil {
				return err
			}
		} else if newCost < oldCost {
			if err := CreditTokens(tx, booking.UserID, int64(oldCost-newCost)); err != nil {
				return err
			}
		}

		booking.UserID = newUserID
		booking.RackID = newRackID
		booking.StartTime = newStart
		booking.EndTime = newEnd
		booking.TokenCost = newCost
		return tx.Save(&booking).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// AdminDeleteBooking removes a booking outright. A confirmed booking is
// fully refunded regardless of timing; cancelled and completed bookings
// were already settled and just get deleted.
func AdminDeleteBooking(bookingID uint) error {
	return db.GetDb().Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.
			Model(&models.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID).
			First(&booking).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Booking not found.")
			}
			return err
		}
		if booking.Status == types.BOOKING_CONFIRMED {
			if err := CreditTokens(tx, booking.UserID, int64(booking.TokenCost)); err != nil {
				return err
			}
		}
		return tx.Delete(&models.Booking{}, booking.ID).Error
	})
}

// AdjustUserTokens applies a manual balance correction. Positive amounts
// credit, negative amounts debit with the usual floor at zero.
func AdjustUserTokens(userID uint, amount int64) (*models.User, error) {
	var user models.User
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if amount >= 0 {
			if err := CreditTokens(tx, userID, amount); err != nil {
				return err
			}
		} else {
			if err := DebitTokens(tx, userID, -amount); err != nil {
				return err
			}
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type AdminStats struct {
	TotalUsers        int64 `json:"total_users"`
	TotalRacks        int64 `json:"total_racks"`
	ActiveBookings    int64 `json:"active_bookings"`
	CompletedBookings int64 `json:"completed_bookings"`
	TokensInWallets   int64 `json:"tokens_in_wallets"`
	RevenueCollected  int64 `json:"revenue_collected"`
}

func GetAdminStats() (*AdminStats, error) {
	gdb := db.GetDb()
	stats := &AdminStats{}

	if err := gdb.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := gdb.Model(&models.Rack{}).Count(&stats.TotalRacks).Error; err != nil {
		return nil, err
	}
	if err := gdb.
		Model(&models.Booking{}).
		Where("status = ?", types.BOOKING_CONFIRMED).
		Count(&stats.ActiveBookings).
		Error; err != nil {
		return nil, err
	}
	if err := gdb.
		Model(&models.Booking{}).
		Where("status = ?", types.BOOKING_COMPLETED).
		Count(&stats.CompletedBookings).
		Error; err != nil {
		return nil, err
	}
	if err := gdb.
		Model(&models.User{}).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&stats.TokensInWallets).
		Error; err != nil {
		return nil, err
	}
	if err := gdb.
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", types.TRANSACTION_PAID).
		Scan(&stats.RevenueCollected).
		Error; err != nil {
		return nil, err
	}
	return stats, nil
}
