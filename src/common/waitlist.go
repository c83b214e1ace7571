package common

import (
	"arr/src/db"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"errors"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"
)

func JoinWaitlist(userID, rackID uint, startTime, endTime time.Time) (*models.Waitlist, error) {
	gdb := db.GetDb()

	conflict, err := findConflictingBooking(gdb, rackID, startTime, endTime, 0)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, utils.NewAPIError(http.StatusBadRequest, "This slot is currently available. Please proceed with booking instead of joining a waitlist.")
	}

	var existing models.Waitlist
	err = gdb.
		Model(&models.Waitlist{}).
		Where("user_id = ? AND rack_id = ? AND desired_start_time = ?", userID, rackID, startTime).
		First(&existing).
		Error
	if err == nil {
		return nil, utils.NewAPIError(http.StatusConflict, "You are already on the waitlist for this time slot.")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := &models.Waitlist{
		UserID:           userID,
		RackID:           rackID,
		DesiredStartTime: startTime,
		DesiredEndTime:   endTime,
		Status:           types.WAITLIST_WAITING,
	}
	if err := gdb.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// PromoteWaitlist notifies everyone waiting on the exact freed slot and
// marks their entries notified. It only alerts: the user must still book
// and race conflict detection like anyone else.
func PromoteWaitlist(rackID uint, startTime, endTime time.Time) error {
	gdb := db.GetDb()
	var waiting []models.Waitlist
	if err := gdb.
		Model(&models.Waitlist{}).
		Preload("User").
		Preload("Rack").
		Where("rack_id = ? AND desired_start_time = ? AND desired_end_time = ? AND status = ?",
			rackID, startTime, endTime, types.WAITLIST_WAITING).
		Find(&waiting).
		Error; err != nil {
		return err
	}
	if len(waiting) == 0 {
		return nil
	}
	log.Printf("Found %d user(s) on the waitlist for rack [%d]\n", len(waiting), rackID)

	notified := make([]uint, 0, len(waiting))
	for _, entry := range waiting {
		if entry.User != nil && entry.Rack != nil {
			if err := SendWaitlistSlotFreedEmail(entry.User, entry.Rack, startTime, endTime); err != nil {
				log.Printf("Failed to notify waitlisted user [%d]: %s\n", entry.UserID, err.Error())
			}
		}
		notified = append(notified, entry.ID)
	}

	if err := gdb.
		Model(&models.Waitlist{}).
		Where("id IN (?)", notified).
		Update("status", types.WAITLIST_NOTIFIED).
		Error; err != nil {
		return err
	}
	return nil
}
