package models

import (
	"arr/src/types"
	"time"
)

type Waitlist struct {
	ID               uint                 `gorm:"primarykey" json:"id"`
	UserID           uint                 `gorm:"uniqueIndex:idx_user_rack_slot" json:"user_id,omitempty"`
	RackID           uint                 `gorm:"uniqueIndex:idx_user_rack_slot" json:"rack_id,omitempty"`
	DesiredStartTime time.Time            `gorm:"uniqueIndex:idx_user_rack_slot" json:"desired_start_time,omitempty"`
	DesiredEndTime   time.Time            `json:"desired_end_time,omitempty"`
	Status           types.WaitlistStatus `gorm:"default:'waiting'" json:"status,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Rack *Rack `gorm:"foreignKey:rack_id" json:"rack,omitempty"`

	types.Timestamps
}
