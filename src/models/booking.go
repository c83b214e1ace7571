package models

import (
	"arr/src/types"
	"time"
)

// AccessSession is the remote-access descriptor embedded on a booking while
// a NoVNC bridge process is bound to it.
type AccessSession struct {
	URL       string     `json:"url,omitempty"`
	Port      int        `json:"port,omitempty"`
	PID       int        `json:"-"`
	IsActive  bool       `json:"is_active"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type Booking struct {
	ID        uint                `gorm:"primarykey" json:"id"`
	UserID    uint                `json:"user_id,omitempty"`
	RackID    uint                `gorm:"uniqueIndex:idx_rack_slot" json:"rack_id,omitempty"`
	StartTime time.Time           `gorm:"uniqueIndex:idx_rack_slot" json:"start_time,omitempty"`
	EndTime   time.Time           `gorm:"uniqueIndex:idx_rack_slot" json:"end_time,omitempty"`
	TokenCost uint                `json:"token_cost,omitempty"`
	Status    types.BookingStatus `gorm:"default:'confirmed'" json:"status,omitempty"`
	Session   AccessSession       `gorm:"embedded;embeddedPrefix:session_" json:"session,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Rack *Rack `gorm:"foreignKey:rack_id" json:"rack,omitempty"`

	types.Timestamps
}
