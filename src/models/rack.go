package models

import "arr/src/types"

type VNCConnection struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Password string `json:"-"`
}

type Rack struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	Name             string           `json:"name,omitempty"`
	Slug             string           `gorm:"uniqueIndex" json:"slug,omitempty"`
	Description      string           `json:"description,omitempty"`
	Location         string           `json:"location,omitempty"`
	Status           types.RackStatus `gorm:"default:'available'" json:"status,omitempty"`
	DeviceID         string           `gorm:"uniqueIndex" json:"device_id,omitempty"`
	TokenCostPerHour uint             `json:"token_cost_per_hour,omitempty"`
	VNCConnection    VNCConnection    `gorm:"embedded;embeddedPrefix:vnc_" json:"vnc_connection,omitempty"`

	Bookings []Booking `gorm:"foreignKey:rack_id" json:"bookings,omitempty"`

	types.Timestamps
}
