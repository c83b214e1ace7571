package models

import "arr/src/types"

type User struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password  string `json:"-"`
	Role      string `gorm:"default:'user'" json:"role,omitempty"`
	Tokens    int64  `gorm:"not null;default:0;check:tokens >= 0" json:"tokens"`
	IsActive  bool   `gorm:"default:true" json:"is_active,omitempty"`

	Bookings     []Booking     `gorm:"foreignKey:user_id" json:"bookings,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:user_id" json:"transactions,omitempty"`

	types.Timestamps
}
