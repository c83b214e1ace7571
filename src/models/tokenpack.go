package models

import "arr/src/types"

type TokenPack struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	TokensGranted uint   `json:"tokens_granted,omitempty"`
	Price         uint   `json:"price,omitempty"` // smallest currency unit
	Currency      string `gorm:"default:'USD'" json:"currency,omitempty"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`

	types.Timestamps
}
