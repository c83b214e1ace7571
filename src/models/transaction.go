package models

import (
	"arr/src/types"

	"github.com/google/uuid"
)

type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	UserID      uint                    `json:"user_id,omitempty"`
	TokenPackID uint                    `json:"token_pack_id,omitempty"`
	Amount      uint                    `json:"amount,omitempty"`
	Currency    string                  `json:"currency,omitempty"`
	Status      types.TransactionStatus `gorm:"default:'created'" json:"status,omitempty"`
	OrderID     string                  `gorm:"uniqueIndex" json:"order_id,omitempty"`
	PaymentID   string                  `json:"payment_id,omitempty"`
	Signature   string                  `json:"-"`

	User      *User      `gorm:"foreignKey:user_id" json:"user,omitempty"`
	TokenPack *TokenPack `gorm:"foreignKey:token_pack_id" json:"token_pack,omitempty"`

	types.Timestamps
}
