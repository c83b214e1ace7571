package common

import (
	"arr/src/models"
	"arr/src/utils"
	"net/http"

	"gorm.io/gorm"
)

var ErrInsufficientTokens = utils.NewAPIError(http.StatusPaymentRequired, "Insufficient token balance to make this booking.")

// CreditTokens adds tokens to a user's balance within the caller's
// transaction.
func CreditTokens(tx *gorm.DB, userID uint, amount int64) error {
	res := tx.
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("tokens", gorm.Expr("tokens + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewAPIError(http.StatusNotFound, "User not found.")
	}
	return nil
}

// DebitTokens removes tokens from a user's balance within the caller's
// transaction. The WHERE guard is the final defence against a negative
// balance: callers pre-check sufficiency, but a concurrent debit between
// check and write still fails here instead of going negative.
func DebitTokens(tx *gorm.DB, userID uint, amount int64) error {
	res := tx.
		Model(&models.User{}).
		Where("id = ? AND tokens >= ?", userID, amount).
		UpdateColumn("tokens", gorm.Expr("tokens - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientTokens
	}
	return nil
}
