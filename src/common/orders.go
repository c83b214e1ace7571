package common

import (
	"arr/src/db"
	"arr/src/lib"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderDetails struct {
	OrderID       string    `json:"order_id"`
	Amount        uint      `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

func CreateTokenPurchaseOrder(ctx context.Context, userID, tokenPackID uint) (*OrderDetails, error) {
	gdb := db.GetDb()

	var pack models.TokenPack
	if err := gdb.
		Model(&models.TokenPack{}).
		Where("id = ? AND is_active = ?", tokenPackID, true).
		First(&pack).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAPIError(http.StatusNotFound, "Token Pack not found.")
		}
		return nil, err
	}

	provider := lib.GetPaymentProvider()
	receipt := fmt.Sprintf("receipt_order_%s", uuid.New().String())
	order, err := provider.CreateOrder(ctx, pack.Price, pack.Currency, receipt)
	if err != nil {
		log.Printf("Error creating payment order: %s\n", err.Error())
		return nil, utils.NewAPIError(http.StatusServiceUnavailable, "Payment provider is not available. Please try again later.")
	}

	transaction := &models.Transaction{
		UserID:      userID,
		TokenPackID: tokenPackID,
		Amount:      pack.Price,
		Currency:    pack.Currency,
		OrderID:     order.ID,
		Status:      types.TRANSACTION_CREATED,
	}
	if err := gdb.Create(transaction).Error; err != nil {
		return nil, err
	}

	return &OrderDetails{
		OrderID:       order.ID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		TransactionID: transaction.ID,
	}, nil
}

// VerifyPaymentAndSettle validates a signed payment confirmation and
// credits the purchased tokens. Settling an already-paid transaction is a
// no-op: payment providers retry webhooks, and a retry must never
// double-credit.
func VerifyPaymentAndSettle(orderID, paymentID, signature string) (*models.Transaction, error) {
	if !lib.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, utils.NewAPIError(http.StatusBadRequest, "Invalid signature. Payment verification failed.")
	}

	var transaction models.Transaction
	alreadyPaid := false
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Model(&models.Transaction{}).
			Where("order_id = ?", orderID).
			First(&transaction).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Transaction not found for this order.")
			}
			return err
		}
		if transaction.Status == types.TRANSACTION_PAID {
			alreadyPaid = true
			return nil
		}

		var pack models.TokenPack
		if err := tx.
			Model(&models.TokenPack{}).
			Where("id = ?", transaction.TokenPackID).
			First(&pack).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAPIError(http.StatusNotFound, "Associated Token Pack not found.")
			}
			return err
		}

		if err := CreditTokens(tx, transaction.UserID, int64(pack.TokensGranted)); err != nil {
			return err
		}
		if err := tx.
			Model(&models.Transaction{}).
			Where("id = ?", transaction.ID).
			Updates(&models.Transaction{
				Status:    types.TRANSACTION_PAID,
				PaymentID: paymentID,
				Signature: signature,
			}).
			Error; err != nil {
			return err
		}
		transaction.Status = types.TRANSACTION_PAID
		transaction.PaymentID = paymentID
		transaction.Signature = signature
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		log.Printf("Transaction for order %s already settled. Skipping credit\n", orderID)
		return &transaction, nil
	}

	go sendReceiptEmail(&transaction)

	return &transaction, nil
}

func sendReceiptEmail(transaction *models.Transaction) {
	gdb := db.GetDb()
	var user models.User
	var pack models.TokenPack
	if err := gdb.First(&user, transaction.UserID).Error; err != nil {
		log.Printf("Could not load user for receipt email: %s\n", err.Error())
		return
	}
	if err := gdb.First(&pack, transaction.TokenPackID).Error; err != nil {
		log.Printf("Could not load token pack for receipt email: %s\n", err.Error())
		return
	}
	if err := SendPaymentReceiptEmail(&user, &pack, transaction); err != nil {
		log.Printf("Failed to send payment receipt email: %s\n", err.Error())
	}
}

// MarkTransactionFailed records a gateway-reported failure. Paid
// transactions are left alone: a late failure event must not claw back a
// settled credit.
func MarkTransactionFailed(orderID string) error {
	res := db.GetDb().
		Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, types.TRANSACTION_CREATED).
		Update("status", types.TRANSACTION_FAILED)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("No pending transaction for order %s to mark failed\n", orderID)
	}
	return nil
}
