package common

import (
	"arr/src/lib"
	"arr/src/models"
	"fmt"
	"os"
	"time"
)

func emailFrom() (string, string) {
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "no-reply@acirackrentals.com"
	}
	return from, "ACI Rack Rentals"
}

func SendBookingCompletionEmail(user *models.User, booking *models.Booking, rack *models.Rack) error {
	from, fromName := emailFrom()
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking on rack %q has ended.\n\nStart: %s\nEnd: %s\nTokens spent: %d\n\nThank you for using ACI Rack Rentals.",
		user.FirstName, rack.Name,
		booking.StartTime.Format(time.RFC1123),
		booking.EndTime.Format(time.RFC1123),
		booking.TokenCost,
	)
	return lib.SendMail(&lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("Your booking on %s is complete", rack.Name),
		Body:     body,
	})
}

func SendWaitlistSlotFreedEmail(user *models.User, rack *models.Rack, startTime, endTime time.Time) error {
	from, fromName := emailFrom()
	body := fmt.Sprintf(
		"Hi %s,\n\nA slot you were waiting for on rack %q from %s to %s is now available!\n\nBook it before someone else does.",
		user.FirstName, rack.Name,
		startTime.Format(time.RFC1123),
		endTime.Format(time.RFC1123),
	)
	return lib.SendMail(&lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("A slot on %s just opened up", rack.Name),
		Body:     body,
	})
}

func SendPaymentReceiptEmail(user *models.User, pack *models.TokenPack, txn *models.Transaction) error {
	from, fromName := emailFrom()
	body := fmt.Sprintf(
		"Hi %s,\n\nYour purchase of %q was successful.\n\nTokens credited: %d\nAmount: %d %s\nOrder: %s\n\nThank you for using ACI Rack Rentals.",
		user.FirstName, pack.Name, pack.TokensGranted, txn.Amount, txn.Currency, txn.OrderID,
	)
	return lib.SendMail(&lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{user.Email},
		Subject:  "Payment received",
		Body:     body,
	})
}
