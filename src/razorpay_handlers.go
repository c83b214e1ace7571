package main

import (
	"arr/src/common"
	"arr/src/lib"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

func razorpayWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/razorpay", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		signature := ctx.GetHeader("X-Razorpay-Signature")
		if !lib.VerifyWebhookSignature(payload, signature) {
			log.Println("Error verifying webhook signature")
			ctx.Status(http.StatusBadRequest)
			return
		}
		event := gjson.GetBytes(payload, "event").String()
		log.Printf("[RazorpayEvent] %s\n", event)
		switch event {
		case "payment.captured":
			entity := gjson.GetBytes(payload, "payload.payment.entity")
			orderId := entity.Get("order_id").String()
			paymentId := entity.Get("id").String()
			if orderId == "" || paymentId == "" {
				log.Println("[Razorpay] payment.captured event missing order or payment id")
				break
			}
			// The webhook carries no per-payment signature, so settle via
			// a freshly computed one. Settlement is idempotent either way
			sig := lib.SignPayment(orderId, paymentId)
			if _, err := common.VerifyPaymentAndSettle(orderId, paymentId, sig); err != nil {
				log.Printf("[Razorpay] Error settling order [%s]: %s\n", orderId, err.Error())
			}
		case "payment.failed":
			entity := gjson.GetBytes(payload, "payload.payment.entity")
			orderId := entity.Get("order_id").String()
			if err := common.MarkTransactionFailed(orderId); err != nil {
				log.Printf("[Razorpay] Error marking order [%s] failed: %s\n", orderId, err.Error())
			}
		default:
			log.Printf("[Razorpay] Unhandled event type: %s\n", event)
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
