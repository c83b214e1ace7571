package main

import (
	"arr/src/common"
	"arr/src/db"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func orderHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/token-packs", func(ctx *gin.Context) {
			var packs []models.TokenPack
			err := db.GetDb().
				Model(&models.TokenPack{}).
				Where("is_active = ?", true).
				Order("price asc").
				Find(&packs).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": packs, "count": len(packs)})
		}).
		GET("/transactions", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var transactions []models.Transaction
			err := db.GetDb().
				Model(&models.Transaction{}).
				Preload("TokenPack").
				Where("user_id = ?", userId).
				Order("created_at desc").
				Scopes(utils.Paginate(ctx)).
				Find(&transactions).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactions, "count": len(transactions)})
		}).
		POST("/orders", func(ctx *gin.Context) {
			var body types.CreateOrderRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			order, err := common.CreateTokenPurchaseOrder(ctx.Copy(), userId, body.TokenPackID)
			if err != nil {
				log.Printf("Error creating order for user [%d]: %s\n", userId, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": order})
		}).
		POST("/orders/verify", func(ctx *gin.Context) {
			var body types.VerifyPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			transaction, err := common.VerifyPaymentAndSettle(body.OrderID, body.PaymentID, body.Signature)
			if err != nil {
				log.Printf("Error verifying payment for order [%s]: %s\n", body.OrderID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transaction})
		})
	return g
}
