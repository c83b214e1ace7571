package main

import (
	"arr/src/common"
	"arr/src/db"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			// Sweep first so a booking whose window just elapsed never shows
			// up as confirmed in the listing
			if err := common.UpdateExpiredBookings(time.Now()); err != nil {
				log.Printf("Error sweeping expired bookings: %s\n", err.Error())
			}
			var bookings []models.Booking
			err := db.GetDb().
				Model(&models.Booking{}).
				Preload("Rack").
				Where("user_id = ?", userId).
				Order("start_time desc").
				Scopes(utils.Paginate(ctx)).
				Find(&bookings).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			userId := ctx.GetUint("id")
			var booking models.Booking
			if err := db.GetDb().
				Model(&models.Booking{}).
				Preload("Rack").
				Where("id = ? AND user_id = ?", params.ID, userId).
				First(&booking).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Booking not found."})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			startTime, err := utils.ParseRequestTime(body.StartTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_time format."})
				return
			}
			endTime, err := utils.ParseRequestTime(body.EndTime)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_time format."})
				return
			}

			userId := ctx.GetUint("id")
			booking, err := common.CreateBooking(userId, body.RackID, startTime, endTime, time.Now())
			if err != nil {
				log.Printf("Error creating booking for user [%d]: %s\n", userId, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			refund, err := common.CancelBooking(userId, params.ID, time.Now(), false)
			if err != nil {
				log.Printf("Error cancelling booking [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"refunded_tokens": refund})
		})
	return g
}
