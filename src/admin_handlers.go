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
	"github.com/gosimple/slug"
)

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g = adminRackHandlers(g)
	g = adminTokenPackHandlers(g)
	g = adminUserHandlers(g)
	g = adminBookingHandlers(g)

	g.
		GET("/waitlist", func(ctx *gin.Context) {
			var entries []models.Waitlist
			err := db.GetDb().
				Model(&models.Waitlist{}).
				Preload("User").
				Preload("Rack").
				Order("created_at desc").
				Scopes(utils.Paginate(ctx)).
				Find(&entries).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
		}).
		GET("/transactions", func(ctx *gin.Context) {
			var transactions []models.Transaction
			err := db.GetDb().
				Model(&models.Transaction{}).
				Preload("User").
				Preload("TokenPack").
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
		GET("/stats", func(ctx *gin.Context) {
			stats, err := common.GetAdminStats()
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": stats})
		})
	return g
}

func adminRackHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/racks", func(ctx *gin.Context) {
			var racks []models.Rack
			err := db.GetDb().
				Model(&models.Rack{}).
				Order("name asc").
				Scopes(utils.Paginate(ctx)).
				Find(&racks).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": racks, "count": len(racks)})
		}).
		POST("/racks", func(ctx *gin.Context) {
			var body types.CreateRackRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rack := models.Rack{
				Name:             body.Name,
				Slug:             slug.Make(body.Name),
				Description:      body.Description,
				Location:         body.Location,
				DeviceID:         body.DeviceID,
				TokenCostPerHour: body.TokenCostPerHour,
				Status:           types.RACK_AVAILABLE,
			}
			if body.Status != "" {
				rack.Status = types.RackStatus(body.Status)
			}
			if body.VNCConnection != nil {
				rack.VNCConnection = models.VNCConnection{
					Host:     body.VNCConnection.Host,
					Port:     body.VNCConnection.Port,
					Password: body.VNCConnection.Password,
				}
			}
			if err := db.GetDb().Create(&rack).Error; err != nil {
				log.Printf("Error creating rack: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			invalidateRackCatalogCache()
			ctx.JSON(http.StatusCreated, gin.H{"data": rack})
		}).
		PUT("/racks/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateRackRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			gdb := db.GetDb()
			var rack models.Rack
			if err := gdb.First(&rack, params.ID).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Rack not found."})
				return
			}
			if body.Name != nil {
				rack.Name = *body.Name
				rack.Slug = slug.Make(*body.Name)
			}
			if body.Description != nil {
				rack.Description = *body.Description
			}
			if body.Location != nil {
				rack.Location = *body.Location
			}
			if body.Status != nil {
				rack.Status = types.RackStatus(*body.Status)
			}
			if body.DeviceID != nil {
				rack.DeviceID = *body.DeviceID
			}
			if body.TokenCostPerHour != nil {
				rack.TokenCostPerHour = *body.TokenCostPerHour
			}
			if body.VNCConnection != nil {
				rack.VNCConnection = models.VNCConnection{
					Host:     body.VNCConnection.Host,
					Port:     body.VNCConnection.Port,
					Password: body.VNCConnection.Password,
				}
			}
			if err := gdb.Save(&rack).Error; err != nil {
				log.Printf("Error updating rack [%d]: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			invalidateRackCatalogCache()
			ctx.JSON(http.StatusOK, gin.H{"data": rack})
		}).
		DELETE("/racks/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var count int64
			if err := gdb.
				Model(&models.Booking{}).
				Where("rack_id = ? AND status = ?", params.ID, types.BOOKING_CONFIRMED).
				Count(&count).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			if count > 0 {
				ctx.JSON(http.StatusConflict, gin.H{"error": "Rack has confirmed bookings. Cancel them first."})
				return
			}
			res := gdb.Delete(&models.Rack{}, params.ID)
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Rack not found."})
				return
			}
			invalidateRackCatalogCache()
			ctx.Status(http.StatusNoContent)
		})
	return g
}

func adminTokenPackHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/token-packs", func(ctx *gin.Context) {
			var packs []models.TokenPack
			err := db.GetDb().
				Model(&models.TokenPack{}).
				Order("price asc").
				Find(&packs).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": packs, "count": len(packs)})
		}).
		POST("/token-packs", func(ctx *gin.Context) {
			var body types.CreateTokenPackRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			pack := models.TokenPack{
				Name:          body.Name,
				Description:   body.Description,
				TokensGranted: body.TokensGranted,
				Price:         body.Price,
				IsActive:      true,
			}
			if body.Currency != "" {
				pack.Currency = body.Currency
			}
			if body.IsActive != nil {
				pack.IsActive = *body.IsActive
			}
			if err := db.GetDb().Create(&pack).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": pack})
		}).
		PUT("/token-packs/:id/deactivate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res := db.GetDb().
				Model(&models.TokenPack{}).
				Where("id = ?", params.ID).
				Update("is_active", false)
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Token Pack not found."})
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}

func adminUserHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/users", func(ctx *gin.Context) {
			var users []models.User
			err := db.GetDb().
				Model(&models.User{}).
				Order("id asc").
				Scopes(utils.Paginate(ctx)).
				Find(&users).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": users, "count": len(users)})
		}).
		PUT("/users/:id/tokens", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.AdjustTokensRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			user, err := common.AdjustUserTokens(params.ID, int64(body.Amount))
			if err != nil {
				log.Printf("Error adjusting tokens for user [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			log.Printf("Adjusted tokens for user [%d] by %d (%s)\n", params.ID, body.Amount, body.Reason)
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		})
	return g
}

func adminBookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			var bookings []models.Booking
			err := db.GetDb().
				Model(&models.Booking{}).
				Preload("User").
				Preload("Rack").
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
		POST("/bookings", func(ctx *gin.Context) {
			var body types.AdminCreateBookingRequestBody
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
			booking, err := common.AdminCreateBooking(body.UserID, body.RackID, startTime, endTime)
			if err != nil {
				log.Printf("Error creating booking for user [%d]: %s\n", body.UserID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		PUT("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.AdminUpdateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			booking, err := common.AdminUpdateBooking(params.ID, &body, time.Now())
			if err != nil {
				log.Printf("Error updating booking [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			refund, err := common.CancelBooking(0, params.ID, time.Now(), true)
			if err != nil {
				log.Printf("Error cancelling booking [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"refunded_tokens": refund})
		}).
		DELETE("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := common.AdminDeleteBooking(params.ID); err != nil {
				log.Printf("Error deleting booking [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
