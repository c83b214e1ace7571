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

func waitlistHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/waitlist", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var entries []models.Waitlist
			err := db.GetDb().
				Model(&models.Waitlist{}).
				Preload("Rack").
				Where("user_id = ?", userId).
				Order("desired_start_time asc").
				Find(&entries).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
		}).
		POST("/waitlist", func(ctx *gin.Context) {
			var body types.JoinWaitlistRequestBody
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
			entry, err := common.JoinWaitlist(userId, body.RackID, startTime, endTime)
			if err != nil {
				log.Printf("Error joining waitlist for user [%d]: %s\n", userId, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": entry})
		}).
		DELETE("/waitlist/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			res := db.GetDb().
				Where("id = ? AND user_id = ?", params.ID, userId).
				Delete(&models.Waitlist{})
			if res.Error != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Waitlist entry not found."})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
