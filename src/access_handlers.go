package main

import (
	"arr/src/common"
	"arr/src/types"
	"arr/src/utils"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func accessHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/:id/access/start", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			session, err := common.StartRackAccess(params.ID, userId, time.Now())
			if err != nil {
				log.Printf("Error starting access for booking [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": session})
		}).
		POST("/bookings/:id/access/stop", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			if err := common.StopRackAccess(params.ID, userId, false); err != nil {
				log.Printf("Error stopping access for booking [%d]: %s\n", params.ID, err.Error())
				status, message := utils.HTTPError(err)
				ctx.JSON(status, gin.H{"error": message})
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}
