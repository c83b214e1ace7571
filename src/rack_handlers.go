package main

import (
	"arr/src/common"
	"arr/src/db"
	"arr/src/lib"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const rackCatalogCacheKey = "racks:catalog"

func cachedRackCatalog() ([]models.Rack, error) {
	rd := lib.GetRedisClient()
	if rd != nil {
		val := rd.Get(context.Background(), rackCatalogCacheKey).Val()
		if val != "" {
			var racks []models.Rack
			if err := json.Unmarshal([]byte(val), &racks); err == nil {
				return racks, nil
			}
		}
	}

	var racks []models.Rack
	if err := db.GetDb().
		Model(&models.Rack{}).
		Where("status = ?", types.RACK_AVAILABLE).
		Order("name asc").
		Find(&racks).
		Error; err != nil {
		return nil, err
	}

	if rd != nil {
		if b, err := json.Marshal(&racks); err == nil {
			if err := rd.Set(context.Background(), rackCatalogCacheKey, string(b), 5*time.Minute).Err(); err != nil {
				log.Printf("[redis] Error updating rack catalog cache: %s\n", err.Error())
			}
		}
	}
	return racks, nil
}

func invalidateRackCatalogCache() {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Del(context.Background(), rackCatalogCacheKey).Err(); err != nil {
		log.Printf("[redis] Error invalidating rack catalog cache: %s\n", err.Error())
	}
}

func publicRackRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/racks", func(ctx *gin.Context) {
			racks, err := cachedRackCatalog()
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": racks, "count": len(racks)})
		}).
		GET("/racks/:slug", func(ctx *gin.Context) {
			var params struct {
				Slug string `uri:"slug" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var rack models.Rack
			if err := db.GetDb().
				Model(&models.Rack{}).
				Where("slug = ?", params.Slug).
				First(&rack).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Rack not found."})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": rack})
		}).
		GET("/racks/:slug/availability", func(ctx *gin.Context) {
			var params struct {
				Slug string `uri:"slug" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var query types.RackAvailabilityQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rangeStart, err := utils.ParseRequestTime(query.RangeStart)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid range_start format."})
				return
			}
			rangeEnd, err := utils.ParseRequestTime(query.RangeEnd)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid range_end format."})
				return
			}

			var rack models.Rack
			if err := db.GetDb().
				Model(&models.Rack{}).
				Select("id").
				Where("slug = ?", params.Slug).
				First(&rack).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "Rack not found."})
				return
			}

			slots, err := common.GetRackAvailability(rack.ID, rangeStart, rangeEnd)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": slots, "count": len(slots)})
		})
	return apiv1
}
