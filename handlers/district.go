package handlers

import (
	"context"
	"net/http"
	"time"

	"civiclink/authz"
	"civiclink/database"
	"civiclink/middleware"
	"civiclink/models"
	"civiclink/moderation"
	"civiclink/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// ListDistricts derives the district list from the district channels, which
// are the single source of truth: each district owns exactly one channel.
func ListDistricts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := database.Channels.Find(ctx, bson.M{"type": models.ChannelDistrict})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch districts"})
		return
	}
	defer cursor.Close(ctx)

	var channels []models.Channel
	if err := cursor.All(ctx, &channels); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode districts"})
		return
	}

	districts := make([]string, 0, len(channels))
	for _, ch := range channels {
		districts = append(districts, ch.District)
	}

	c.JSON(http.StatusOK, districts)
}

type AddDistrictRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddDistrict creates a district and provisions its channel in the same
// insert: the channel id is derived from the name, so a duplicate district
// collides on _id instead of producing a second channel.
func AddDistrict(c *gin.Context) {
	var req AddDistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.CurrentUser(c)
	if !authz.CanPerform(actor, authz.ActionManageDistrict, nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to manage districts"})
		return
	}

	id := moderation.DistrictChannelID(req.Name)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "District name must contain letters or digits"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := database.Channels.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check district"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "District already exists"})
		return
	}

	ch := districtChannel(req.Name, time.Now().UnixMilli())
	if _, err := database.Channels.InsertOne(ctx, ch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create district"})
		return
	}

	broadcastEvent(websocket.EventChannelUpdated, gin.H{"channelId": ch.ID})

	c.JSON(http.StatusCreated, gin.H{
		"message":   "District created",
		"district":  req.Name,
		"channelId": ch.ID,
	})
}
