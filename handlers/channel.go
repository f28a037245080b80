package handlers

import (
	"context"
	"log"
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
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// defaultDistricts are provisioned on first run alongside the main channel.
var defaultDistricts = []string{"Deg. Hodan", "Deg. Deyniile", "Deg. Yaqshiid"}

// SeedChannels provisions the single main channel and one channel per
// default district. Upserts on fixed ids keep this exactly-once across
// restarts and concurrent boots.
func SeedChannels(ctx context.Context) error {
	now := time.Now().UnixMilli()

	main := models.Channel{
		ID:        "main",
		Name:      "Magaalada Guud",
		Icon:      "M",
		Type:      models.ChannelMain,
		Status:    models.ChannelOpen,
		CreatedAt: now,
	}
	_, err := database.Channels.UpdateOne(ctx,
		bson.M{"_id": main.ID},
		bson.M{"$setOnInsert": main},
		mongoUpsert(),
	)
	if err != nil {
		return err
	}

	for _, d := range defaultDistricts {
		ch := districtChannel(d, now)
		_, err := database.Channels.UpdateOne(ctx,
			bson.M{"_id": ch.ID},
			bson.M{"$setOnInsert": ch},
			mongoUpsert(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func districtChannel(district string, now int64) models.Channel {
	return models.Channel{
		ID:        moderation.DistrictChannelID(district),
		Name:      district,
		Icon:      firstLetter(district),
		Type:      models.ChannelDistrict,
		District:  district,
		Status:    models.ChannelOpen,
		CreatedAt: now,
	}
}

func firstLetter(s string) string {
	for _, r := range s {
		return string(r)
	}
	return "?"
}

func ListChannels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := database.Channels.Find(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channels"})
		return
	}
	defer cursor.Close(ctx)

	var channels []models.Channel
	if err := cursor.All(ctx, &channels); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode channels"})
		return
	}

	c.JSON(http.StatusOK, channels)
}

type UpdateChannelRequest struct {
	Name   string `json:"name,omitempty"`
	Icon   string `json:"icon,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Status string `json:"status,omitempty"`
}

// UpdateChannel covers admin edits and the open/close toggle, gated by the
// manageChannels capability.
func UpdateChannel(c *gin.Context) {
	channelID := c.Param("id")

	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.CurrentUser(c)
	if !authz.CanPerform(actor, authz.ActionManageChannel, nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to manage channels"})
		return
	}

	set := bson.M{}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Icon != "" {
		set["icon"] = req.Icon
	}
	if req.Avatar != "" {
		set["avatar"] = req.Avatar
	}
	if req.Status != "" {
		status := models.ChannelStatus(req.Status)
		if status != models.ChannelOpen && status != models.ChannelClosed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown channel status"})
			return
		}
		set["status"] = status
	}
	if len(set) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No changes to update"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := database.Channels.UpdateOne(ctx, bson.M{"_id": channelID}, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update channel"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	broadcastEvent(websocket.EventChannelUpdated, gin.H{"channelId": channelID})
	c.JSON(http.StatusOK, gin.H{"message": "Channel updated"})
}

// MarkChannelRead records "now" as the caller's last-read watermark for the
// channel. The watermark is private to the caller.
func MarkChannelRead(c *gin.Context) {
	channelID := c.Param("id")

	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := database.Channels.FindOne(ctx, bson.M{"_id": channelID}).Err()
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load channel"})
		return
	}

	now := time.Now().UnixMilli()
	_, err = database.ReadStates.UpdateOne(ctx,
		bson.M{"userId": user.ID, "channelId": channelID},
		bson.M{"$set": bson.M{"lastReadAt": now}},
		mongoUpsert(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark channel read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channelId": channelID, "lastReadAt": now})
}

// UnreadCounts derives per-channel unread counts from the caller's
// watermarks. A message counts only if it is newer than the watermark, not
// deleted, and not the caller's own.
func UnreadCounts(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	watermarks := map[string]int64{}
	rsCursor, err := database.ReadStates.Find(ctx, bson.M{"userId": user.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load read state"})
		return
	}
	var states []models.ReadState
	if err := rsCursor.All(ctx, &states); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode read state"})
		return
	}
	for _, rs := range states {
		watermarks[rs.ChannelID] = rs.LastReadAt
	}

	chanCursor, err := database.Channels.Find(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channels"})
		return
	}
	var channels []models.Channel
	if err := chanCursor.All(ctx, &channels); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode channels"})
		return
	}

	counts := gin.H{}
	for _, ch := range channels {
		msgCursor, err := database.Messages.Find(ctx, bson.M{"channelId": ch.ID})
		if err != nil {
			log.Printf("UnreadCounts fetch error for channel %s: %v", ch.ID, err)
			continue
		}
		var msgs []models.Message
		if err := msgCursor.All(ctx, &msgs); err != nil {
			log.Printf("UnreadCounts decode error for channel %s: %v", ch.ID, err)
			continue
		}
		counts[ch.ID] = moderation.CountUnread(msgs, watermarks[ch.ID], user.ID)
	}

	c.JSON(http.StatusOK, counts)
}

func mongoUpsert() *options.UpdateOptions {
	return options.Update().SetUpsert(true)
}
