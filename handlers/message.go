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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SendMessageRequest struct {
	ChannelID string `json:"channelId" binding:"required"`
	Text      string `json:"text"`
	Type      string `json:"type,omitempty"`
	MediaURL  string `json:"mediaUrl,omitempty"`
}

func SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender := middleware.CurrentUser(c)
	if sender == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if req.Type == "" {
		req.Type = string(models.MessageText)
	}
	msgType := models.MessageType(req.Type)
	switch msgType {
	case models.MessageText, models.MessageWorkDone:
		if req.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message text required"})
			return
		}
	case models.MessageImage:
		if req.MediaURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mediaUrl required for image messages"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown message type"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var channel models.Channel
	err := database.Channels.FindOne(ctx, bson.M{"_id": req.ChannelID}).Decode(&channel)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load channel"})
		return
	}

	if err := moderation.CanSendMessage(sender, &channel); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UnixMilli()
	message := models.Message{
		ID:         primitive.NewObjectID(),
		ChannelID:  channel.ID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       req.Text,
		Type:       msgType,
		MediaURL:   req.MediaURL,
		Deleted:    false,
		CreatedAt:  now,
	}

	if _, err := database.Messages.InsertOne(ctx, message); err != nil {
		log.Printf("SendMessage insert error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	preview := req.Text
	if msgType == models.MessageImage {
		preview = "Sent an image"
	}
	_, err = database.Channels.UpdateOne(ctx, bson.M{"_id": channel.ID}, bson.M{
		"$set": bson.M{"lastMessage": preview, "lastActivity": now},
	})
	if err != nil {
		log.Printf("Update channel lastMessage error: %v", err)
		// Not critical, the message was already saved.
	}

	// A send implicitly marks the channel read for the sender, so their own
	// message never inflates their unread count.
	_, err = database.ReadStates.UpdateOne(ctx,
		bson.M{"userId": sender.ID, "channelId": channel.ID},
		bson.M{"$set": bson.M{"lastReadAt": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Printf("Advance sender watermark error: %v", err)
	}

	broadcastEvent(websocket.EventMessageNew, message)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent",
		"id":      message.ID.Hex(),
	})
}

// GetChannelMessages returns a channel's timeline in creation order with
// the sender's current avatar and verification badge joined in. Closed
// channels stay readable; only sending is restricted.
func GetChannelMessages(c *gin.Context) {
	channelID := c.Param("id")

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

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "channelId", Value: channelID}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "senderId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "sender"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$sender"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cursor, err := database.Messages.Aggregate(ctx, pipeline)
	if err != nil {
		log.Printf("GetChannelMessages aggregate error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	defer cursor.Close(ctx)

	var raw []struct {
		models.Message `bson:",inline"`
		Sender         *models.User `bson:"sender"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		log.Printf("GetChannelMessages decode error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode messages"})
		return
	}

	response := make([]gin.H, len(raw))
	for i, m := range raw {
		senderMap := gin.H{
			"id":         m.SenderID.Hex(),
			"name":       m.SenderName,
			"avatar":     fallbackAvatar,
			"isVerified": false,
		}
		if m.Sender != nil {
			// Verification is joined live: the badge reflects the author's
			// current state, not a snapshot from send time.
			senderMap["name"] = m.Sender.Name
			senderMap["isVerified"] = m.Sender.IsVerified
			if m.Sender.Avatar != "" {
				senderMap["avatar"] = m.Sender.Avatar
			}
		}
		response[i] = gin.H{
			"id":        m.ID.Hex(),
			"channelId": m.ChannelID,
			"senderId":  m.SenderID.Hex(),
			"sender":    senderMap,
			"text":      m.Text,
			"type":      m.Type,
			"mediaUrl":  m.MediaURL,
			"deleted":   m.Deleted,
			"createdAt": m.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

// DeleteMessage soft-deletes: the flag flips and the body is scrubbed to
// the fixed moderation notice in a single update. Repeating the call is a
// no-op.
func DeleteMessage(c *gin.Context) {
	channelID := c.Param("id")
	messageID, err := primitive.ObjectIDFromHex(c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var message models.Message
	err = database.Messages.FindOne(ctx, bson.M{"_id": messageID, "channelId": channelID}).Decode(&message)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load message"})
		return
	}

	var sender models.User
	var target *models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": message.SenderID}).Decode(&sender)
	if err == nil {
		target = &sender
	} else if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sender"})
		return
	}

	if !authz.CanPerform(actor, authz.ActionDeleteContent, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to delete messages"})
		return
	}

	moderation.ScrubMessage(&message)
	_, err = database.Messages.UpdateOne(ctx, bson.M{"_id": messageID}, bson.M{
		"$set":   bson.M{"deleted": true, "text": message.Text},
		"$unset": bson.M{"mediaUrl": ""},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
		return
	}

	broadcastEvent(websocket.EventMessageDeleted, gin.H{
		"channelId": channelID,
		"messageId": messageID.Hex(),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}
