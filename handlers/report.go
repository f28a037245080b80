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
)

type SubmitReportRequest struct {
	Type      string `json:"type" binding:"required"`
	TargetID  string `json:"targetId" binding:"required"`
	ChannelID string `json:"channelId,omitempty"`
	Reason    string `json:"reason" binding:"required"`
}

func SubmitReport(c *gin.Context) {
	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reportType := models.ReportType(req.Type)
	if reportType != models.ReportPost && reportType != models.ReportMessage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown report type"})
		return
	}
	if reportType == models.ReportMessage && req.ChannelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channelId required for message reports"})
		return
	}

	reporter := middleware.CurrentUser(c)
	if reporter == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := models.Report{
		ID:         primitive.NewObjectID(),
		Type:       reportType,
		TargetID:   req.TargetID,
		ChannelID:  req.ChannelID,
		Reason:     req.Reason,
		ReporterID: reporter.ID,
		Status:     models.ReportPending,
		CreatedAt:  time.Now().UnixMilli(),
	}

	if _, err := database.Reports.InsertOne(ctx, report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit report"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Report submitted",
		"reportId": report.ID.Hex(),
	})
}

func ListReports(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil || !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := database.Reports.Find(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode reports"})
		return
	}

	c.JSON(http.StatusOK, reports)
}

func loadReport(c *gin.Context, ctx context.Context) (*models.Report, bool) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report ID"})
		return nil, false
	}

	var report models.Report
	err = database.Reports.FindOne(ctx, bson.M{"_id": reportID}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return nil, false
	}
	return &report, true
}

// reportContentAuthor resolves the reported content's author so the
// admin-peer restriction applies to report handling as well.
func reportContentAuthor(ctx context.Context, report *models.Report) (*models.User, error) {
	var authorID primitive.ObjectID

	switch report.Type {
	case models.ReportPost:
		postID, err := primitive.ObjectIDFromHex(report.TargetID)
		if err != nil {
			return nil, nil
		}
		var post models.Post
		if err := database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, nil
			}
			return nil, err
		}
		authorID = post.AuthorID
	case models.ReportMessage:
		msgID, err := primitive.ObjectIDFromHex(report.TargetID)
		if err != nil {
			return nil, nil
		}
		var msg models.Message
		if err := database.Messages.FindOne(ctx, bson.M{"_id": msgID}).Decode(&msg); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, nil
			}
			return nil, err
		}
		authorID = msg.SenderID
	}

	var author models.User
	err := database.Users.FindOne(ctx, bson.M{"_id": authorID}).Decode(&author)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// ResolveReport removes the reported content and closes the ticket as one
// atomic unit: the soft delete and the status flip commit together or not
// at all. Works for both post and message reports.
func ResolveReport(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, ok := loadReport(c, ctx)
	if !ok {
		return
	}

	author, err := reportContentAuthor(ctx, report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load reported content"})
		return
	}

	if !authz.CanPerform(actor, authz.ActionDeleteContent, author) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to resolve reports"})
		return
	}

	apply, err := moderation.ReportTransition(report.Status, models.ReportResolved)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Report is already closed"})
		return
	}
	if !apply {
		c.JSON(http.StatusOK, gin.H{"status": report.Status})
		return
	}

	err = database.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		switch report.Type {
		case models.ReportPost:
			postID, err := primitive.ObjectIDFromHex(report.TargetID)
			if err == nil {
				if _, err := database.Posts.UpdateOne(sc, bson.M{"_id": postID},
					bson.M{"$set": bson.M{"active": false}}); err != nil {
					return nil, err
				}
			}
		case models.ReportMessage:
			msgID, err := primitive.ObjectIDFromHex(report.TargetID)
			if err == nil {
				if _, err := database.Messages.UpdateOne(sc, bson.M{"_id": msgID}, bson.M{
					"$set":   bson.M{"deleted": true, "text": moderation.DeletedMessageText},
					"$unset": bson.M{"mediaUrl": ""},
				}); err != nil {
					return nil, err
				}
			}
		}

		_, err := database.Reports.UpdateOne(sc,
			bson.M{"_id": report.ID, "status": models.ReportPending},
			bson.M{"$set": bson.M{"status": models.ReportResolved}})
		return nil, err
	})
	if err != nil {
		log.Printf("ResolveReport transaction error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve report"})
		return
	}

	switch report.Type {
	case models.ReportPost:
		broadcastEvent(websocket.EventPostDeleted, gin.H{"postId": report.TargetID})
	case models.ReportMessage:
		broadcastEvent(websocket.EventMessageDeleted, gin.H{
			"channelId": report.ChannelID,
			"messageId": report.TargetID,
		})
	}
	SendPushNotification(report.ReporterID, "Report resolved",
		"A moderator removed the content you reported", "")

	c.JSON(http.StatusOK, gin.H{"status": models.ReportResolved})
}

// DismissReport closes the ticket with no action taken. Terminal like
// resolve; repeating the same dismissal is a no-op.
func DismissReport(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, ok := loadReport(c, ctx)
	if !ok {
		return
	}

	if !authz.CanPerform(actor, authz.ActionDeleteContent, nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to dismiss reports"})
		return
	}

	apply, err := moderation.ReportTransition(report.Status, models.ReportDismissed)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Report is already closed"})
		return
	}
	if !apply {
		c.JSON(http.StatusOK, gin.H{"status": report.Status})
		return
	}

	_, err = database.Reports.UpdateOne(ctx,
		bson.M{"_id": report.ID, "status": models.ReportPending},
		bson.M{"$set": bson.M{"status": models.ReportDismissed}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dismiss report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.ReportDismissed})
}
