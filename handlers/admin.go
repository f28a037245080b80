package handlers

import (
	"context"
	"net/http"
	"time"

	"civiclink/authz"
	"civiclink/database"
	"civiclink/middleware"
	"civiclink/models"
	"civiclink/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// loadTargetUser resolves the :id param to a stored user. A missing target
// is a not-found, never an authorization outcome.
func loadTargetUser(c *gin.Context, ctx context.Context) (*models.User, bool) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return nil, false
	}

	var target models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&target)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return nil, false
	}
	return &target, true
}

// ListUsers backs the moderation dashboard. Any admin role may view it.
func ListUsers(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if actor == nil || !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := database.Users.Find(ctx, bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

func setUserStatus(c *gin.Context, status models.UserStatus) {
	actor := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target, ok := loadTargetUser(c, ctx)
	if !ok {
		return
	}

	if !authz.CanPerform(actor, authz.ActionBanUser, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to change account status"})
		return
	}

	// Re-applying the current status is an idempotent no-op.
	if target.Status == status {
		c.JSON(http.StatusOK, gin.H{"status": status})
		return
	}

	_, err := database.Users.UpdateOne(ctx, bson.M{"_id": target.ID},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	broadcastEvent(websocket.EventUserUpdated, gin.H{"userId": target.ID.Hex()})
	if status == models.UserBanned {
		SendPushNotification(target.ID, "Account suspended", "Your account has been banned by a moderator", "")
	} else {
		SendPushNotification(target.ID, "Account restored", "Your account is active again", "")
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func BanUser(c *gin.Context)   { setUserStatus(c, models.UserBanned) }
func UnbanUser(c *gin.Context) { setUserStatus(c, models.UserActive) }

// ToggleUserVerification flips the verification badge. Content never stores
// the badge; feeds join it live, so the change shows everywhere at once.
func ToggleUserVerification(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target, ok := loadTargetUser(c, ctx)
	if !ok {
		return
	}

	if !authz.CanPerform(actor, authz.ActionVerifyUser, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to verify users"})
		return
	}

	verified := !target.IsVerified
	_, err := database.Users.UpdateOne(ctx, bson.M{"_id": target.ID},
		bson.M{"$set": bson.M{"isVerified": verified}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update verification"})
		return
	}

	broadcastEvent(websocket.EventUserUpdated, gin.H{"userId": target.ID.Hex()})
	if verified {
		SendPushNotification(target.ID, "You are verified", "Your account now carries the verified badge", "")
	}

	c.JSON(http.StatusOK, gin.H{"isVerified": verified})
}

type UpdateUserRoleRequest struct {
	Role        string              `json:"role" binding:"required"`
	Permissions *models.Permissions `json:"permissions,omitempty"`
}

// UpdateUserRole changes role and capability flags. No flag grants this:
// only a super_admin passes the check.
func UpdateUserRole(c *gin.Context) {
	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.Role(req.Role)
	if role != models.RoleUser && role != models.RoleAdmin && role != models.RoleSuperAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	actor := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	target, ok := loadTargetUser(c, ctx)
	if !ok {
		return
	}

	if !authz.CanPerform(actor, authz.ActionChangeRole, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only a super admin may change roles"})
		return
	}

	set := bson.M{"role": role}
	if req.Permissions != nil {
		set["permissions"] = *req.Permissions
	}
	if role == models.RoleUser {
		// Demotion clears every capability flag.
		set["permissions"] = models.Permissions{}
	}

	_, err := database.Users.UpdateOne(ctx, bson.M{"_id": target.ID}, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	broadcastEvent(websocket.EventUserUpdated, gin.H{"userId": target.ID.Hex()})
	c.JSON(http.StatusOK, gin.H{"role": role})
}

func setChannelBlock(c *gin.Context, blocked bool) {
	channelID := c.Param("id")
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	actor := middleware.CurrentUser(c)
	if !authz.CanPerform(actor, authz.ActionBlockFromChannel, nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to block users"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = database.Users.FindOne(ctx, bson.M{"_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	var update bson.M
	if blocked {
		update = bson.M{"$addToSet": bson.M{"blockedUsers": userID.Hex()}}
	} else {
		update = bson.M{"$pull": bson.M{"blockedUsers": userID.Hex()}}
	}

	result, err := database.Channels.UpdateOne(ctx, bson.M{"_id": channelID}, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update block list"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}

	broadcastEvent(websocket.EventChannelUpdated, gin.H{"channelId": channelID})
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}

func BlockUserFromChannel(c *gin.Context)   { setChannelBlock(c, true) }
func UnblockUserFromChannel(c *gin.Context) { setChannelBlock(c, false) }
