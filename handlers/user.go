package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"civiclink/database"
	"civiclink/middleware"
	"civiclink/models"
	"civiclink/websocket"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func GetMyProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func GetUser(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = database.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMyProfile edits the caller's own profile fields. Role, status,
// verification and permissions are not editable here.
func UpdateMyProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	set := bson.M{}
	if name := c.PostForm("name"); name != "" {
		set["name"] = name
	}
	if bio, ok := c.GetPostForm("bio"); ok {
		set["bio"] = bio
	}
	if district := c.PostForm("district"); district != "" {
		set["district"] = district
	}

	avatarFile, _, err := c.Request.FormFile("avatar")
	if err == nil {
		defer avatarFile.Close()

		cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Cloudinary configuration error"})
			return
		}

		uploadParams := uploader.UploadParams{
			Folder:         "civiclink/avatars",
			PublicID:       user.ID.Hex(),
			Transformation: "c_limit,w_400,h_400,q_auto",
		}

		uploadResult, err := cld.Upload.Upload(ctx, avatarFile, uploadParams)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload avatar"})
			return
		}
		set["avatar"] = uploadResult.SecureURL
	}

	if len(set) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No changes to update"})
		return
	}

	result, err := database.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	broadcastEvent(websocket.EventUserUpdated, gin.H{"userId": user.ID.Hex()})
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// Heartbeat is the periodic "I am present" write. Clients call it every 60
// seconds; presence counts are derived from lastSeen recency plus live
// websocket connections.
func Heartbeat(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := database.Users.UpdateOne(ctx, bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastSeen": time.Now().UnixMilli()}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record heartbeat"})
		return
	}

	online := 0
	if wsManager != nil {
		online = wsManager.OnlineCount()
	}

	c.JSON(http.StatusOK, gin.H{"online": online, "time": time.Now().UnixMilli()})
}
