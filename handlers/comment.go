package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"civiclink/database"
	"civiclink/middleware"
	"civiclink/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type AddCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment inserts the comment and bumps the parent post's counter in
// one transaction so the pair can never half-apply.
func AddComment(c *gin.Context) {
	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	author := middleware.CurrentUser(c)
	if author == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID, "active": true}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		AuthorID:  author.ID,
		Text:      req.Text,
		Likes:     0,
		CreatedAt: time.Now().UnixMilli(),
	}

	err = database.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := database.Comments.InsertOne(sc, comment); err != nil {
			return nil, err
		}
		if _, err := database.Posts.UpdateOne(sc, bson.M{"_id": postID},
			bson.M{"$inc": bson.M{"comments": 1}}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		log.Printf("AddComment transaction error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Comment added",
		"commentId": comment.ID.Hex(),
	})
}

// ListComments returns a post's comments oldest first with the author's
// current name, avatar and verification joined in.
func ListComments(c *gin.Context) {
	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	viewer := middleware.CurrentUser(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "postId", Value: postID}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "authorId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "author"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$author"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}

	cursor, err := database.Comments.Aggregate(ctx, pipeline)
	if err != nil {
		log.Printf("ListComments aggregate error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}
	defer cursor.Close(ctx)

	var raw []struct {
		models.Comment `bson:",inline"`
		Author         *models.User `bson:"author"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		log.Printf("ListComments decode error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode comments"})
		return
	}

	response := make([]gin.H, len(raw))
	for i, cm := range raw {
		authorMap := gin.H{
			"id":         cm.AuthorID.Hex(),
			"name":       "Unknown User",
			"avatar":     fallbackAvatar,
			"isVerified": false,
		}
		if cm.Author != nil {
			authorMap["name"] = cm.Author.Name
			authorMap["isVerified"] = cm.Author.IsVerified
			if cm.Author.Avatar != "" {
				authorMap["avatar"] = cm.Author.Avatar
			}
		}
		response[i] = gin.H{
			"id":        cm.ID.Hex(),
			"postId":    cm.PostID.Hex(),
			"author":    authorMap,
			"text":      cm.Text,
			"likes":     cm.Likes,
			"likedByMe": cm.LikedBy[viewer.ID.Hex()],
			"createdAt": cm.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

// ToggleCommentLike uses the same compare-and-swap toggle as post likes.
func ToggleCommentLike(c *gin.Context) {
	commentID, err := primitive.ObjectIDFromHex(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	liked, err := casToggleLike(ctx, database.Comments, commentID, user.ID.Hex())
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if err != nil {
		log.Printf("ToggleCommentLike error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle like"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})
}
