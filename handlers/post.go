package handlers

import (
	"context"
	"errors"
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

type CreatePostRequest struct {
	Type        string `json:"type" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description" binding:"required"`
	Image       string `json:"image"`
	BeforeImg   string `json:"beforeImg"`
	AfterImg    string `json:"afterImg"`
	Visibility  string `json:"visibility"`
}

func CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	author := middleware.CurrentUser(c)
	if author == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	postType := models.PostType(req.Type)
	switch postType {
	case models.PostStandard:
	case models.PostAwareness:
		if req.BeforeImg == "" || req.AfterImg == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Awareness posts need before and after images"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown post type"})
		return
	}

	visibility := models.Visibility(req.Visibility)
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if visibility != models.VisibilityPublic && visibility != models.VisibilityDistrict {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown visibility"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post := models.Post{
		ID:          primitive.NewObjectID(),
		AuthorID:    author.ID,
		District:    author.District,
		Type:        postType,
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		BeforeImg:   req.BeforeImg,
		AfterImg:    req.AfterImg,
		Visibility:  visibility,
		Active:      true,
		Likes:       0,
		Comments:    0,
		CreatedAt:   time.Now().UnixMilli(),
	}

	if _, err := database.Posts.InsertOne(ctx, post); err != nil {
		log.Printf("CreatePost error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	broadcastEvent(websocket.EventPostNew, gin.H{"postId": post.ID.Hex()})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"postId":  post.ID.Hex(),
	})
}

// GetFeed returns active posts the caller may see: public ones plus
// district-only ones from their own district, newest first. Author name,
// avatar and verification are joined live from the users collection.
func GetFeed(c *gin.Context) {
	viewer := middleware.CurrentUser(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	match := bson.D{
		{Key: "active", Value: true},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "visibility", Value: models.VisibilityPublic}},
			bson.D{
				{Key: "visibility", Value: models.VisibilityDistrict},
				{Key: "district", Value: viewer.District},
			},
		}},
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
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

	cursor, err := database.Posts.Aggregate(ctx, pipeline)
	if err != nil {
		log.Printf("GetFeed aggregate error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	defer cursor.Close(ctx)

	var raw []struct {
		models.Post `bson:",inline"`
		Author      *models.User `bson:"author"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		log.Printf("GetFeed decode error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode posts"})
		return
	}

	response := make([]gin.H, len(raw))
	for i, p := range raw {
		authorMap := gin.H{
			"id":         p.AuthorID.Hex(),
			"name":       "Unknown User",
			"avatar":     fallbackAvatar,
			"district":   p.District,
			"isVerified": false,
		}
		if p.Author != nil {
			authorMap["name"] = p.Author.Name
			authorMap["isVerified"] = p.Author.IsVerified
			if p.Author.Avatar != "" {
				authorMap["avatar"] = p.Author.Avatar
			}
		}

		response[i] = gin.H{
			"id":          p.ID.Hex(),
			"author":      authorMap,
			"type":        p.Type,
			"title":       p.Title,
			"description": p.Description,
			"image":       p.Image,
			"beforeImg":   p.BeforeImg,
			"afterImg":    p.AfterImg,
			"visibility":  p.Visibility,
			"likes":       p.Likes,
			"likedByMe":   p.LikedBy[viewer.ID.Hex()],
			"comments":    p.Comments,
			"createdAt":   p.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

// DeletePost soft-deletes: only `active` flips, every other field stays in
// storage. The author may remove their own post; otherwise the managePosts
// capability is required.
func DeletePost(c *gin.Context) {
	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}

	if post.AuthorID != actor.ID {
		var author models.User
		var target *models.User
		err = database.Users.FindOne(ctx, bson.M{"_id": post.AuthorID}).Decode(&author)
		if err == nil {
			target = &author
		} else if err != mongo.ErrNoDocuments {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load author"})
			return
		}
		if !authz.CanPerform(actor, authz.ActionDeleteContent, target) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to delete posts"})
			return
		}
	}

	_, err = database.Posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	broadcastEvent(websocket.EventPostDeleted, gin.H{"postId": postID.Hex()})
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// ToggleLike flips the caller's membership in the post's likedBy set. The
// update is a compare-and-swap on current membership so two sessions racing
// on the same post never lose a count; likes always equals |likedBy|.
func ToggleLike(c *gin.Context) {
	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	liked, err := casToggleLike(ctx, database.Posts, postID, user.ID.Hex())
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("ToggleLike error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle like"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// casToggleLike performs the optimistic-retry membership toggle shared by
// post and comment likes. Each attempt re-reads current membership, asks
// moderation.ToggleLike for the resulting state, and issues an update whose
// filter asserts that membership is unchanged; a concurrent toggle makes
// the filter miss and the attempt retries.
func casToggleLike(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, userID string) (bool, error) {
	memberKey := "likedBy." + userID

	for attempt := 0; attempt < 5; attempt++ {
		var doc struct {
			Likes   int             `bson:"likes"`
			LikedBy map[string]bool `bson:"likedBy"`
		}
		if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
			return false, err
		}

		_, _, nowLiked := moderation.ToggleLike(doc.LikedBy, doc.Likes, userID)

		var filter, update bson.M
		if nowLiked {
			filter = bson.M{"_id": id, memberKey: bson.M{"$ne": true}}
			update = bson.M{
				"$set": bson.M{memberKey: true},
				"$inc": bson.M{"likes": 1},
			}
		} else {
			filter = bson.M{"_id": id, memberKey: true}
			update = bson.M{
				"$unset": bson.M{memberKey: ""},
				"$inc":   bson.M{"likes": -1},
			}
		}

		result, err := coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return false, err
		}
		if result.MatchedCount == 1 {
			return nowLiked, nil
		}
		// Lost the race, re-read and try again.
	}
	return false, errLikeContended
}

var errLikeContended = errors.New("like toggle contended, retries exhausted")
