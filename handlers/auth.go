package handlers

import (
	"context"
	"net/http"
	"time"

	"civiclink/database"
	"civiclink/middleware"
	"civiclink/models"
	"civiclink/moderation"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactHandle string `json:"contactHandle" binding:"required"`
	Password      string `json:"password" binding:"required,min=6"`
	District      string `json:"district" binding:"required"`
	Bio           string `json:"bio"`
	Avatar        string `json:"avatar"`
}

type LoginRequest struct {
	ContactHandle string `json:"contactHandle" binding:"required"`
	Password      string `json:"password" binding:"required"`
}

// Register creates an account and establishes a session. New accounts
// always start as plain users: role, status and verification cannot be
// chosen at registration.
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var existing models.User
	err := database.Users.FindOne(ctx, bson.M{"contactHandle": req.ContactHandle}).Decode(&existing)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Contact handle already in use"})
		return
	}
	if err != mongo.ErrNoDocuments {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	now := time.Now().UnixMilli()
	user := models.User{
		ID:            primitive.NewObjectID(),
		Name:          req.Name,
		ContactHandle: req.ContactHandle,
		Bio:           req.Bio,
		District:      req.District,
		Avatar:        req.Avatar,
		Role:          models.RoleUser,
		Status:        models.UserActive,
		IsVerified:    false,
		Permissions:   models.Permissions{},
		PasswordHash:  &hashed,
		CreatedAt:     now,
		LastSeen:      now,
	}

	if _, err := database.Users.InsertOne(ctx, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	tokenString, err := middleware.IssueToken(user.ID.Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   tokenString,
		"userId":  user.ID.Hex(),
	})
}

// Login checks credentials and refuses banned accounts with a fixed
// denial, never a token.
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err := database.Users.FindOne(ctx, bson.M{"contactHandle": req.ContactHandle}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := moderation.LoginCheck(&user); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": moderation.BannedLoginMessage})
		return
	}

	tokenString, err := middleware.IssueToken(user.ID.Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	database.Users.UpdateOne(ctx, bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"lastSeen": time.Now().UnixMilli()}})

	c.JSON(http.StatusOK, gin.H{
		"token":   tokenString,
		"userId":  user.ID.Hex(),
		"message": "Login successful",
	})
}
