package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Comment carries the same like semantics as Post. Comments are never
// deleted; removing a post hides its comments with it.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	AuthorID  primitive.ObjectID `bson:"authorId" json:"authorId"`
	Text      string             `bson:"text" json:"text"`
	Likes     int                `bson:"likes" json:"likes"`
	LikedBy   map[string]bool    `bson:"likedBy,omitempty" json:"likedBy,omitempty"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}
