package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type PostType string

const (
	PostStandard  PostType = "standard"
	PostAwareness PostType = "awareness"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityDistrict Visibility = "district"
)

// Post stores only the author's id and district snapshot; name, avatar and
// verification badge are joined against the users collection at read time.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID    primitive.ObjectID `bson:"authorId" json:"authorId"`
	District    string             `bson:"district" json:"district"`
	Type        PostType           `bson:"type" json:"type"`
	Title       string             `bson:"title,omitempty" json:"title,omitempty"`
	Description string             `bson:"description" json:"description"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	BeforeImg   string             `bson:"beforeImg,omitempty" json:"beforeImg,omitempty"`
	AfterImg    string             `bson:"afterImg,omitempty" json:"afterImg,omitempty"`
	Visibility  Visibility         `bson:"visibility" json:"visibility"`
	Active      bool               `bson:"active" json:"active"`
	Likes       int                `bson:"likes" json:"likes"`
	LikedBy     map[string]bool    `bson:"likedBy,omitempty" json:"likedBy,omitempty"`
	Comments    int                `bson:"comments" json:"comments"`
	CreatedAt   int64              `bson:"createdAt" json:"createdAt"`
}
