package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ReadState is a per-(user, channel) last-read watermark. It is private to
// its owner: only that user may read or advance it, and it never feeds into
// any other user's view.
type ReadState struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID     primitive.ObjectID `bson:"userId" json:"-"`
	ChannelID  string             `bson:"channelId" json:"channelId"`
	LastReadAt int64              `bson:"lastReadAt" json:"lastReadAt"` // unix ms, same clock as Message.CreatedAt
}
