package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageWorkDone MessageType = "work_done"
)

type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChannelID  string             `bson:"channelId" json:"channelId"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"`
	SenderName string             `bson:"senderName" json:"senderName"` // snapshot at send time
	Text       string             `bson:"text" json:"text"`
	Type       MessageType        `bson:"type" json:"type"`
	MediaURL   string             `bson:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	Deleted    bool               `bson:"deleted" json:"deleted"`
	CreatedAt  int64              `bson:"createdAt" json:"createdAt"` // unix ms
}
