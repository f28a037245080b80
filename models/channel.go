package models

type ChannelType string

const (
	ChannelMain     ChannelType = "main"
	ChannelDistrict ChannelType = "district"
)

type ChannelStatus string

const (
	ChannelOpen   ChannelStatus = "open"
	ChannelClosed ChannelStatus = "closed"
)

// Channel is a chat room: the single community-wide "main" room or one
// room per district. Channels are never deleted.
type Channel struct {
	ID           string        `bson:"_id" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Icon         string        `bson:"icon" json:"icon"`
	Avatar       string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Type         ChannelType   `bson:"type" json:"type"`
	District     string        `bson:"district,omitempty" json:"district,omitempty"`
	Status       ChannelStatus `bson:"status" json:"status"`
	BlockedUsers []string      `bson:"blockedUsers,omitempty" json:"blockedUsers,omitempty"`
	LastMessage  string        `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	CreatedAt    int64         `bson:"createdAt" json:"createdAt"`
	LastActivity int64         `bson:"lastActivity" json:"lastActivity"`
}

// IsBlocked reports whether userID sits on this channel's block list.
func (ch *Channel) IsBlocked(userID string) bool {
	for _, id := range ch.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
