package handlers

import (
	"civiclink/websocket"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shared across all handler files.
const fallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

var wsManager *websocket.Manager
var vapidPrivateKey string

// PushSubscription stores one browser's web-push endpoint per user.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}

// SetWebSocketManager wires the realtime hub into the handlers.
func SetWebSocketManager(manager *websocket.Manager) {
	wsManager = manager
}

func broadcastEvent(event string, payload interface{}) {
	if wsManager != nil {
		wsManager.BroadcastEvent(event, payload)
	}
}
