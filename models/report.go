package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type ReportType string

const (
	ReportPost    ReportType = "post"
	ReportMessage ReportType = "message"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a moderation ticket. Resolved and dismissed are terminal.
type Report struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type       ReportType         `bson:"type" json:"type"`
	TargetID   string             `bson:"targetId" json:"targetId"`
	ChannelID  string             `bson:"channelId,omitempty" json:"channelId,omitempty"` // set for message reports
	Reason     string             `bson:"reason" json:"reason"`
	ReporterID primitive.ObjectID `bson:"reporterId" json:"reporterId"`
	Status     ReportStatus       `bson:"status" json:"status"`
	CreatedAt  int64              `bson:"createdAt" json:"createdAt"`
}
