package moderation

import (
	"testing"

	"civiclink/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToggleLikeIdempotentPair(t *testing.T) {
	likedBy, likes, nowLiked := ToggleLike(nil, 0, "alice")
	if !nowLiked || likes != 1 || !likedBy["alice"] {
		t.Fatalf("first toggle: likes=%d likedBy=%v nowLiked=%v", likes, likedBy, nowLiked)
	}

	likedBy, likes, nowLiked = ToggleLike(likedBy, likes, "alice")
	if nowLiked || likes != 0 || likedBy["alice"] {
		t.Fatalf("second toggle did not restore prior state: likes=%d likedBy=%v", likes, likedBy)
	}
}

func TestLikeCountMatchesMembership(t *testing.T) {
	var likedBy map[string]bool
	likes := 0
	users := []string{"a", "b", "c", "a", "b", "d", "c", "a"}
	for _, u := range users {
		likedBy, likes, _ = ToggleLike(likedBy, likes, u)
		if likes != len(likedBy) {
			t.Fatalf("likes=%d but |likedBy|=%d after toggling %s", likes, len(likedBy), u)
		}
	}
	// a: 3 toggles -> liked; b,c: 2 -> not; d: 1 -> liked.
	if likes != 2 || !likedBy["a"] || !likedBy["d"] || likedBy["b"] || likedBy["c"] {
		t.Fatalf("unexpected final state: likes=%d likedBy=%v", likes, likedBy)
	}
}

func TestLoginCheck(t *testing.T) {
	active := &models.User{ID: primitive.NewObjectID(), Status: models.UserActive}
	if err := LoginCheck(active); err != nil {
		t.Errorf("active account should log in, got %v", err)
	}

	banned := &models.User{ID: primitive.NewObjectID(), Status: models.UserBanned}
	if err := LoginCheck(banned); err != ErrAccountBanned {
		t.Errorf("banned account should get ErrAccountBanned, got %v", err)
	}

	// Clients show this string verbatim; keep it stable.
	if BannedLoginMessage != "This account has been banned." {
		t.Errorf("unexpected banned-login message %q", BannedLoginMessage)
	}
}

func TestScrubMessage(t *testing.T) {
	m := &models.Message{
		Text:     "original content",
		Type:     models.MessageImage,
		MediaURL: "https://example.com/img.jpg",
	}
	ScrubMessage(m)

	if !m.Deleted {
		t.Error("scrubbed message should carry the deleted flag")
	}
	if m.Text != DeletedMessageText {
		t.Errorf("text = %q, want the fixed placeholder", m.Text)
	}
	if m.MediaURL != "" {
		t.Errorf("media should be cleared, got %q", m.MediaURL)
	}
}

func TestReportTransitions(t *testing.T) {
	apply, err := ReportTransition(models.ReportPending, models.ReportResolved)
	if err != nil || !apply {
		t.Errorf("pending->resolved should apply, got apply=%v err=%v", apply, err)
	}

	apply, err = ReportTransition(models.ReportPending, models.ReportDismissed)
	if err != nil || !apply {
		t.Errorf("pending->dismissed should apply, got apply=%v err=%v", apply, err)
	}

	// Repeating the same terminal transition is an idempotent no-op.
	apply, err = ReportTransition(models.ReportResolved, models.ReportResolved)
	if err != nil || apply {
		t.Errorf("resolved->resolved should be a no-op, got apply=%v err=%v", apply, err)
	}

	// Closed reports never move again.
	if _, err := ReportTransition(models.ReportResolved, models.ReportDismissed); err != ErrReportClosed {
		t.Errorf("resolved->dismissed should fail with ErrReportClosed, got %v", err)
	}
	if _, err := ReportTransition(models.ReportDismissed, models.ReportResolved); err != ErrReportClosed {
		t.Errorf("dismissed->resolved should fail with ErrReportClosed, got %v", err)
	}
	if _, err := ReportTransition(models.ReportResolved, models.ReportPending); err != ErrReportClosed {
		t.Errorf("reports must not reopen, got %v", err)
	}
}

func TestCanSendMessage(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, Status: models.UserActive}
	admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, Status: models.UserActive}

	open := &models.Channel{ID: "main", Status: models.ChannelOpen}
	if err := CanSendMessage(user, open); err != nil {
		t.Errorf("active user in open channel: %v", err)
	}

	closed := &models.Channel{ID: "main", Status: models.ChannelClosed}
	if err := CanSendMessage(user, closed); err != ErrChannelClosed {
		t.Errorf("plain user in closed channel should get ErrChannelClosed, got %v", err)
	}
	if err := CanSendMessage(admin, closed); err != nil {
		t.Errorf("admins may post in closed channels, got %v", err)
	}

	blocked := &models.Channel{ID: "main", Status: models.ChannelOpen,
		BlockedUsers: []string{user.ID.Hex()}}
	if err := CanSendMessage(user, blocked); err != ErrChannelBlocked {
		t.Errorf("blocked user should get ErrChannelBlocked, got %v", err)
	}

	// The block holds even for admins and in closed channels: block is
	// per-user, status is global.
	blockedAdmin := &models.Channel{ID: "main", Status: models.ChannelClosed,
		BlockedUsers: []string{admin.ID.Hex()}}
	if err := CanSendMessage(admin, blockedAdmin); err != ErrChannelBlocked {
		t.Errorf("blocked admin should get ErrChannelBlocked, got %v", err)
	}

	bannedUser := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, Status: models.UserBanned}
	if err := CanSendMessage(bannedUser, open); err != ErrAccountBanned {
		t.Errorf("banned user should get ErrAccountBanned, got %v", err)
	}
}

func TestCountUnread(t *testing.T) {
	reader := primitive.NewObjectID()
	other := primitive.NewObjectID()

	msgs := []models.Message{
		{SenderID: other, CreatedAt: 100},
		{SenderID: other, CreatedAt: 200},
		{SenderID: reader, CreatedAt: 250}, // own message never counts
		{SenderID: other, CreatedAt: 300},
		{SenderID: other, CreatedAt: 400, Deleted: true}, // deleted never counts
	}

	if n := CountUnread(msgs, 0, reader); n != 3 {
		t.Errorf("unread from zero watermark = %d, want 3", n)
	}
	if n := CountUnread(msgs, 200, reader); n != 1 {
		t.Errorf("unread past watermark 200 = %d, want 1", n)
	}
	// A message stamped exactly at the watermark was covered by that read.
	if n := CountUnread(msgs, 300, reader); n != 0 {
		t.Errorf("unread at watermark 300 = %d, want 0", n)
	}
	if n := CountUnread(msgs, 500, reader); n != 0 {
		t.Errorf("unread after mark-as-read = %d, want 0", n)
	}
}

func TestDistrictChannelID(t *testing.T) {
	cases := map[string]string{
		"Deg. Hodan":    "deghodan",
		"Deg. Deyniile": "degdeyniile",
		"North":         "north",
		"Ward 12":       "ward12",
	}
	for in, want := range cases {
		if got := DistrictChannelID(in); got != want {
			t.Errorf("DistrictChannelID(%q) = %q, want %q", in, got, want)
		}
	}
}
