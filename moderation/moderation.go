// Package moderation holds the content/account/channel/report lifecycle
// rules and the derived-state computations (like toggles, unread counts).
// Handlers call into it before touching the store so that a denied action
// never issues a partial write.
package moderation

import (
	"errors"
	"regexp"
	"strings"

	"civiclink/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeletedMessageText replaces the body of a soft-deleted message. The
// original content is not recoverable afterwards.
const DeletedMessageText = "This message was deleted by the admin"

// BannedLoginMessage is the fixed denial shown to a banned account at
// session start.
const BannedLoginMessage = "This account has been banned."

var (
	ErrAccountBanned  = errors.New("account is banned")
	ErrChannelClosed  = errors.New("channel is closed")
	ErrChannelBlocked = errors.New("user is blocked in this channel")
	ErrReportClosed   = errors.New("report is already closed")
)

// LoginCheck gates session establishment. A banned account yields
// ErrAccountBanned; callers surface BannedLoginMessage and issue no
// session token. The same check re-runs on every authenticated request,
// so a ban also cuts off tokens issued before it.
func LoginCheck(u *models.User) error {
	if u.Status == models.UserBanned {
		return ErrAccountBanned
	}
	return nil
}

// ScrubMessage applies the soft-delete to a message in place: the flag is
// set, the body is replaced with the fixed notice and media is cleared.
func ScrubMessage(m *models.Message) {
	m.Deleted = true
	m.Text = DeletedMessageText
	m.MediaURL = ""
}

// CanSendMessage decides whether sender may post to ch. A per-user block
// denies regardless of channel status; a closed channel denies only plain
// users, admins may still post.
func CanSendMessage(sender *models.User, ch *models.Channel) error {
	if sender.Status == models.UserBanned {
		return ErrAccountBanned
	}
	if ch.IsBlocked(sender.ID.Hex()) {
		return ErrChannelBlocked
	}
	if ch.Status == models.ChannelClosed && !sender.IsAdmin() {
		return ErrChannelClosed
	}
	return nil
}

// ToggleLike flips userID's membership in likedBy and returns the updated
// set, the new count and whether the user now likes the item. The count is
// derived from set membership, never incremented blindly, so a double
// toggle restores the prior state exactly.
func ToggleLike(likedBy map[string]bool, likes int, userID string) (map[string]bool, int, bool) {
	if likedBy == nil {
		likedBy = make(map[string]bool)
	}
	if likedBy[userID] {
		delete(likedBy, userID)
		if likes > 0 {
			likes--
		}
		return likedBy, likes, false
	}
	likedBy[userID] = true
	return likedBy, likes + 1, true
}

// ReportTransition validates moving a report from current to next.
// apply == false with a nil error means the report already sits in the
// requested terminal state and the call is an idempotent no-op.
func ReportTransition(current, next models.ReportStatus) (bool, error) {
	if current == next {
		return false, nil
	}
	if current != models.ReportPending {
		return false, ErrReportClosed
	}
	return next == models.ReportResolved || next == models.ReportDismissed, nil
}

// CountUnread derives a channel's unread count against the reader's
// last-read watermark. Deleted messages and the reader's own messages never
// count; a send implicitly marks the channel read for the sender.
func CountUnread(msgs []models.Message, lastReadAt int64, readerID primitive.ObjectID) int {
	n := 0
	for i := range msgs {
		m := &msgs[i]
		if m.Deleted || m.SenderID == readerID {
			continue
		}
		if m.CreatedAt > lastReadAt {
			n++
		}
	}
	return n
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]`)

// DistrictChannelID derives the channel id provisioned for a district:
// the lowercased name stripped to ASCII letters and digits.
func DistrictChannelID(district string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(district), "")
}
