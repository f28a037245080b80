// Package authz evaluates moderation permissions. It is a pure function of
// the acting user's role and capability flags plus the target's role; it
// never touches the store, so callers must pass the freshest user records
// they hold (permissions can change between render and action).
package authz

import "civiclink/models"

type Action string

const (
	ActionBanUser          Action = "ban_user"
	ActionVerifyUser       Action = "verify_user"
	ActionDeleteContent    Action = "delete_content"
	ActionBlockFromChannel Action = "block_from_channel"
	ActionManageChannel    Action = "manage_channel"
	ActionManageDistrict   Action = "manage_district"
	ActionChangeRole       Action = "change_role"
)

// CanPerform reports whether actor may perform action. target is the user
// being acted on, or nil for actions without a user target (channel edits,
// district management, content deletion).
//
// A super_admin passes every check. An admin passes only if the mapped
// capability flag is granted and the target is not a peer admin or a
// super_admin; blocking a user from a single channel is the one exception
// that skips the peer restriction. Plain users pass nothing. Changing roles
// or permissions is reserved to super_admin: no flag grants it.
func CanPerform(actor *models.User, action Action, target *models.User) bool {
	if actor == nil || actor.Status == models.UserBanned {
		return false
	}
	if actor.Role == models.RoleSuperAdmin {
		return true
	}
	if actor.Role != models.RoleAdmin {
		return false
	}

	perms := actor.Permissions
	switch action {
	case ActionBanUser:
		return perms.ManageUsers && !targetIsAdmin(target)
	case ActionVerifyUser:
		return perms.VerifyUsers && !targetIsAdmin(target)
	case ActionDeleteContent:
		return perms.ManagePosts && !targetIsAdmin(target)
	case ActionBlockFromChannel:
		// Per-channel blocks carry no admin-peer restriction.
		return perms.ManageUsers
	case ActionManageChannel:
		return perms.ManageChannels
	case ActionManageDistrict:
		return perms.ManageDistricts
	case ActionChangeRole:
		return false
	}
	return false
}

func targetIsAdmin(target *models.User) bool {
	return target != nil && target.IsAdmin()
}
