package authz

import (
	"testing"

	"civiclink/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func makeUser(role models.Role, perms models.Permissions) *models.User {
	return &models.User{
		ID:          primitive.NewObjectID(),
		Role:        role,
		Status:      models.UserActive,
		Permissions: perms,
	}
}

func TestSuperAdminPassesEverything(t *testing.T) {
	super := makeUser(models.RoleSuperAdmin, models.Permissions{})
	admin := makeUser(models.RoleAdmin, models.Permissions{ManageUsers: true})

	actions := []Action{
		ActionBanUser, ActionVerifyUser, ActionDeleteContent,
		ActionBlockFromChannel, ActionManageChannel, ActionManageDistrict,
		ActionChangeRole,
	}
	for _, action := range actions {
		if !CanPerform(super, action, admin) {
			t.Errorf("super_admin denied %s against an admin", action)
		}
	}
}

func TestAdminNeedsCapabilityFlag(t *testing.T) {
	target := makeUser(models.RoleUser, models.Permissions{})

	admin := makeUser(models.RoleAdmin, models.Permissions{})
	if CanPerform(admin, ActionBanUser, target) {
		t.Error("admin without manageUsers should not ban")
	}
	if CanPerform(admin, ActionVerifyUser, target) {
		t.Error("admin without verifyUsers should not verify")
	}
	if CanPerform(admin, ActionDeleteContent, target) {
		t.Error("admin without managePosts should not delete content")
	}
	if CanPerform(admin, ActionManageChannel, nil) {
		t.Error("admin without manageChannels should not edit channels")
	}
	if CanPerform(admin, ActionManageDistrict, nil) {
		t.Error("admin without manageDistricts should not add districts")
	}

	granted := makeUser(models.RoleAdmin, models.Permissions{
		ManagePosts:     true,
		ManageDistricts: true,
		ManageUsers:     true,
		VerifyUsers:     true,
		ManageChannels:  true,
	})
	if !CanPerform(granted, ActionBanUser, target) {
		t.Error("admin with manageUsers should ban a plain user")
	}
	if !CanPerform(granted, ActionVerifyUser, target) {
		t.Error("admin with verifyUsers should verify a plain user")
	}
	if !CanPerform(granted, ActionDeleteContent, target) {
		t.Error("admin with managePosts should delete content")
	}
	if !CanPerform(granted, ActionManageChannel, nil) {
		t.Error("admin with manageChannels should edit channels")
	}
	if !CanPerform(granted, ActionManageDistrict, nil) {
		t.Error("admin with manageDistricts should add districts")
	}
}

func TestAdminsCannotActionAdmins(t *testing.T) {
	admin := makeUser(models.RoleAdmin, models.Permissions{
		ManageUsers: true, VerifyUsers: true, ManagePosts: true,
	})
	peer := makeUser(models.RoleAdmin, models.Permissions{})
	super := makeUser(models.RoleSuperAdmin, models.Permissions{})

	if CanPerform(admin, ActionBanUser, peer) {
		t.Error("admin should not ban a fellow admin regardless of flags")
	}
	if CanPerform(admin, ActionBanUser, super) {
		t.Error("admin should never ban a super_admin")
	}
	if CanPerform(admin, ActionVerifyUser, peer) {
		t.Error("admin should not verify a fellow admin")
	}
	if CanPerform(admin, ActionDeleteContent, super) {
		t.Error("admin should not delete a super_admin's content")
	}
}

func TestChannelBlockSkipsPeerRestriction(t *testing.T) {
	admin := makeUser(models.RoleAdmin, models.Permissions{ManageUsers: true})
	if !CanPerform(admin, ActionBlockFromChannel, nil) {
		t.Error("admin with manageUsers should block users per channel")
	}

	without := makeUser(models.RoleAdmin, models.Permissions{})
	if CanPerform(without, ActionBlockFromChannel, nil) {
		t.Error("admin without manageUsers should not block users")
	}
}

func TestChangeRoleIsSuperAdminOnly(t *testing.T) {
	admin := makeUser(models.RoleAdmin, models.Permissions{
		ManagePosts: true, ManageDistricts: true, ManageUsers: true,
		VerifyUsers: true, ManageChannels: true,
	})
	target := makeUser(models.RoleUser, models.Permissions{})

	if CanPerform(admin, ActionChangeRole, target) {
		t.Error("no capability flag should grant role changes")
	}
	if !CanPerform(makeUser(models.RoleSuperAdmin, models.Permissions{}), ActionChangeRole, target) {
		t.Error("super_admin should change roles")
	}
}

func TestPlainUsersAndBannedActorsPassNothing(t *testing.T) {
	target := makeUser(models.RoleUser, models.Permissions{})

	user := makeUser(models.RoleUser, models.Permissions{ManageUsers: true})
	if CanPerform(user, ActionBanUser, target) {
		t.Error("plain user should pass no moderation check even with stray flags")
	}

	banned := makeUser(models.RoleSuperAdmin, models.Permissions{})
	banned.Status = models.UserBanned
	if CanPerform(banned, ActionBanUser, target) {
		t.Error("banned actor should be denied at the access layer")
	}

	if CanPerform(nil, ActionBanUser, target) {
		t.Error("nil actor should be denied")
	}
}
