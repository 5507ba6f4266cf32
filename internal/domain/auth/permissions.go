package auth

import "context"

const (
	RoleEmployee    = "employee"
	RoleCoordinator = "coordinator"
	RoleAdmin       = "admin"
)

const (
	PermBookingRead    = "booking.read"
	PermBookingRequest = "booking.request"
	PermBookingAdmin   = "booking.admin"
	PermSlotsManage    = "slots.manage"
	PermRemindersRead  = "reminders.read"
	PermProfilesWrite  = "profiles.write"
	PermReportsRead    = "reports.read"
	PermAuditRead      = "audit.read"
	PermSystemAdmin    = "admin.system"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermBookingRead,
		PermBookingRequest,
		PermRemindersRead,
	},
	RoleCoordinator: {
		PermBookingRead,
		PermBookingRequest,
		PermBookingAdmin,
		PermSlotsManage,
		PermRemindersRead,
		PermReportsRead,
	},
	RoleAdmin: {
		PermBookingRead,
		PermBookingRequest,
		PermBookingAdmin,
		PermSlotsManage,
		PermRemindersRead,
		PermProfilesWrite,
		PermReportsRead,
		PermAuditRead,
		PermSystemAdmin,
	},
}

// StaticPermissions satisfies the middleware PermissionStore against the
// fixed role table; roles come from the identity source, not a database.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
