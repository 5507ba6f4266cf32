package reminder

import "context"

// StoreAPI is the persistence contract for the reminder policy engine.
// Profile reads return a consistent per-employee snapshot, never a torn
// view of a profile being updated concurrently.
type StoreAPI interface {
	UpsertProfile(ctx context.Context, profile EmployeeProfile) error
	GetProfile(ctx context.Context, employeeID string) (EmployeeProfile, error)
	ListProfiles(ctx context.Context) ([]EmployeeProfile, error)
	SaveHistory(ctx context.Context, employeeID string, history InterviewHistory) error

	UpsertPolicy(ctx context.Context, policy ReminderPolicy) error
	// GetPolicy resolves the (status, department) override; department ""
	// is the status-level default.
	GetPolicy(ctx context.Context, status EmploymentStatus, department string) (ReminderPolicy, bool, error)
	ListPolicies(ctx context.Context) ([]ReminderPolicy, error)
}
