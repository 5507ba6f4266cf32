package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*EmployeeProfile
	policies map[string]*ReminderPolicy
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		profiles: make(map[string]*EmployeeProfile),
		policies: make(map[string]*ReminderPolicy),
	}
	for _, p := range DefaultPolicies() {
		copied := p
		s.policies[policyKey(p.Status, p.Department)] = &copied
	}
	return s
}

func policyKey(status EmploymentStatus, department string) string {
	return string(status) + "|" + department
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, profile EmployeeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[profile.EmployeeID]; ok {
		// Interview history survives HR-feed updates; the feed owns
		// everything else.
		profile.History = existing.History
	}
	profile.UpdatedAt = time.Now().UTC()
	copied := profile
	s.profiles[profile.EmployeeID] = &copied
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, employeeID string) (EmployeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[employeeID]
	if !ok {
		return EmployeeProfile{}, fmt.Errorf("profile %s: %w", employeeID, ErrProfileNotFound)
	}
	return *profile, nil
}

func (s *MemoryStore) ListProfiles(ctx context.Context) ([]EmployeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EmployeeProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		out = append(out, *profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (s *MemoryStore) SaveHistory(ctx context.Context, employeeID string, history InterviewHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[employeeID]
	if !ok {
		return fmt.Errorf("profile %s: %w", employeeID, ErrProfileNotFound)
	}
	profile.History = history
	profile.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpsertPolicy(ctx context.Context, policy ReminderPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := policy
	s.policies[policyKey(policy.Status, policy.Department)] = &copied
	return nil
}

func (s *MemoryStore) GetPolicy(ctx context.Context, status EmploymentStatus, department string) (ReminderPolicy, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[policyKey(status, department)]
	if !ok {
		return ReminderPolicy{}, false, nil
	}
	return *policy, true, nil
}

func (s *MemoryStore) ListPolicies(ctx context.Context) ([]ReminderPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ReminderPolicy, 0, len(s.policies))
	for _, policy := range s.policies {
		out = append(out, *policy)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status == out[j].Status {
			return out[i].Department < out[j].Department
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}
