package notifications

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Notification)}
}

func (s *MemoryStore) CreateNotification(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := n
	s.items[n.ID] = &copied
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, employeeID string, limit, offset int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.items {
		if n.EmployeeID == employeeID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountNotifications(ctx context.Context, employeeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if n.EmployeeID == employeeID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, employeeID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[notificationID]
	if !ok || n.EmployeeID != employeeID {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	n.Read = true
	return nil
}
