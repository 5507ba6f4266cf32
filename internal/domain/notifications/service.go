package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Mailer delivers a notification out of process. Delivery transport is
// an external concern; the default implementation is a noop.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Notify records what should be dispatched to an employee and hands it
// to the mailer if one is configured. Mailer failures are logged, never
// surfaced: the record is the source of truth.
func (s *Service) Notify(ctx context.Context, employeeID, email, ntype, title, body string) error {
	n := Notification{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Type:       ntype,
		Title:      title,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	if s.Mailer == nil || email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "employeeId", employeeID, "type", ntype, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, employeeID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, employeeID, limit, offset)
}

func (s *Service) Count(ctx context.Context, employeeID string) (int, error) {
	return s.store.CountNotifications(ctx, employeeID)
}

func (s *Service) MarkRead(ctx context.Context, employeeID, notificationID string) error {
	return s.store.MarkRead(ctx, employeeID, notificationID)
}
