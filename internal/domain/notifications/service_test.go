package notifications

import (
	"context"
	"errors"
	"testing"
)

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, from, to, subject, body string) error {
	m.sent = append(m.sent, to)
	return m.err
}

func TestNotifyRecordsAndMails(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(NewMemoryStore(), mailer)
	ctx := context.Background()

	if err := svc.Notify(ctx, "emp-1", "akira@example.com", TypeBookingCreated, "Interview booked", "details"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "akira@example.com" {
		t.Fatalf("mailer not invoked: %v", mailer.sent)
	}

	items, err := svc.List(ctx, "emp-1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Type != TypeBookingCreated || items[0].Read {
		t.Fatalf("unexpected inbox: %+v", items)
	}
}

func TestNotifySurvivesMailerFailure(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc := New(NewMemoryStore(), mailer)
	ctx := context.Background()

	if err := svc.Notify(ctx, "emp-1", "akira@example.com", TypeReminderDue, "Reminder", "due soon"); err != nil {
		t.Fatalf("mailer failure must not surface: %v", err)
	}
	count, err := svc.Count(ctx, "emp-1")
	if err != nil || count != 1 {
		t.Fatalf("record missing after mailer failure: count=%d err=%v", count, err)
	}
}

func TestNotifySkipsMailWithoutAddress(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(NewMemoryStore(), mailer)

	if err := svc.Notify(context.Background(), "emp-1", "", TypeReminderOverdue, "Overdue", "book now"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("mail sent without an address: %v", mailer.sent)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	svc := New(NewMemoryStore(), nil)
	ctx := context.Background()

	if err := svc.Notify(ctx, "emp-1", "", TypeBookingConfirmed, "Confirmed", "see you"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	items, _ := svc.List(ctx, "emp-1", 1, 0)
	if len(items) != 1 {
		t.Fatalf("expected one notification, got %d", len(items))
	}
	id := items[0].ID

	if err := svc.MarkRead(ctx, "emp-2", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := svc.MarkRead(ctx, "emp-1", id); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	items, _ = svc.List(ctx, "emp-1", 1, 0)
	if !items[0].Read {
		t.Fatal("notification not marked read")
	}
}
