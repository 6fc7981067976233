package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"serviceease/internal/model"
	"serviceease/internal/repository"
	ws "serviceease/internal/websocket"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer sends one message to one recipient. The SMTP implementation lives
// below; tests substitute a recorder.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers notification email through a plain SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// NotificationService owns the durable notification outbox. Enqueue writes
// the row inside the caller's transaction; Dispatch runs after commit and
// fans out to email and the websocket hub, logging failures instead of
// propagating them so delivery can never undo an approval.
type NotificationService interface {
	Enqueue(ctx context.Context, n *model.Notification) error
	Dispatch(ctx context.Context, n *model.Notification)
	ListForUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	mailer           Mailer
	hub              *ws.Hub
}

func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	mailer Mailer,
	hub *ws.Hub,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		mailer:           mailer,
		hub:              hub,
	}
}

func (s *notificationService) Enqueue(ctx context.Context, n *model.Notification) error {
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

func (s *notificationService) Dispatch(ctx context.Context, n *model.Notification) {
	if s.hub != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"event":        "notification",
			"user_id":      n.UserID.String(),
			"type":         n.Type,
			"title":        n.Title,
			"message":      n.Message,
			"priority":     n.Priority,
			"reference_id": n.ReferenceID,
		})
		if err == nil {
			s.hub.Broadcast <- payload
		}
	}

	if s.mailer != nil {
		recipient, err := s.userRepo.FindByID(ctx, n.UserID)
		if err != nil {
			log.WithError(err).Warn("notification recipient lookup failed, skipping email")
		} else if err := s.mailer.Send(recipient.Email, n.Title, n.Message); err != nil {
			log.WithError(err).WithField("user", recipient.Email).Warn("notification email delivery failed")
		}
	}

	if err := s.notificationRepo.MarkDispatched(ctx, n.ID, time.Now()); err != nil {
		log.WithError(err).Warn("failed to mark notification dispatched")
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Notification, int64, error) {
	return s.notificationRepo.ListForUser(ctx, userID, page, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}
