package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jetsocket/backend/internal/logger"
	"github.com/jetsocket/backend/internal/models"
	"gorm.io/gorm"
)

var contactLog = logger.Get("contact")

const (
	maxContactName    = 100
	maxContactMessage = 5000
)

// ContactNotifier forwards a stored contact message to the team.
type ContactNotifier interface {
	NotifyContact(ctx context.Context, msg *models.ContactMessage) error
}

type ContactInput struct {
	Name      string
	Email     string
	Message   string
	IPAddress string
}

type ContactService struct {
	db       *gorm.DB
	notifier ContactNotifier
}

// NewContactService creates the service. notifier may be nil.
func NewContactService(db *gorm.DB, notifier ContactNotifier) *ContactService {
	return &ContactService{db: db, notifier: notifier}
}

// Submit validates and stores a contact form message. Notification failures
// are logged and do not fail the submission.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	name := strings.TrimSpace(in.Name)
	message := strings.TrimSpace(in.Message)
	if name == "" || message == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxContactName {
		return nil, fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, maxContactName)
	}
	if utf8.RuneCountInString(message) > maxContactMessage {
		return nil, fmt.Errorf("%w: message must be at most %d characters", ErrInvalidInput, maxContactMessage)
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		Name:      name,
		Email:     email,
		Message:   message,
		IPAddress: in.IPAddress,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("save contact message: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyContact(ctx, msg); err != nil {
			contactLog.Warn("contact notification failed", "id", msg.ID, err)
		}
	}
	return msg, nil
}

// MailNotifier emails contact messages to a fixed address.
type MailNotifier struct {
	mailer *Mailer
	to     string
}

// NewMailNotifier returns nil when mail is not configured.
func NewMailNotifier(mailer *Mailer, to string) *MailNotifier {
	if !mailer.Configured() || to == "" {
		return nil
	}
	return &MailNotifier{mailer: mailer, to: to}
}

func (n *MailNotifier) NotifyContact(_ context.Context, msg *models.ContactMessage) error {
	if n == nil {
		return nil
	}
	subject := fmt.Sprintf("[JetSocket] Contact from %s", msg.Name)
	body := fmt.Sprintf("Name: %s\nEmail: %s\nIP: %s\n\n%s\n", msg.Name, msg.Email, msg.IPAddress, msg.Message)
	return n.mailer.Send(n.to, subject, body, msg.Email)
}
