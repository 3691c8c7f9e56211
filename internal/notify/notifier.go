package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"camellia/internal/events"
	"camellia/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the narrow slice of the bot API the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotificationStore persists admin notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier turns appointment events into persisted admin notifications and,
// when a bot is configured, Telegram messages to the salon owner.
type Notifier struct {
	store       NotificationStore
	telegram    TelegramSender
	adminChatID int64
	logger      zerolog.Logger
}

func New(store NotificationStore, telegram TelegramSender, adminChatID int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		store:       store,
		telegram:    telegram,
		adminChatID: adminChatID,
		logger:      logger.With().Str("component", "notify").Logger(),
	}
}

// Subscribe attaches the notifier to appointment lifecycle and review events.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventAppointmentRequested,
		events.EventAppointmentConfirmed,
		events.EventAppointmentCancelled,
		events.EventAppointmentCompleted,
	} {
		bus.Subscribe(eventType, n.handleAppointmentEvent)
	}
	bus.Subscribe(events.EventReviewSubmitted, n.handleReviewEvent)
}

func (n *Notifier) handleAppointmentEvent(event *events.Event) error {
	var payload events.AppointmentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("decode event payload")
		return err
	}

	n.deliver(event.Type, formatMessage(event.Type, payload))
	return nil
}

func (n *Notifier) handleReviewEvent(event *events.Event) error {
	var review models.Review
	if err := json.Unmarshal(event.Payload, &review); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("decode event payload")
		return err
	}

	message := fmt.Sprintf("New review from %s (%d/5), awaiting moderation", review.AuthorName, review.Rating)
	n.deliver(event.Type, message)
	return nil
}

func (n *Notifier) deliver(eventType, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notification := &models.Notification{Type: eventType, Message: message}
	if err := n.store.CreateNotification(ctx, notification); err != nil {
		n.logger.Error().Err(err).Str("event", eventType).Msg("persist notification")
	}

	if n.telegram != nil && n.adminChatID != 0 {
		msg := tgbotapi.NewMessage(n.adminChatID, message)
		if _, err := n.telegram.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", n.adminChatID).Msg("send telegram notification")
		}
	}
}

func formatMessage(eventType string, p events.AppointmentEventPayload) string {
	when := p.StartAt.Format("Mon, 02 Jan 15:04")
	switch eventType {
	case events.EventAppointmentRequested:
		return fmt.Sprintf("New booking request: %s — %s at %s (%s)", p.ClientName, p.ServiceName, when, p.ClientPhone)
	case events.EventAppointmentConfirmed:
		return fmt.Sprintf("Booking confirmed: %s — %s at %s", p.ClientName, p.ServiceName, when)
	case events.EventAppointmentCancelled:
		return fmt.Sprintf("Booking cancelled: %s — %s at %s", p.ClientName, p.ServiceName, when)
	case events.EventAppointmentCompleted:
		return fmt.Sprintf("Visit completed: %s — %s at %s", p.ClientName, p.ServiceName, when)
	}
	return fmt.Sprintf("%s: %s — %s at %s", eventType, p.ClientName, p.ServiceName, when)
}
