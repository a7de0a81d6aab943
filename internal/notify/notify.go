package notify

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/kafka"
)

// Notifier pushes Telegram alerts when new listings match a user's alert
// rules. It is a one-way consumer: it never reads user messages.
type Notifier struct {
	api *tgbotapi.BotAPI
	db  *database.DB
}

func NewNotifier(token string, db *database.DB) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	api.Debug = false
	log.Printf("Notifier is authorized as: @%s", api.Self.UserName)

	return &Notifier{api: api, db: db}, nil
}

// HandleNewListings matches the event's listings against every active
// alert and messages the linked Telegram chats.
func (n *Notifier) HandleNewListings(event kafka.NewListingsEvent) error {
	alerts, err := n.db.GetActiveAlerts()
	if err != nil {
		return fmt.Errorf("load active alerts: %w", err)
	}

	for _, alert := range alerts {
		if alert.Profile.TelegramChatID == 0 {
			continue
		}

		matched := matchListings(alert, event.Listings)
		if len(matched) == 0 {
			continue
		}

		n.sendMessage(alert.Profile.TelegramChatID, formatAlert(alert, matched))
	}

	return nil
}

// HandleRunCompleted logs run outcomes; nothing user-facing.
func (n *Notifier) HandleRunCompleted(event kafka.RunCompletedEvent) error {
	log.Printf("Run %d completed for %s: %d upserted, %d failed",
		event.RunID, event.City, event.ListingsUpserted, event.ListingsFailed)
	return nil
}

// HandleScrapeRequest is for the ingestor, not us.
func (n *Notifier) HandleScrapeRequest(event kafka.ScrapeRequestEvent) error {
	return nil
}

func matchListings(alert *database.Alert, listings []kafka.ListingSummary) []kafka.ListingSummary {
	var matched []kafka.ListingSummary
	for _, l := range listings {
		if !strings.EqualFold(l.City, alert.City) {
			continue
		}
		if l.Status != database.StatusJustListed {
			continue
		}
		if l.UnformattedPrice != nil {
			if alert.MinPrice > 0 && *l.UnformattedPrice < alert.MinPrice {
				continue
			}
			if alert.MaxPrice > 0 && *l.UnformattedPrice > alert.MaxPrice {
				continue
			}
		}
		matched = append(matched, l)
	}
	return matched
}

func formatAlert(alert *database.Alert, matched []kafka.ListingSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new listings in %s\n", len(matched), alert.City)

	for i, l := range matched {
		if i >= 5 {
			fmt.Fprintf(&b, "...and %d more in your dashboard\n", len(matched)-i)
			break
		}
		price := l.Price
		if price == "" {
			price = "price on request"
		}
		fmt.Fprintf(&b, "• %s - %s\n", l.City, price)
	}

	return b.String()
}

func (n *Notifier) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}
