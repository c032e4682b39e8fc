package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

const (
	colorRed   = 16711680
	colorGreen = 65280

	// Discord rejects embed descriptions above 4096 characters.
	maxDescription = 4000
)

// Notifier posts submission outcomes to Discord webhooks. An empty URL
// disables that kind of notification.
type Notifier struct {
	ErrorURL   string
	SuccessURL string
	client     *http.Client
}

func NewNotifier(errorURL, successURL string) *Notifier {
	return &Notifier{
		ErrorURL:   errorURL,
		SuccessURL: successURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) SendError(ctx context.Context, errorMessage string) error {
	return n.send(ctx, n.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("An error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func (n *Notifier) SendSuccess(ctx context.Context, successMessage string) error {
	return n.send(ctx, n.SuccessURL, DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: successMessage,
		Color:       colorGreen,
	})
}

func (n *Notifier) send(ctx context.Context, url string, embed DiscordEmbed) error {
	if n == nil || url == "" {
		return nil
	}
	embed.Description = truncateDescription(embed.Description)

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}

// truncateDescription cuts s to at most maxDescription bytes on a rune boundary.
func truncateDescription(s string) string {
	if len(s) <= maxDescription {
		return s
	}
	cut := maxDescription
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
