package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/properties"
)

const (
	colorRed   = 16711680
	colorGreen = 65280
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Discord posts run outcomes to webhooks. An empty URL disables that kind of message.
type Discord struct {
	SuccessURL string
	ErrorURL   string
	Client     *http.Client
}

// DiscordFromEnv reads DISCORD_SUCCESS_NOTIFICATION_URL and DISCORD_ERROR_NOTIFICATION_URL.
func DiscordFromEnv() *Discord {
	return &Discord{
		SuccessURL: properties.DiscordSuccessNotificationUrl(),
		ErrorURL:   properties.DiscordErrorNotificationUrl(),
	}
}

func (d *Discord) Enabled() bool {
	return d != nil && (d.SuccessURL != "" || d.ErrorURL != "")
}

func (d *Discord) SendError(ctx context.Context, errorMessage string) error {
	if d == nil || d.ErrorURL == "" {
		return nil
	}
	return d.send(ctx, d.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("NDVI run failed.\n\nAn error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func (d *Discord) SendSuccess(ctx context.Context, successMessage string) error {
	if d == nil || d.SuccessURL == "" {
		return nil
	}
	return d.send(ctx, d.SuccessURL, DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: fmt.Sprintf("NDVI run finished.\n\n%s", successMessage),
		Color:       colorGreen,
	})
}

func (d *Discord) send(ctx context.Context, url string, embed DiscordEmbed) error {
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
