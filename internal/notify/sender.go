package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mvndaai/galaxy-sia/internal/config"
)

// HTTPSender delivers notifications by POSTing the body to the topic's URL,
// ntfy.sh-style: Title and Priority as headers, credentials per the topic's
// configured auth method.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender builds an HTTPSender using client, or http.DefaultClient if
// client is nil. Dispatcher applies its own 10-second per-attempt timeout via
// context, so the client itself needs no timeout of its own.
func NewHTTPSender(client *http.Client) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{client: client}
}

// Send implements Dispatcher's Sender interface.
func (s *HTTPSender) Send(ctx context.Context, topic config.AccountConfig, title, body string, priority int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topic.TopicURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: failed to build request: %w", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", strconv.Itoa(priority))
	applyAuth(req, topic.Auth)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: endpoint returned %s", resp.Status)
	}
	return nil
}

func applyAuth(req *http.Request, auth *config.NtfyAuth) {
	if auth == nil {
		return
	}
	switch auth.Method {
	case config.AuthToken:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case config.AuthUserPass:
		req.SetBasicAuth(auth.User, auth.Password)
	}
}
