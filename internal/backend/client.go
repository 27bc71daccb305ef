package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/familyhub/internal/config"
	profiledomain "github.com/smallbiznis/familyhub/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("backend_not_configured")

// Client calls the admin API of the backend-as-a-service.
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	log        *zap.Logger
}

type errorResponse struct {
	Message string `json:"msg"`
	Error   string `json:"error"`
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return New(cfg.Backend.URL, cfg.Backend.ServiceKey, log)
}

func New(baseURL, serviceKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		serviceKey: strings.TrimSpace(serviceKey),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log.Named("backend.client"),
	}
}

// DeleteUser removes the auth user. A user that is already gone is not an
// error.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if c.baseURL == "" || c.serviceKey == "" {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.log.Info("auth user already deleted", zap.String("user_id", userID))
		return nil
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("delete user: %s", readError(resp))
	}
	c.log.Info("auth user deleted", zap.String("user_id", userID))
	return nil
}

func readError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := strings.TrimSpace(parsed.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(parsed.Error); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

var Module = fx.Module("backend.client",
	fx.Provide(fx.Annotate(
		NewClient,
		fx.As(fx.Self()),
		fx.As(new(profiledomain.UserDeleter)),
	)),
)
