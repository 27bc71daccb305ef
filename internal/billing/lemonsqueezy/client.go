package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/familyhub/internal/billing/domain"
	"github.com/smallbiznis/familyhub/internal/config"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.lemonsqueezy.com"
	mediaType      = "application/vnd.api+json"
)

// Client talks to the Lemon Squeezy JSON:API.
type Client struct {
	baseURL string
	apiKey  string
	storeID string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) domain.Provider {
	return New(cfg.LemonSqueezy.BaseURL, cfg.LemonSqueezy.APIKey, cfg.LemonSqueezy.StoreID, log)
}

func New(baseURL, apiKey, storeID string, log *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		storeID: strings.TrimSpace(storeID),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.Named("billing.lemonsqueezy"),
	}
}

type resourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relationship struct {
	Data resourceRef `json:"data"`
}

type checkoutRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Email  string            `json:"email,omitempty"`
				Custom map[string]string `json:"custom"`
			} `json:"checkout_data"`
			ProductOptions struct {
				RedirectURL string `json:"redirect_url,omitempty"`
			} `json:"product_options"`
		} `json:"attributes"`
		Relationships struct {
			Store   relationship `json:"store"`
			Variant relationship `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// CreateCheckout returns the hosted checkout URL.
func (c *Client) CreateCheckout(ctx context.Context, in domain.ProviderCheckout) (string, error) {
	if c.apiKey == "" || c.storeID == "" {
		return "", domain.ErrProviderNotConfigured
	}

	var body checkoutRequest
	body.Data.Type = "checkouts"
	body.Data.Attributes.CheckoutData.Email = strings.TrimSpace(in.Email)
	body.Data.Attributes.CheckoutData.Custom = map[string]string{
		"user_id": in.UserID,
		"plan_id": in.PlanID,
	}
	body.Data.Attributes.ProductOptions.RedirectURL = in.SuccessURL
	body.Data.Relationships.Store.Data = resourceRef{Type: "stores", ID: c.storeID}
	body.Data.Relationships.Variant.Data = resourceRef{Type: "variants", ID: in.VariantID}

	var out checkoutResponse
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts", body, &out); err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	checkoutURL := strings.TrimSpace(out.Data.Attributes.URL)
	if checkoutURL == "" {
		return "", domain.ErrCheckoutURLMissing
	}
	c.log.Info("checkout created",
		zap.String("checkout_id", out.Data.ID),
		zap.String("variant_id", in.VariantID),
	)
	return checkoutURL, nil
}

// CancelSubscription cancels at the end of the current period.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if c.apiKey == "" {
		return domain.ErrProviderNotConfigured
	}
	path := "/v1/subscriptions/" + url.PathEscape(strings.TrimSpace(subscriptionID))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	c.log.Info("subscription cancel requested", zap.String("subscription_id", subscriptionID))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", mediaType)
	if in != nil {
		req.Header.Set("Content-Type", mediaType)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("lemonsqueezy: %s", readError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readError(resp *http.Response) string {
	var parsed errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<10)).Decode(&parsed); err == nil && len(parsed.Errors) > 0 {
		first := parsed.Errors[0]
		if msg := strings.TrimSpace(first.Detail); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(first.Title); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
