package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionUpdated   = "subscription_updated"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventSubscriptionResumed   = "subscription_resumed"
	EventSubscriptionExpired   = "subscription_expired"
)

// Event is one of SubscriptionCreated, SubscriptionUpdated,
// SubscriptionCancelled, SubscriptionResumed, SubscriptionExpired or
// UnknownEvent.
type Event interface {
	Name() string
	isEvent()
}

// Subject is what every subscription event refers to.
type Subject struct {
	SubscriptionID string
	Attributes     Attributes
}

type SubscriptionCreated struct {
	Subject
	UserID string
	PlanID string
}

type SubscriptionUpdated struct{ Subject }

type SubscriptionCancelled struct{ Subject }

type SubscriptionResumed struct{ Subject }

type SubscriptionExpired struct{ Subject }

// UnknownEvent is any event name without a handler. It is logged and
// acknowledged.
type UnknownEvent struct{ EventName string }

func (SubscriptionCreated) Name() string   { return EventSubscriptionCreated }
func (SubscriptionUpdated) Name() string   { return EventSubscriptionUpdated }
func (SubscriptionCancelled) Name() string { return EventSubscriptionCancelled }
func (SubscriptionResumed) Name() string   { return EventSubscriptionResumed }
func (SubscriptionExpired) Name() string   { return EventSubscriptionExpired }
func (e UnknownEvent) Name() string        { return e.EventName }

func (SubscriptionCreated) isEvent()   {}
func (SubscriptionUpdated) isEvent()   {}
func (SubscriptionCancelled) isEvent() {}
func (SubscriptionResumed) isEvent()   {}
func (SubscriptionExpired) isEvent()   {}
func (UnknownEvent) isEvent()          {}

// Attributes mirror data.attributes of the provider envelope.
type Attributes struct {
	SubscriptionID ID        `json:"subscription_id"`
	StoreID        ID        `json:"store_id"`
	CustomerID     ID        `json:"customer_id"`
	OrderID        ID        `json:"order_id"`
	ProductID      ID        `json:"product_id"`
	VariantID      ID        `json:"variant_id"`
	Status         string    `json:"status"`
	CardBrand      *string   `json:"card_brand"`
	CardLastFour   *string   `json:"card_last_four"`
	Pause          *Pause    `json:"pause"`
	Cancelled      bool      `json:"cancelled"`
	TrialEndsAt    Timestamp `json:"trial_ends_at"`
	BillingAnchor  *int      `json:"billing_anchor"`
	URLs           URLs      `json:"urls"`
	RenewsAt       Timestamp `json:"renews_at"`
	EndsAt         Timestamp `json:"ends_at"`
	CreatedAt      Timestamp `json:"created_at"`
	UpdatedAt      Timestamp `json:"updated_at"`
	TestMode       bool      `json:"test_mode"`
}

type Pause struct {
	Mode      string    `json:"mode"`
	ResumesAt Timestamp `json:"resumes_at"`
}

type URLs struct {
	UpdatePaymentMethod string `json:"update_payment_method"`
}

type CustomData struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

type envelope struct {
	Meta struct {
		EventName  string      `json:"event_name"`
		CustomData *CustomData `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         ID         `json:"id"`
		Type       string     `json:"type"`
		Attributes Attributes `json:"attributes"`
	} `json:"data"`
}

// PeekEventName reads meta.event_name without validating the rest of the
// document. Invalid JSON yields "".
func PeekEventName(payload []byte) string {
	var peek struct {
		Meta struct {
			EventName string `json:"event_name"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(payload, &peek); err != nil {
		return ""
	}
	return strings.TrimSpace(peek.Meta.EventName)
}

// ParseEvent validates the envelope and returns the matching Event.
func ParseEvent(payload []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	name := strings.TrimSpace(env.Meta.EventName)
	subject := Subject{
		SubscriptionID: env.Data.Attributes.SubscriptionID.String(),
		Attributes:     env.Data.Attributes,
	}
	if subject.SubscriptionID == "" {
		subject.SubscriptionID = env.Data.ID.String()
	}

	switch name {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionCancelled,
		EventSubscriptionResumed, EventSubscriptionExpired:
	default:
		return UnknownEvent{EventName: name}, nil
	}

	if subject.SubscriptionID == "" {
		return nil, ErrMissingSubscriptionID
	}

	switch name {
	case EventSubscriptionCreated:
		var custom CustomData
		if env.Meta.CustomData != nil {
			custom = *env.Meta.CustomData
		}
		userID := strings.TrimSpace(custom.UserID)
		if userID == "" {
			return nil, ErrMissingUserID
		}
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
		}
		return SubscriptionCreated{
			Subject: subject,
			UserID:  parsed.String(),
			PlanID:  strings.TrimSpace(custom.PlanID),
		}, nil
	case EventSubscriptionUpdated:
		return SubscriptionUpdated{Subject: subject}, nil
	case EventSubscriptionCancelled:
		return SubscriptionCancelled{Subject: subject}, nil
	case EventSubscriptionResumed:
		return SubscriptionResumed{Subject: subject}, nil
	default:
		return SubscriptionExpired{Subject: subject}, nil
	}
}

// ID is a provider identifier that may be encoded as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp is an optional provider time. null and "" decode to the zero value.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// Ptr returns nil for the zero time.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
