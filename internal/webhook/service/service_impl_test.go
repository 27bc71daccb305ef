package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/clock"
	subscriptiondomain "github.com/smallbiznis/familyhub/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/familyhub/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/familyhub/internal/subscription/service"
	"github.com/smallbiznis/familyhub/internal/testutil"
	"github.com/smallbiznis/familyhub/internal/webhook/domain"
	"github.com/smallbiznis/familyhub/internal/webhook/relay"
	"github.com/smallbiznis/familyhub/internal/webhook/signature"
	webhooklogdomain "github.com/smallbiznis/familyhub/internal/webhooklog/domain"
	webhooklogrepo "github.com/smallbiznis/familyhub/internal/webhooklog/repository"
	webhooklogservice "github.com/smallbiznis/familyhub/internal/webhooklog/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	secret  = "whsec_test"
	userID  = "0b8c7d2e-1f3a-4c5b-9d6e-7f8091a2b3c4"
	subID   = "sub_1001"
	planID  = "premium-monthly"
	created = "2025-03-01T10:00:00.000000Z"
	renews  = "2025-04-01T10:00:00.000000Z"
)

type recordingForwarder struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *recordingForwarder) Forward(_ context.Context, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	signer    *signature.HMACVerifier
	forwarder *recordingForwarder
	clock     *clock.FakeClock
}

func setup(t *testing.T, forwarder relay.Forwarder) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t, &subscriptiondomain.Subscription{}, &webhooklogdomain.WebhookLog{})
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))

	subs := subscriptionservice.NewService(subscriptionservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: subscriptionrepo.Provide(), Clock: clk,
	})
	logs := webhooklogservice.New(webhooklogservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: webhooklogrepo.Provide(), Clock: clk,
	})

	recorder := &recordingForwarder{}
	if forwarder == nil {
		forwarder = recorder
	}
	signer := signature.NewHMACVerifier(secret, nil)
	svc := NewService(Params{
		Log:           zap.NewNop(),
		Verifier:      signer,
		Logs:          logs,
		Subscriptions: subs,
		Forwarder:     forwarder,
		Clock:         clk,
	})
	return fixture{db: db, svc: svc, signer: signer, forwarder: recorder, clock: clk}
}

func (f fixture) deliver(t *testing.T, payload string) error {
	t.Helper()
	return f.svc.HandleWebhook(context.Background(), f.signer.Sign([]byte(payload)), []byte(payload))
}

func (f fixture) subscriptions(t *testing.T) []subscriptiondomain.Subscription {
	t.Helper()
	var rows []subscriptiondomain.Subscription
	require.NoError(t, f.db.Order("created_at").Find(&rows).Error)
	return rows
}

func (f fixture) logs(t *testing.T) []webhooklogdomain.WebhookLog {
	t.Helper()
	var rows []webhooklogdomain.WebhookLog
	require.NoError(t, f.db.Order("id").Find(&rows).Error)
	return rows
}

func createdEvent() string {
	return fmt.Sprintf(`{"meta":{"event_name":"subscription_created","custom_data":{"user_id":%q,"plan_id":%q}},`+
		`"data":{"id":"%s","type":"subscriptions","attributes":{"customer_id":5521,"variant_id":615487,"status":"active",`+
		`"card_brand":"visa","card_last_four":"4242","created_at":%q,"renews_at":%q}}}`,
		userID, planID, "1001", created, renews)
}

func lifecycleEvent(name string, attrs string) string {
	return fmt.Sprintf(`{"meta":{"event_name":%q},"data":{"id":"1001","attributes":{"subscription_id":%q%s}}}`, name, subID, attrs)
}

func sub1001CreatedEvent() string {
	return fmt.Sprintf(`{"meta":{"event_name":"subscription_created","custom_data":{"user_id":%q,"plan_id":%q}},`+
		`"data":{"id":"1001","attributes":{"subscription_id":%q,"customer_id":"5521","variant_id":"615487",`+
		`"created_at":%q,"renews_at":%q}}}`, userID, planID, subID, created, renews)
}

func TestCreatedEventIsIdempotent(t *testing.T) {
	f := setup(t, nil)

	require.NoError(t, f.deliver(t, createdEvent()))
	require.NoError(t, f.deliver(t, createdEvent()))

	rows := f.subscriptions(t)
	require.Len(t, rows, 1)
	sub := rows[0]
	assert.Equal(t, "1001", sub.SubscriptionID)
	assert.Equal(t, subscriptiondomain.StatusActive, sub.Status)
	assert.Equal(t, userID, sub.UserID)
	assert.Equal(t, planID, sub.PlanID)
	assert.Equal(t, "5521", sub.CustomerID)
	assert.Equal(t, "615487", sub.VariantID)
	assert.True(t, sub.CurrentPeriodStart.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, sub.CurrentPeriodEnd.Equal(time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, sub.CardLastFour)
	assert.Equal(t, "4242", *sub.CardLastFour)

	for _, l := range f.logs(t) {
		assert.NotNil(t, l.ProcessedAt)
		assert.Nil(t, l.Error)
	}
	assert.Equal(t, 2, f.forwarder.count())
}

func TestInvalidSignatureIsRejectedAndAudited(t *testing.T) {
	f := setup(t, nil)
	payload := createdEvent()

	err := f.svc.HandleWebhook(context.Background(), "deadbeef", []byte(payload))
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	assert.Empty(t, f.subscriptions(t))
	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Equal(t, "Invalid webhook signature", *logs[0].Error)
	assert.NotNil(t, logs[0].ProcessedAt)
	assert.Zero(t, f.forwarder.count())
}

func TestMissingSignatureIsRejectedAndAudited(t *testing.T) {
	f := setup(t, nil)

	err := f.svc.HandleWebhook(context.Background(), "  ", []byte(createdEvent()))
	require.ErrorIs(t, err, domain.ErrMissingSignature)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Equal(t, "Missing signature", *logs[0].Error)
	assert.Empty(t, f.subscriptions(t))
}

func TestUnknownEventIsAcknowledged(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))
	before := f.subscriptions(t)

	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_paused", `,"status":"paused"`)))

	after := f.subscriptions(t)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Status, after[0].Status)
	assert.True(t, before[0].UpdatedAt.Equal(after[0].UpdatedAt))

	logs := f.logs(t)
	require.Len(t, logs, 2)
	assert.Equal(t, "subscription_paused", logs[1].EventName)
	assert.NotNil(t, logs[1].ProcessedAt)
	assert.Nil(t, logs[1].Error)
}

func TestCancelledEventKeepsPlanAndCustomer(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))

	f.clock.Advance(time.Hour)
	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_cancelled", `,"status":"cancelled"`)))

	rows := f.subscriptions(t)
	require.Len(t, rows, 1)
	assert.Equal(t, subscriptiondomain.StatusCanceled, rows[0].Status)
	require.NotNil(t, rows[0].CancelAt)
	assert.Equal(t, planID, rows[0].PlanID)
	assert.Equal(t, "5521", rows[0].CustomerID)
}

func TestResumedEventClearsCancellation(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))
	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_cancelled", "")))
	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_resumed", `,"status":"active"`)))

	rows := f.subscriptions(t)
	require.Len(t, rows, 1)
	assert.Equal(t, subscriptiondomain.StatusActive, rows[0].Status)
	assert.Nil(t, rows[0].CancelAt)
}

func TestUpdatedEventMergesProviderFields(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))

	attrs := `,"status":"past_due","card_brand":"mastercard","card_last_four":"5454",` +
		`"renews_at":"2025-05-01T10:00:00Z","urls":{"update_payment_method":"https://pay.local/update"}`
	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_updated", attrs)))

	sub := f.subscriptions(t)[0]
	assert.Equal(t, subscriptiondomain.StatusPastDue, sub.Status)
	require.NotNil(t, sub.CardBrand)
	assert.Equal(t, "mastercard", *sub.CardBrand)
	assert.True(t, sub.CurrentPeriodEnd.Equal(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, sub.UpdatePaymentMethodURL)
	assert.Equal(t, "https://pay.local/update", *sub.UpdatePaymentMethodURL)
	assert.Equal(t, planID, sub.PlanID)
}

func TestUpdatedEventKeepsStatusForUnmappedValue(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))
	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_updated", `,"status":"paused"`)))

	assert.Equal(t, subscriptiondomain.StatusActive, f.subscriptions(t)[0].Status)
}

func TestUpdatedEventForUnknownSubscriptionFails(t *testing.T) {
	f := setup(t, nil)

	err := f.deliver(t, lifecycleEvent("subscription_updated", `,"status":"active"`))
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Contains(t, *logs[0].Error, "subscription_not_found")
}

func TestExpiredEventUsesEndsAtOrNow(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))

	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_expired", `,"ends_at":"2025-03-20T00:00:00Z"`)))
	sub := f.subscriptions(t)[0]
	assert.Equal(t, subscriptiondomain.StatusExpired, sub.Status)
	assert.True(t, sub.CurrentPeriodEnd.Equal(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, f.deliver(t, lifecycleEvent("subscription_expired", `,"ends_at":null`)))
	assert.True(t, f.subscriptions(t)[0].CurrentPeriodEnd.Equal(f.clock.Now()))
}

func TestRelayFailureDoesNotFailDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := setup(t, relay.NewHTTPForwarder(srv.URL, time.Second, nil, nil))
	require.NoError(t, f.deliver(t, sub1001CreatedEvent()))

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.NotNil(t, logs[0].ProcessedAt)
	assert.Nil(t, logs[0].Error)
	assert.Len(t, f.subscriptions(t), 1)
}

func TestMissingUserIDIsFatal(t *testing.T) {
	f := setup(t, nil)
	payload := fmt.Sprintf(`{"meta":{"event_name":"subscription_created"},"data":{"id":"1001","attributes":{"subscription_id":%q}}}`, subID)

	err := f.deliver(t, payload)
	require.ErrorIs(t, err, domain.ErrMissingUserID)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Equal(t, "Missing user_id in custom data", *logs[0].Error)
	assert.Empty(t, f.subscriptions(t))
	assert.Zero(t, f.forwarder.count())
}

func TestNonUUIDUserIDIsRejectedBeforeStore(t *testing.T) {
	f := setup(t, nil)
	payload := fmt.Sprintf(`{"meta":{"event_name":"subscription_created","custom_data":{"user_id":"parent-42"}},`+
		`"data":{"id":"1001","attributes":{"subscription_id":%q}}}`, subID)

	err := f.deliver(t, payload)
	require.ErrorIs(t, err, domain.ErrInvalidUserID)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Equal(t, "Invalid user_id in custom data", *logs[0].Error)
	assert.Empty(t, f.subscriptions(t))
	assert.Zero(t, f.forwarder.count())
}

func TestMalformedBodyIsAudited(t *testing.T) {
	f := setup(t, nil)

	err := f.deliver(t, `{"meta":`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))

	logs := f.logs(t)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].Error)
	assert.Equal(t, "Invalid webhook payload", *logs[0].Error)
}
