package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/testutil"
	"github.com/smallbiznis/familyhub/internal/webhooklog/domain"
	"github.com/smallbiznis/familyhub/internal/webhooklog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.SetupTestDB(t, &domain.WebhookLog{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), Clock: clk})
	return svc, db, clk
}

func load(t *testing.T, db *gorm.DB, id snowflake.ID) *domain.WebhookLog {
	t.Helper()
	l, err := repository.Provide().FindByID(context.Background(), db, id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

func TestLogIncomingStoresPayload(t *testing.T) {
	svc, db, _ := setup(t)
	id, err := svc.LogIncoming(context.Background(), "subscription_created", []byte(`{"meta":{"event_name":"subscription_created"}}`))
	require.NoError(t, err)

	l := load(t, db, id)
	assert.Equal(t, "subscription_created", l.EventName)
	assert.JSONEq(t, `{"meta":{"event_name":"subscription_created"}}`, string(l.Payload))
	assert.True(t, l.IsOpen())
	assert.Nil(t, l.Error)
}

func TestLogIncomingWrapsNonJSON(t *testing.T) {
	svc, db, _ := setup(t)
	id, err := svc.LogIncoming(context.Background(), "", []byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, `"not json"`, string(load(t, db, id).Payload))
}

func TestMarkSuccessClosesOnce(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	id, err := svc.LogIncoming(ctx, "subscription_updated", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, svc.MarkSuccess(ctx, id))
	l := load(t, db, id)
	require.NotNil(t, l.ProcessedAt)
	assert.Nil(t, l.Error)

	assert.ErrorIs(t, svc.MarkError(ctx, id, "subscription_updated", "late"), domain.ErrLogClosed)
	assert.Nil(t, load(t, db, id).Error)
}

func TestMarkErrorUnknownID(t *testing.T) {
	svc, _, _ := setup(t)
	assert.ErrorIs(t, svc.MarkSuccess(context.Background(), 12345), domain.ErrLogNotFound)
}

func TestMarkErrorFallsBackToNewestOpenRow(t *testing.T) {
	svc, db, clk := setup(t)
	ctx := context.Background()

	older, err := svc.LogIncoming(ctx, "subscription_created", []byte(`{}`))
	require.NoError(t, err)
	clk.Advance(time.Minute)
	newer, err := svc.LogIncoming(ctx, "subscription_created", []byte(`{}`))
	require.NoError(t, err)
	clk.Advance(time.Minute)
	other, err := svc.LogIncoming(ctx, "subscription_expired", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, svc.MarkError(ctx, 0, "subscription_created", "boom"))

	got := load(t, db, newer)
	require.NotNil(t, got.Error)
	assert.Equal(t, "boom", *got.Error)
	assert.NotNil(t, got.ProcessedAt)
	assert.True(t, load(t, db, older).IsOpen())
	assert.True(t, load(t, db, other).IsOpen())
}

func TestMarkErrorWithoutOpenRow(t *testing.T) {
	svc, _, _ := setup(t)
	assert.ErrorIs(t, svc.MarkError(context.Background(), 0, "subscription_created", "boom"), domain.ErrLogNotFound)
}
