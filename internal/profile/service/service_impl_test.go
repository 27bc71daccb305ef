package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	childdomain "github.com/smallbiznis/familyhub/internal/child/domain"
	childrepo "github.com/smallbiznis/familyhub/internal/child/repository"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/profile/domain"
	"github.com/smallbiznis/familyhub/internal/profile/repository"
	"github.com/smallbiznis/familyhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const userID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteUser(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	users *fakeDeleter
	clock *clock.FakeClock
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.SetupTestDB(t, &domain.Profile{}, &childdomain.Child{})
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 1, 5, 7, 30, 0, 0, time.UTC))
	users := &fakeDeleter{}
	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		ChildRepo: childrepo.Provide(),
		Users:     users,
		Clock:     clk,
	})
	return fixture{db: db, svc: svc, users: users, clock: clk}
}

func countChildren(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&childdomain.Child{}).Count(&n).Error)
	return n
}

func registration() domain.RegistrationRequest {
	return domain.RegistrationRequest{
		Email:            "parent@example.com",
		ParentFirstName:  "Grace",
		ParentLastName:   "Hopper",
		PhoneNumber:      "+1 555 0100",
		EmergencyContact: "+1 555 0199",
		StreetAddress:    "1 Harbor Way",
		City:             "Arlington",
		StateProvince:    "VA",
		Children: []childdomain.CreateRequest{
			{FirstName: "Ada", LastName: "Hopper", SchoolGrade: "2", DateOfBirth: "2017-06-01"},
			{FirstName: "Alan", LastName: "Hopper", SchoolGrade: "K", DateOfBirth: "2020-02-29"},
		},
	}
}

func TestGetCreatesProfileOnFirstRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exists, err := f.svc.Exists(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)

	p, err := f.svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, p.ID)
	assert.Empty(t, p.ParentFirstName)

	exists, err = f.svc.Exists(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)

	again, err := f.svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
}

func TestInvalidUserID(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestUpdateMergesFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	city := "Portland"
	_, err := f.svc.Update(ctx, userID, domain.Patch{City: &city})
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	_, err = f.svc.Get(ctx, userID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	apt := "4B"
	p, err := f.svc.Update(ctx, userID, domain.Patch{City: &city, Apartment: &apt})
	require.NoError(t, err)
	assert.Equal(t, "Portland", p.City)
	require.NotNil(t, p.Apartment)
	assert.Equal(t, "4B", *p.Apartment)

	empty := ""
	p, err = f.svc.Update(ctx, userID, domain.Patch{Apartment: &empty})
	require.NoError(t, err)
	assert.Nil(t, p.Apartment)
	assert.Equal(t, "Portland", p.City)
}

func TestRegisterWritesProfileAndChildren(t *testing.T) {
	f := setup(t)

	reg, err := f.svc.Register(context.Background(), userID, registration())
	require.NoError(t, err)
	assert.Equal(t, "Grace", reg.Profile.ParentFirstName)
	assert.Equal(t, "Grace Hopper", reg.Profile.Name)
	assert.Equal(t, "parent@example.com", reg.Profile.Email)
	assert.Nil(t, reg.Profile.Apartment)
	require.Len(t, reg.Children, 2)
	assert.Equal(t, "2020-02-29", reg.Children[1].DateOfBirth.String())
	assert.Equal(t, int64(2), countChildren(t, f.db))
}

func TestRegisterRejectsBadChildWithoutWriting(t *testing.T) {
	f := setup(t)
	req := registration()
	req.Children[1].DateOfBirth = "2020-02-30"

	_, err := f.svc.Register(context.Background(), userID, req)
	require.ErrorIs(t, err, childdomain.ErrInvalidDateOfBirth)

	exists, err := f.svc.Exists(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, countChildren(t, f.db))
}

func TestRegisterRequiresParentName(t *testing.T) {
	f := setup(t)
	req := registration()
	req.ParentLastName = " "

	_, err := f.svc.Register(context.Background(), userID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidRegistration)
}

func TestDeleteRemovesAuthUserAndRows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, userID, registration())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, userID))
	assert.Equal(t, []string{userID}, f.users.deleted)

	exists, err := f.svc.Exists(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, countChildren(t, f.db))
}

func TestDeleteKeepsRowsWhenAuthDeleteFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Get(ctx, userID)
	require.NoError(t, err)

	f.users.err = errors.New("backend unavailable")
	require.Error(t, f.svc.Delete(ctx, userID))

	exists, err := f.svc.Exists(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)
}
