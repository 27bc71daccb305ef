package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/familyhub/internal/child/domain"
	"github.com/smallbiznis/familyhub/internal/child/repository"
	"github.com/smallbiznis/familyhub/internal/clock"
	"github.com/smallbiznis/familyhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	parentA = "1d6bb8b4-8a35-4be1-9a8c-3b1b7e2a0c01"
	parentB = "8e0f4c2a-6d1b-4a9e-b5c3-2f7d9a1e4b02"
)

func setup(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.SetupTestDB(t, &domain.Child{})
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 2, 10, 15, 0, 0, 0, time.UTC))
	return NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), Clock: clk}), clk
}

func addAda(t *testing.T, svc domain.Service, profileID string) *domain.Child {
	t.Helper()
	c, err := svc.Add(context.Background(), profileID, domain.CreateRequest{
		FirstName:   " Ada ",
		LastName:    "Lovelace",
		SchoolGrade: "3",
		DateOfBirth: "2016-12-10",
	})
	require.NoError(t, err)
	return c
}

func TestAddAndList(t *testing.T) {
	svc, _ := setup(t)
	added := addAda(t, svc, parentA)
	assert.Equal(t, "Ada", added.FirstName)

	items, err := svc.List(context.Background(), parentA)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, added.ID, items[0].ID)
	assert.Equal(t, "2016-12-10", items[0].DateOfBirth.String())
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc, _ := setup(t)
	items, err := svc.List(context.Background(), parentA)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAddValidates(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, parentA, domain.CreateRequest{FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "10/12/2016"})
	assert.ErrorIs(t, err, domain.ErrInvalidDateOfBirth)

	_, err = svc.Add(ctx, parentA, domain.CreateRequest{FirstName: "", LastName: "Lovelace", DateOfBirth: "2016-12-10"})
	assert.ErrorIs(t, err, domain.ErrInvalidChild)

	_, err = svc.Add(ctx, " ", domain.CreateRequest{FirstName: "Ada", LastName: "Lovelace", DateOfBirth: "2016-12-10"})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
}

func TestUpdateIsScopedToOwner(t *testing.T) {
	svc, clk := setup(t)
	ctx := context.Background()
	c := addAda(t, svc, parentA)

	grade := "4"
	_, err := svc.Update(ctx, parentB, c.ID, domain.Patch{SchoolGrade: &grade})
	require.ErrorIs(t, err, domain.ErrNotFound)

	clk.Advance(time.Minute)
	dob := "2016-11-30"
	updated, err := svc.Update(ctx, parentA, c.ID, domain.Patch{SchoolGrade: &grade, DateOfBirth: &dob})
	require.NoError(t, err)
	assert.Equal(t, "4", updated.SchoolGrade)
	assert.Equal(t, "2016-11-30", updated.DateOfBirth.String())
	assert.Equal(t, "Ada", updated.FirstName)
}

func TestUpdateRejectsBadDate(t *testing.T) {
	svc, _ := setup(t)
	c := addAda(t, svc, parentA)

	bad := "yesterday"
	_, err := svc.Update(context.Background(), parentA, c.ID, domain.Patch{DateOfBirth: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidDateOfBirth)
}

func TestDeleteIsScopedToOwner(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	c := addAda(t, svc, parentA)

	require.ErrorIs(t, svc.Delete(ctx, parentB, c.ID), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, parentA, c.ID))
	require.ErrorIs(t, svc.Delete(ctx, parentA, c.ID), domain.ErrNotFound)
}
