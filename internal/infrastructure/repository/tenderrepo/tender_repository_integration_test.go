//go:build integration

package tenderrepo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/database/databasetest"
	"tender-server/internal/infrastructure/repository/tenderrepo"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

func TestAcceptRequestRowLockAwardsOnce(t *testing.T) {
	db := databasetest.Open(t)
	repo := tenderrepo.NewTenderGormRepository(db)
	ctx := context.Background()

	const bidders = 6
	companies := databasetest.SeedCompanies(t, db, bidders+1)
	owner := companies[0]
	now := time.Now().UTC()

	tnd := &tender.Tender{
		ID:        idgen.New(idgen.PrefixTender),
		CompanyID: owner.ID,
		Title:     "Cold rolled coil",
		Budget:    decimal.RequireFromString("50000"),
		Currency:  "EUR",
		Deadline:  now.Add(24 * time.Hour),
		Status:    tender.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, tnd))

	requestIDs := make([]string, 0, bidders)
	for _, bidder := range companies[1:] {
		req := &tender.Request{
			ID:        idgen.New(idgen.PrefixTenderRequest),
			TenderID:  tnd.ID,
			CompanyID: bidder.ID,
			Proposal:  "Delivery in ten days",
			Price:     decimal.RequireFromString("48000"),
			Status:    tender.RequestPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, repo.CreateRequest(ctx, req))
		requestIDs = append(requestIDs, req.ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	start := make(chan struct{})
	for _, id := range requestIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			acceptance, err := repo.AcceptRequest(ctx, tnd.ID, id, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
					conflicts++
				}
				return
			}
			winners = append(winners, acceptance.Accepted.ID)
		}(id)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1, "exactly one concurrent accept wins")
	assert.Equal(t, bidders-1, conflicts)

	stored, err := repo.GetByID(ctx, tnd.ID)
	require.NoError(t, err)
	assert.Equal(t, tender.StatusAwarded, stored.Status)
	require.NotNil(t, stored.AwardedRequestID)
	assert.Equal(t, winners[0], *stored.AwardedRequestID)

	requests, err := repo.ListRequestsByTender(ctx, tnd.ID)
	require.NoError(t, err)
	accepted := 0
	for _, r := range requests {
		switch r.ID {
		case winners[0]:
			assert.Equal(t, tender.RequestAccepted, r.Status)
			accepted++
		default:
			assert.Equal(t, tender.RequestRejected, r.Status, r.ID)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestActiveRequestUniquePerCompany(t *testing.T) {
	db := databasetest.Open(t)
	repo := tenderrepo.NewTenderGormRepository(db)
	ctx := context.Background()
	companies := databasetest.SeedCompanies(t, db, 2)
	now := time.Now().UTC()

	tnd := &tender.Tender{
		ID: idgen.New(idgen.PrefixTender), CompanyID: companies[0].ID, Title: "Pallets",
		Currency: "EUR", Deadline: now.Add(time.Hour), Status: tender.StatusOpen, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, tnd))

	bid := func() *tender.Request {
		return &tender.Request{
			ID: idgen.New(idgen.PrefixTenderRequest), TenderID: tnd.ID, CompanyID: companies[1].ID,
			Status: tender.RequestPending, CreatedAt: now, UpdatedAt: now,
		}
	}
	first := bid()
	require.NoError(t, repo.CreateRequest(ctx, first))

	err := repo.CreateRequest(ctx, bid())
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	require.NoError(t, repo.UpdateRequestStatus(ctx, first.ID, tender.RequestPending, tender.RequestWithdrawn))
	assert.NoError(t, repo.CreateRequest(ctx, bid()), "a withdrawn bid frees the slot")
}
