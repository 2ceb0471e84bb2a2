package rating_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/query"
	"tender-server/internal/domain/rating"
	"tender-server/internal/infrastructure/repository/memory"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

type stubAwards struct {
	owner, winner string
	err           error
}

func (s stubAwards) AwardedParties(context.Context, string) (string, string, error) {
	return s.owner, s.winner, s.err
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(id string) { r.ids = append(r.ids, id) }

func seedCompanies(t *testing.T, repo *memory.CompanyRepository, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = idgen.New(idgen.PrefixCompany)
		require.NoError(t, repo.Create(context.Background(), &company.Company{
			ID:           ids[i],
			OwnerSubject: ids[i],
			Name:         "Company " + ids[i],
		}))
	}
	return ids
}

func TestSubmitRatingUpdatesAggregate(t *testing.T) {
	ctx := context.Background()
	companies := memory.NewCompanyRepository()
	ids := seedCompanies(t, companies, 4)
	invalidator := &recordingInvalidator{}
	svc := rating.NewService(memory.NewRatingRepository(companies), stubAwards{}, invalidator, zerolog.Nop())

	target := ids[0]
	var agg *rating.Aggregate
	for i, score := range []int{5, 4, 4} {
		var err error
		_, agg, err = svc.SubmitRating(ctx, ids[i+1], &rating.Rating{RatedCompanyID: target, Score: score, Comment: "  solid  "})
		require.NoError(t, err)
	}
	assert.Equal(t, "4.33", agg.Average.StringFixed(2))
	assert.Equal(t, 3, agg.Count)
	assert.Equal(t, []string{target, target, target}, invalidator.ids)

	stored, err := companies.GetByID(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.RatingCount)
	assert.Equal(t, "4.33", stored.RatingAverage.StringFixed(2))

	list, total, err := svc.ListRatings(ctx, target, query.Pagination{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 2)
	assert.Equal(t, "solid", list[0].Comment)
}

func TestSubmitRatingValidation(t *testing.T) {
	ctx := context.Background()
	companies := memory.NewCompanyRepository()
	ids := seedCompanies(t, companies, 2)
	svc := rating.NewService(memory.NewRatingRepository(companies), stubAwards{}, nil, zerolog.Nop())

	tests := []struct {
		name   string
		rater  string
		rating rating.Rating
	}{
		{name: "self rating", rater: ids[0], rating: rating.Rating{RatedCompanyID: ids[0], Score: 5}},
		{name: "score too low", rater: ids[0], rating: rating.Rating{RatedCompanyID: ids[1], Score: 0}},
		{name: "score too high", rater: ids[0], rating: rating.Rating{RatedCompanyID: ids[1], Score: 6}},
		{name: "bad company id", rater: ids[0], rating: rating.Rating{RatedCompanyID: "acme", Score: 3}},
		{name: "bad tender id", rater: ids[0], rating: rating.Rating{RatedCompanyID: ids[1], Score: 3, TenderID: "t-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rating
			_, _, err := svc.SubmitRating(ctx, tt.rater, &r)
			require.Error(t, err)
			assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
		})
	}
}

func TestSubmitRatingDuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	companies := memory.NewCompanyRepository()
	ids := seedCompanies(t, companies, 2)
	svc := rating.NewService(memory.NewRatingRepository(companies), stubAwards{}, nil, zerolog.Nop())

	_, _, err := svc.SubmitRating(ctx, ids[0], &rating.Rating{RatedCompanyID: ids[1], Score: 4})
	require.NoError(t, err)
	_, _, err = svc.SubmitRating(ctx, ids[0], &rating.Rating{RatedCompanyID: ids[1], Score: 2})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

func TestSubmitRatingForTenderRequiresAwardedPair(t *testing.T) {
	ctx := context.Background()
	companies := memory.NewCompanyRepository()
	ids := seedCompanies(t, companies, 3)
	owner, winner, outsider := ids[0], ids[1], ids[2]
	tenderID := idgen.New(idgen.PrefixTender)
	svc := rating.NewService(memory.NewRatingRepository(companies), stubAwards{owner: owner, winner: winner}, nil, zerolog.Nop())

	_, _, err := svc.SubmitRating(ctx, outsider, &rating.Rating{RatedCompanyID: winner, TenderID: tenderID, Score: 1})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	_, _, err = svc.SubmitRating(ctx, owner, &rating.Rating{RatedCompanyID: winner, TenderID: tenderID, Score: 5})
	require.NoError(t, err)
	_, _, err = svc.SubmitRating(ctx, winner, &rating.Rating{RatedCompanyID: owner, TenderID: tenderID, Score: 4})
	require.NoError(t, err)

	notAwarded := rating.NewService(memory.NewRatingRepository(companies), stubAwards{
		err: platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "tender has not been awarded", nil, ""),
	}, nil, zerolog.Nop())
	_, _, err = notAwarded.SubmitRating(ctx, owner, &rating.Rating{RatedCompanyID: winner, TenderID: tenderID, Score: 5})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}
