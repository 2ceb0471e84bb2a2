package rating

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/query"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

const maxCommentLength = 2000

// AwardLookup resolves the two parties of an awarded tender.
type AwardLookup interface {
	AwardedParties(ctx context.Context, tenderID string) (ownerID, winnerID string, err error)
}

// ProfileInvalidator drops cached company display data after the aggregate changed.
type ProfileInvalidator interface {
	Invalidate(id string)
}

// Service implements rating use cases.
type Service struct {
	repo     Repository
	awards   AwardLookup
	profiles ProfileInvalidator
	log      zerolog.Logger
}

// NewService wires the rating service.
func NewService(repo Repository, awards AwardLookup, profiles ProfileInvalidator, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		awards:   awards,
		profiles: profiles,
		log:      log.With().Str("component", "rating-service").Logger(),
	}
}

// SubmitRating records raterID's review of r.RatedCompanyID and returns the new aggregate.
// When a tender is referenced, only its owner and the winning bidder may rate each other.
func (s *Service) SubmitRating(ctx context.Context, raterID string, r *Rating) (*Rating, *Aggregate, error) {
	r.RaterCompanyID = raterID
	r.Comment = strings.TrimSpace(r.Comment)
	if err := validate(r); err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), nil, "")
	}

	if r.TenderID != "" {
		ownerID, winnerID, err := s.awards.AwardedParties(ctx, r.TenderID)
		if err != nil {
			return nil, nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "tender is not eligible for rating")
		}
		pair := (r.RaterCompanyID == ownerID && r.RatedCompanyID == winnerID) ||
			(r.RaterCompanyID == winnerID && r.RatedCompanyID == ownerID)
		if !pair {
			return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "only the parties of an awarded tender can rate each other", nil, "")
		}
	}

	r.ID = idgen.New(idgen.PrefixRating)
	r.CreatedAt = time.Now().UTC()

	agg, err := s.repo.Submit(ctx, r)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "rating already submitted", err, "")
		}
		return nil, nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to submit rating")
	}
	if s.profiles != nil {
		s.profiles.Invalidate(r.RatedCompanyID)
	}

	s.log.Info().
		Str("rated_company_id", r.RatedCompanyID).
		Str("average", agg.Average.StringFixed(2)).
		Int("count", agg.Count).
		Msg("rating submitted")
	return r, agg, nil
}

// ListRatings returns a page of ratings received by companyID, newest first.
func (s *Service) ListRatings(ctx context.Context, companyID string, pagination query.Pagination) ([]*Rating, int64, error) {
	ratings, total, err := s.repo.ListForCompany(ctx, companyID, pagination.Normalize())
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list ratings")
	}
	return ratings, total, nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

func validate(r *Rating) error {
	switch {
	case !idgen.IsValid(idgen.PrefixCompany, r.RatedCompanyID):
		return validationError("invalid rated company ID")
	case r.RaterCompanyID == r.RatedCompanyID:
		return validationError("a company cannot rate itself")
	case r.Score < MinScore || r.Score > MaxScore:
		return validationError("score must be between 1 and 5")
	case utf8.RuneCountInString(r.Comment) > maxCommentLength:
		return validationError("comment is too long")
	case r.TenderID != "" && !idgen.IsValid(idgen.PrefixTender, r.TenderID):
		return validationError("invalid tender ID")
	}
	return nil
}
