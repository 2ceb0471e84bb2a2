package tender

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/domain/query"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

// CompanyDirectory is the part of the company service tenders depend on.
type CompanyDirectory interface {
	ResolveProfiles(ctx context.Context, ids []string) (map[string]company.Profile, error)
}

// Service implements tender and tender request use cases.
type Service struct {
	repo      Repository
	companies CompanyDirectory
	notifier  notification.Notifier
	locker    Locker
	validator *Validator
	baseURL   string
	now       func() time.Time
	log       zerolog.Logger
}

// NewService wires the tender service. locker may be nil when no distributed lock is configured.
func NewService(repo Repository, companies CompanyDirectory, notifier notification.Notifier, locker Locker, baseURL string, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		companies: companies,
		notifier:  notifier,
		locker:    locker,
		validator: NewValidator(),
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With().Str("component", "tender-service").Logger(),
	}
}

// ===============================================
// Tenders
// ===============================================

// CreateTender publishes a tender owned by companyID.
func (s *Service) CreateTender(ctx context.Context, companyID string, t *Tender) (*Tender, error) {
	now := s.now()
	t.ID = idgen.New(idgen.PrefixTender)
	t.CompanyID = companyID
	t.Title = strings.TrimSpace(t.Title)
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	t.Status = StatusOpen
	t.AwardedRequestID = nil
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.AttachmentURLs == nil {
		t.AttachmentURLs = []string{}
	}

	if err := s.validator.ValidateTender(t, now); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "tender validation failed", err, "")
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create tender")
	}
	s.log.Info().Str("tender_id", t.ID).Str("company_id", companyID).Msg("tender created")
	return t, nil
}

// GetTender loads a tender by id.
func (s *Service) GetTender(ctx context.Context, id string) (*Tender, error) {
	if !idgen.IsValid(idgen.PrefixTender, id) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid tender ID", nil, "")
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "tender not found")
	}
	return t, nil
}

// ListTenders returns a page of tenders, newest first.
func (s *Service) ListTenders(ctx context.Context, filter Filter, pagination query.Pagination) ([]*Tender, int64, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("unknown tender status %q", *filter.Status), nil, "")
	}
	tenders, total, err := s.repo.List(ctx, filter, pagination.Normalize())
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list tenders")
	}
	return tenders, total, nil
}

// UpdateTender edits an open tender owned by companyID.
func (s *Service) UpdateTender(ctx context.Context, companyID, id string, patch Patch) (*Tender, error) {
	t, err := s.ownedTender(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusOpen {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "only open tenders can be edited", nil, "")
	}

	patch.Apply(t)
	t.Title = strings.TrimSpace(t.Title)
	t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
	t.UpdatedAt = s.now()
	if err := s.validator.ValidateTender(t, t.UpdatedAt); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "tender validation failed", err, "")
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update tender")
	}
	return t, nil
}

// CancelTender withdraws an open tender.
func (s *Service) CancelTender(ctx context.Context, companyID, id string) (*Tender, error) {
	t, err := s.ownedTender(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusOpen {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "only open tenders can be cancelled", nil, "")
	}
	t.Status = StatusCancelled
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to cancel tender")
	}
	return t, nil
}

// CloseExpired closes open tenders whose deadline has passed.
func (s *Service) CloseExpired(ctx context.Context) (int64, error) {
	closed, err := s.repo.CloseExpired(ctx, s.now())
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to close expired tenders")
	}
	if closed > 0 {
		s.log.Info().Int64("closed", closed).Msg("closed expired tenders")
	}
	return closed, nil
}

// AwardedParties returns the tender owner and the winning bidder of an awarded tender.
func (s *Service) AwardedParties(ctx context.Context, tenderID string) (ownerID, winnerID string, err error) {
	t, err := s.GetTender(ctx, tenderID)
	if err != nil {
		return "", "", err
	}
	if t.Status != StatusAwarded || t.AwardedRequestID == nil {
		return "", "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "tender has not been awarded", nil, "")
	}
	req, err := s.repo.GetRequest(ctx, *t.AwardedRequestID)
	if err != nil {
		return "", "", platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "awarded request not found")
	}
	return t.CompanyID, req.CompanyID, nil
}

func (s *Service) ownedTender(ctx context.Context, companyID, id string) (*Tender, error) {
	t, err := s.GetTender(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.CompanyID != companyID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "tender belongs to another company", nil, "")
	}
	return t, nil
}

// ===============================================
// Tender requests
// ===============================================

// SubmitRequest places a bid by companyID on tenderID and notifies the tender owner.
func (s *Service) SubmitRequest(ctx context.Context, companyID, tenderID string, r *Request) (*Request, error) {
	t, err := s.GetTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if t.CompanyID == companyID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "a company cannot bid on its own tender", nil, "")
	}
	if !t.AcceptsBids(now) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExpired, "tender is no longer accepting bids", nil, "")
	}

	r.ID = idgen.New(idgen.PrefixTenderRequest)
	r.TenderID = t.ID
	r.CompanyID = companyID
	r.Status = RequestPending
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.validator.ValidateRequest(r); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "tender request validation failed", err, "")
	}
	if err := s.repo.CreateRequest(ctx, r); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "company already has an active bid on this tender", err, "")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to submit tender request")
	}

	s.notifyRequestReceived(ctx, t, r)
	return r, nil
}

// ListRequestsForTender returns all bids on a tender. Only the owner may see them.
func (s *Service) ListRequestsForTender(ctx context.Context, companyID, tenderID string) ([]*Request, error) {
	if _, err := s.ownedTender(ctx, companyID, tenderID); err != nil {
		return nil, err
	}
	requests, err := s.repo.ListRequestsByTender(ctx, tenderID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list tender requests")
	}
	return requests, nil
}

// ListMyRequests returns the bids placed by companyID.
func (s *Service) ListMyRequests(ctx context.Context, companyID string, pagination query.Pagination) ([]*Request, int64, error) {
	requests, total, err := s.repo.ListRequestsByCompany(ctx, companyID, pagination.Normalize())
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list tender requests")
	}
	return requests, total, nil
}

// WithdrawRequest lets the bidder pull a pending bid.
func (s *Service) WithdrawRequest(ctx context.Context, companyID, requestID string) (*Request, error) {
	r, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.CompanyID != companyID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "tender request belongs to another company", nil, "")
	}
	if r.Status != RequestPending {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "only pending requests can be withdrawn", nil, "")
	}
	if err := s.repo.UpdateRequestStatus(ctx, r.ID, RequestPending, RequestWithdrawn); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to withdraw tender request")
	}
	r.Status = RequestWithdrawn
	r.UpdatedAt = s.now()
	return r, nil
}

// AcceptRequest awards the tender to requestID and rejects every competing bid in one
// atomic step. Notification emails go out afterwards and cannot undo the acceptance.
func (s *Service) AcceptRequest(ctx context.Context, companyID, requestID string) (*Acceptance, error) {
	r, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTender(ctx, companyID, r.TenderID); err != nil {
		return nil, err
	}

	var acceptance *Acceptance
	accept := func(ctx context.Context) error {
		var err error
		acceptance, err = s.repo.AcceptRequest(ctx, r.TenderID, r.ID, s.now())
		return err
	}
	if s.locker != nil {
		err = s.locker.WithLock(ctx, "tender:"+r.TenderID+":accept", accept)
	} else {
		err = accept(ctx)
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to accept tender request")
	}

	s.log.Info().
		Str("tender_id", acceptance.Tender.ID).
		Str("request_id", acceptance.Accepted.ID).
		Int("rejected", len(acceptance.Rejected)).
		Msg("tender awarded")

	s.notifyAcceptance(ctx, acceptance)
	return acceptance, nil
}

func (s *Service) getRequest(ctx context.Context, id string) (*Request, error) {
	if !idgen.IsValid(idgen.PrefixTenderRequest, id) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid tender request ID", nil, "")
	}
	r, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "tender request not found")
	}
	return r, nil
}

// ===============================================
// Notifications
// ===============================================

func (s *Service) notifyRequestReceived(ctx context.Context, t *Tender, r *Request) {
	profiles, err := s.companies.ResolveProfiles(ctx, []string{t.CompanyID, r.CompanyID})
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", r.ID).Msg("skip bid notification: profile lookup failed")
		return
	}
	owner := profiles[t.CompanyID]
	s.notifier.Notify(ctx, notification.Email{
		Kind: notification.KindTenderRequestReceived,
		To:   owner.Email,
		Data: map[string]any{
			"RecipientName": owner.Name,
			"BidderName":    profiles[r.CompanyID].Name,
			"TenderTitle":   t.Title,
			"Price":         r.Price.StringFixed(2),
			"Currency":      t.Currency,
			"Link":          fmt.Sprintf("%s/tenders/%s/requests", s.baseURL, t.ID),
		},
	})
}

func (s *Service) notifyAcceptance(ctx context.Context, a *Acceptance) {
	ids := []string{a.Tender.CompanyID, a.Accepted.CompanyID}
	for _, rejected := range a.Rejected {
		ids = append(ids, rejected.CompanyID)
	}
	profiles, err := s.companies.ResolveProfiles(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Str("tender_id", a.Tender.ID).Msg("skip award notifications: profile lookup failed")
		return
	}
	owner := profiles[a.Tender.CompanyID]

	winner := profiles[a.Accepted.CompanyID]
	s.notifier.Notify(ctx, notification.Email{
		Kind: notification.KindTenderRequestAccepted,
		To:   winner.Email,
		Data: map[string]any{
			"RecipientName": winner.Name,
			"OwnerName":     owner.Name,
			"TenderTitle":   a.Tender.Title,
			"Link":          fmt.Sprintf("%s/tenders/%s", s.baseURL, a.Tender.ID),
		},
	})

	for _, rejected := range a.Rejected {
		loser := profiles[rejected.CompanyID]
		s.notifier.Notify(ctx, notification.Email{
			Kind: notification.KindTenderRequestRejected,
			To:   loser.Email,
			Data: map[string]any{
				"RecipientName": loser.Name,
				"OwnerName":     owner.Name,
				"TenderTitle":   a.Tender.Title,
				"Link":          s.baseURL + "/tenders",
			},
		})
	}
}
