package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tender-server/internal/domain/query"
	"tender-server/internal/domain/tender"
)

type TenderRepository struct {
	mu       sync.Mutex
	tenders  map[string]tender.Tender
	requests map[string]tender.Request
}

var _ tender.Repository = (*TenderRepository)(nil)

func NewTenderRepository() *TenderRepository {
	return &TenderRepository{
		tenders:  make(map[string]tender.Tender),
		requests: make(map[string]tender.Request),
	}
}

func (r *TenderRepository) Create(ctx context.Context, t *tender.Tender) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenders[t.ID]; ok {
		return conflict(ctx, "tender already exists")
	}
	r.tenders[t.ID] = cloneTender(t)
	return nil
}

func (r *TenderRepository) GetByID(ctx context.Context, id string) (*tender.Tender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenders[id]
	if !ok {
		return nil, notFound(ctx, "tender")
	}
	out := cloneTender(&t)
	return &out, nil
}

func (r *TenderRepository) List(_ context.Context, filter tender.Filter, pagination query.Pagination) ([]*tender.Tender, int64, error) {
	pagination = pagination.Normalize()
	r.mu.Lock()
	matched := make([]*tender.Tender, 0, len(r.tenders))
	for _, t := range r.tenders {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && *filter.Category != "" && t.Category != *filter.Category {
			continue
		}
		if filter.CompanyID != nil && *filter.CompanyID != "" && t.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.Search))
			if !strings.Contains(strings.ToLower(t.Title), needle) && !strings.Contains(strings.ToLower(t.Description), needle) {
				continue
			}
		}
		out := cloneTender(&t)
		matched = append(matched, &out)
	}
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return window(matched, pagination.Limit, pagination.Offset), int64(len(matched)), nil
}

func (r *TenderRepository) Update(ctx context.Context, t *tender.Tender) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenders[t.ID]; !ok {
		return notFound(ctx, "tender")
	}
	r.tenders[t.ID] = cloneTender(t)
	return nil
}

func (r *TenderRepository) CloseExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed int64
	for id, t := range r.tenders {
		if t.Status == tender.StatusOpen && !now.Before(t.Deadline) {
			t.Status = tender.StatusClosed
			t.UpdatedAt = now
			r.tenders[id] = t
			closed++
		}
	}
	return closed, nil
}

func (r *TenderRepository) CreateRequest(ctx context.Context, req *tender.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.TenderID == req.TenderID && existing.CompanyID == req.CompanyID && existing.Status != tender.RequestWithdrawn {
			return conflict(ctx, "company already bid on this tender")
		}
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *TenderRepository) GetRequest(ctx context.Context, id string) (*tender.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, notFound(ctx, "tender request")
	}
	return &req, nil
}

func (r *TenderRepository) ListRequestsByTender(_ context.Context, tenderID string) ([]*tender.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedRequests(r.requests, func(req tender.Request) bool { return req.TenderID == tenderID }, false), nil
}

func (r *TenderRepository) ListRequestsByCompany(_ context.Context, companyID string, pagination query.Pagination) ([]*tender.Request, int64, error) {
	pagination = pagination.Normalize()
	r.mu.Lock()
	matched := sortedRequests(r.requests, func(req tender.Request) bool { return req.CompanyID == companyID }, true)
	r.mu.Unlock()
	return window(matched, pagination.Limit, pagination.Offset), int64(len(matched)), nil
}

func (r *TenderRepository) UpdateRequestStatus(ctx context.Context, id string, from, to tender.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return notFound(ctx, "tender request")
	}
	if req.Status != from {
		return conflict(ctx, "tender request is no longer "+string(from))
	}
	req.Status = to
	req.UpdatedAt = time.Now().UTC()
	r.requests[id] = req
	return nil
}

func (r *TenderRepository) AcceptRequest(ctx context.Context, tenderID, requestID string, now time.Time) (*tender.Acceptance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenders[tenderID]
	if !ok {
		return nil, notFound(ctx, "tender")
	}
	if t.Status != tender.StatusOpen {
		return nil, conflict(ctx, "tender is "+string(t.Status))
	}
	chosen, ok := r.requests[requestID]
	if !ok || chosen.TenderID != tenderID {
		return nil, notFound(ctx, "tender request")
	}
	if chosen.Status != tender.RequestPending {
		return nil, conflict(ctx, "tender request is "+string(chosen.Status))
	}

	result := &tender.Acceptance{}
	chosen.Status = tender.RequestAccepted
	chosen.UpdatedAt = now
	r.requests[requestID] = chosen
	accepted := chosen
	result.Accepted = &accepted

	for _, sibling := range sortedRequests(r.requests, func(req tender.Request) bool {
		return req.TenderID == tenderID && req.ID != requestID && req.Status == tender.RequestPending
	}, false) {
		sibling.Status = tender.RequestRejected
		sibling.UpdatedAt = now
		r.requests[sibling.ID] = *sibling
		result.Rejected = append(result.Rejected, sibling)
	}

	t.Status = tender.StatusAwarded
	t.AwardedRequestID = &accepted.ID
	t.UpdatedAt = now
	r.tenders[tenderID] = t
	out := cloneTender(&t)
	result.Tender = &out
	return result, nil
}

func sortedRequests(all map[string]tender.Request, keep func(tender.Request) bool, newestFirst bool) []*tender.Request {
	matched := make([]*tender.Request, 0)
	for _, req := range all {
		if keep(req) {
			req := req
			matched = append(matched, &req)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if newestFirst {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return matched
}

func cloneTender(t *tender.Tender) tender.Tender {
	out := *t
	out.AttachmentURLs = append([]string{}, t.AttachmentURLs...)
	if t.AwardedRequestID != nil {
		id := *t.AwardedRequestID
		out.AwardedRequestID = &id
	}
	return out
}
