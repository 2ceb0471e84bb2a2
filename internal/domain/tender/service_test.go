package tender_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/domain/query"
	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/queue"
	"tender-server/internal/infrastructure/repository/memory"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

type recordingNotifier struct {
	mu     sync.Mutex
	emails []notification.Email
}

func (n *recordingNotifier) Notify(_ context.Context, email notification.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
}

func (n *recordingNotifier) kinds() map[notification.Kind][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[notification.Kind][]string)
	for _, e := range n.emails {
		out[e.Kind] = append(out[e.Kind], e.To)
	}
	return out
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return fn(ctx)
}

type fixture struct {
	svc      *tender.Service
	repo     *memory.TenderRepository
	notifier *recordingNotifier
	locker   *recordingLocker
	owner    *company.Company
	bidders  []*company.Company
}

func newFixture(t *testing.T, bidders int) *fixture {
	t.Helper()
	notifier := &recordingNotifier{}
	f := newFixtureNotifying(t, bidders, notifier)
	f.notifier = notifier
	return f
}

func newFixtureNotifying(t *testing.T, bidders int, notifier notification.Notifier) *fixture {
	t.Helper()
	ctx := context.Background()
	companies := company.NewService(memory.NewCompanyRepository(), nil, zerolog.Nop())

	owner, err := companies.CreateCompany(ctx, "owner", &company.Company{Name: "Buyer Co", Email: "buyer@example.test"})
	require.NoError(t, err)

	f := &fixture{
		repo:   memory.NewTenderRepository(),
		locker: &recordingLocker{},
		owner:  owner,
	}
	for i := 0; i < bidders; i++ {
		subject := "bidder-" + string(rune('a'+i))
		bidder, err := companies.CreateCompany(ctx, subject, &company.Company{Name: "Supplier " + subject, Email: subject + "@example.test"})
		require.NoError(t, err)
		f.bidders = append(f.bidders, bidder)
	}
	f.svc = tender.NewService(f.repo, companies, notifier, f.locker, "https://market.test/", zerolog.Nop())
	return f
}

func (f *fixture) createTender(t *testing.T) *tender.Tender {
	t.Helper()
	created, err := f.svc.CreateTender(context.Background(), f.owner.ID, &tender.Tender{
		Title:    " Steel beams ",
		Budget:   decimal.RequireFromString("125000.50"),
		Currency: "eur",
		Deadline: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return created
}

func (f *fixture) bid(t *testing.T, tenderID string, bidder *company.Company, price string) *tender.Request {
	t.Helper()
	req, err := f.svc.SubmitRequest(context.Background(), bidder.ID, tenderID, &tender.Request{
		Proposal: "We deliver in two weeks",
		Price:    decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return req
}

func TestCreateTender(t *testing.T) {
	f := newFixture(t, 0)

	created := f.createTender(t)
	assert.Equal(t, "Steel beams", created.Title)
	assert.Equal(t, "EUR", created.Currency)
	assert.Equal(t, tender.StatusOpen, created.Status)
	assert.Equal(t, f.owner.ID, created.CompanyID)
	assert.NotNil(t, created.AttachmentURLs)

	_, err := f.svc.CreateTender(context.Background(), f.owner.ID, &tender.Tender{
		Title:    "Past",
		Currency: "EUR",
		Deadline: time.Now().Add(-time.Hour),
	})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestUpdateAndCancelTenderOwnerOnly(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	created := f.createTender(t)

	title := "Steel beams, grade S355"
	_, err := f.svc.UpdateTender(ctx, f.bidders[0].ID, created.ID, tender.Patch{Title: &title})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	updated, err := f.svc.UpdateTender(ctx, f.owner.ID, created.ID, tender.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	cancelled, err := f.svc.CancelTender(ctx, f.owner.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, tender.StatusCancelled, cancelled.Status)

	_, err = f.svc.UpdateTender(ctx, f.owner.ID, created.ID, tender.Patch{Title: &title})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

func TestSubmitRequestRules(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	created := f.createTender(t)

	_, err := f.svc.SubmitRequest(ctx, f.owner.ID, created.ID, &tender.Request{Proposal: "self", Price: decimal.NewFromInt(1)})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation), "owner cannot bid")

	f.bid(t, created.ID, f.bidders[0], "99000")
	_, err = f.svc.SubmitRequest(ctx, f.bidders[0].ID, created.ID, &tender.Request{Proposal: "again", Price: decimal.NewFromInt(1)})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict), "one active bid per company")

	assert.Equal(t, []string{"buyer@example.test"}, f.notifier.kinds()[notification.KindTenderRequestReceived])
}

func TestSubmitRequestAfterDeadlineIsExpired(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	stale := &tender.Tender{
		ID:        idgen.New(idgen.PrefixTender),
		CompanyID: f.owner.ID,
		Title:     "Old",
		Currency:  "EUR",
		Status:    tender.StatusOpen,
		Deadline:  time.Now().Add(-time.Minute),
	}
	require.NoError(t, f.repo.Create(ctx, stale))

	_, err := f.svc.SubmitRequest(ctx, f.bidders[0].ID, stale.ID, &tender.Request{Proposal: "late", Price: decimal.NewFromInt(1)})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExpired))

	closed, err := f.svc.CloseExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, closed)

	reloaded, err := f.svc.GetTender(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, tender.StatusClosed, reloaded.Status)
}

func TestAcceptRequestAwardsAndRejectsSiblings(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	created := f.createTender(t)

	winner := f.bid(t, created.ID, f.bidders[0], "100000")
	loser := f.bid(t, created.ID, f.bidders[1], "110000")
	withdrawn := f.bid(t, created.ID, f.bidders[2], "90000")
	_, err := f.svc.WithdrawRequest(ctx, f.bidders[2].ID, withdrawn.ID)
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(ctx, f.bidders[1].ID, winner.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden), "only the owner accepts")

	acceptance, err := f.svc.AcceptRequest(ctx, f.owner.ID, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, tender.StatusAwarded, acceptance.Tender.Status)
	require.NotNil(t, acceptance.Tender.AwardedRequestID)
	assert.Equal(t, winner.ID, *acceptance.Tender.AwardedRequestID)
	assert.Equal(t, tender.RequestAccepted, acceptance.Accepted.Status)
	require.Len(t, acceptance.Rejected, 1)
	assert.Equal(t, loser.ID, acceptance.Rejected[0].ID)
	assert.Equal(t, []string{"tender:" + created.ID + ":accept"}, f.locker.keys)

	requests, err := f.svc.ListRequestsForTender(ctx, f.owner.ID, created.ID)
	require.NoError(t, err)
	statuses := map[string]tender.RequestStatus{}
	for _, r := range requests {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, tender.RequestAccepted, statuses[winner.ID])
	assert.Equal(t, tender.RequestRejected, statuses[loser.ID])
	assert.Equal(t, tender.RequestWithdrawn, statuses[withdrawn.ID])

	kinds := f.notifier.kinds()
	assert.Equal(t, []string{f.bidders[0].Email}, kinds[notification.KindTenderRequestAccepted])
	assert.Equal(t, []string{f.bidders[1].Email}, kinds[notification.KindTenderRequestRejected])

	_, err = f.svc.AcceptRequest(ctx, f.owner.ID, loser.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict), "a tender is awarded once")

	ownerID, winnerID, err := f.svc.AwardedParties(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, ownerID)
	assert.Equal(t, f.bidders[0].ID, winnerID)
}

func TestConcurrentAcceptsAwardOnce(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	created := f.createTender(t)

	var bids []*tender.Request
	for i, bidder := range f.bidders {
		bids = append(bids, f.bid(t, created.ID, bidder, decimal.NewFromInt(int64(1000+i)).String()))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, b := range bids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := f.svc.AcceptRequest(ctx, f.owner.ID, id); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(b.ID)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	mine, total, err := f.svc.ListMyRequests(ctx, f.bidders[0].ID, query.Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.NotEqual(t, tender.RequestPending, mine[0].Status)
}

func TestWithdrawRequest(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	created := f.createTender(t)
	req := f.bid(t, created.ID, f.bidders[0], "500")

	_, err := f.svc.WithdrawRequest(ctx, f.bidders[1].ID, req.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	withdrawn, err := f.svc.WithdrawRequest(ctx, f.bidders[0].ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, tender.RequestWithdrawn, withdrawn.Status)

	_, err = f.svc.WithdrawRequest(ctx, f.bidders[0].ID, req.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	_, err = f.svc.WithdrawRequest(ctx, f.bidders[0].ID, "not-an-id")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

type unavailableQueue struct{}

func (unavailableQueue) Enqueue(context.Context, *notification.Job) error {
	return errors.New("outbox unavailable")
}

func (unavailableQueue) Dequeue(context.Context) (*notification.Job, error) {
	return nil, nil
}

func (unavailableQueue) MarkSent(context.Context, *notification.Job) error {
	return nil
}

func (unavailableQueue) MarkFailed(context.Context, *notification.Job, error) error {
	return nil
}

func (unavailableQueue) Depth(context.Context) (int64, error) {
	return 0, nil
}

type failingMailer struct{}

func (failingMailer) Send(context.Context, notification.OutgoingEmail) error {
	return errors.New("mail provider returned 503")
}

func TestAcceptSurvivesNotificationFailures(t *testing.T) {
	ctx := context.Background()
	renderer, err := notification.NewRenderer("")
	require.NoError(t, err)

	tests := []struct {
		name  string
		queue func(t *testing.T) notification.Queue
	}{
		{"enqueue fails", func(*testing.T) notification.Queue { return unavailableQueue{} }},
		{"queue full", func(t *testing.T) notification.Queue {
			q := queue.NewMemoryQueue(1, zerolog.Nop())
			require.NoError(t, q.Enqueue(ctx, &notification.Job{ID: "ntf_backlog", Recipient: "x@example.test"}))
			return q
		}},
		{"send fails", func(*testing.T) notification.Queue { return queue.NewMemoryQueue(16, zerolog.Nop()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.queue(t)
			notifier := notification.NewService(renderer, q, failingMailer{}, zerolog.Nop())
			f := newFixtureNotifying(t, 2, notifier)
			created := f.createTender(t)
			winner := f.bid(t, created.ID, f.bidders[0], "100000")
			loser := f.bid(t, created.ID, f.bidders[1], "105000")

			acceptance, err := f.svc.AcceptRequest(ctx, f.owner.ID, winner.ID)
			require.NoError(t, err)
			assert.Equal(t, tender.StatusAwarded, acceptance.Tender.Status)

			for {
				job, err := q.Dequeue(ctx)
				require.NoError(t, err)
				if job == nil {
					break
				}
				assert.Error(t, notifier.Deliver(ctx, job))
			}

			reloaded, err := f.svc.GetTender(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, tender.StatusAwarded, reloaded.Status)
			require.NotNil(t, reloaded.AwardedRequestID)
			assert.Equal(t, winner.ID, *reloaded.AwardedRequestID)

			requests, err := f.svc.ListRequestsForTender(ctx, f.owner.ID, created.ID)
			require.NoError(t, err)
			statuses := map[string]tender.RequestStatus{}
			for _, r := range requests {
				statuses[r.ID] = r.Status
			}
			assert.Equal(t, tender.RequestAccepted, statuses[winner.ID])
			assert.Equal(t, tender.RequestRejected, statuses[loser.ID])
		})
	}
}
