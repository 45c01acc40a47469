package settlement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
)

// --- mock store ---

type mockStore struct {
	payouts  map[uuid.UUID]*models.Payout
	vouchers map[string]*models.Voucher

	// collideFirst makes the first N CreateSettlement calls fail with a
	// duplicate voucher code.
	collideFirst int
	createErr    error
	calls        int
}

func newMockStore() *mockStore {
	return &mockStore{
		payouts:  make(map[uuid.UUID]*models.Payout),
		vouchers: make(map[string]*models.Voucher),
	}
}

func (s *mockStore) CreateSettlement(_ context.Context, payout *models.Payout, voucher *models.Voucher) error {
	s.calls++
	if s.createErr != nil {
		return s.createErr
	}
	if voucher != nil && s.collideFirst > 0 {
		s.collideFirst--
		return store.ErrDuplicateCode
	}
	for _, existing := range s.payouts {
		if existing.JobID == payout.JobID {
			return store.ErrPayoutExists
		}
	}
	copied := *payout
	s.payouts[payout.ID] = &copied
	if voucher != nil {
		v := *voucher
		s.vouchers[voucher.Code] = &v
	}
	return nil
}

func (s *mockStore) GetPayout(_ context.Context, id uuid.UUID) (*models.Payout, error) {
	p, ok := s.payouts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *mockStore) GetPayoutByJob(_ context.Context, jobID uuid.UUID) (*models.Payout, error) {
	for _, p := range s.payouts {
		if p.JobID == jobID {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *mockStore) CompleteSettlement(_ context.Context, payoutID uuid.UUID, tenantID uuid.UUID) (*models.Payout, error) {
	p, ok := s.payouts[payoutID]
	if !ok || p.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	if p.Status != models.PayoutStatusPending {
		return nil, store.ErrConflict
	}
	now := time.Now().UTC()
	p.Status = models.PayoutStatusPaid
	p.PaidAt = &now
	return p, nil
}

func (s *mockStore) GetVoucherByCode(_ context.Context, code string) (*models.Voucher, error) {
	v, ok := s.vouchers[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (s *mockStore) RedeemVoucher(_ context.Context, code string) (*models.Voucher, error) {
	v, ok := s.vouchers[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	if v.Status != models.VoucherStatusActive || !v.ExpiresAt.After(time.Now()) {
		return nil, store.ErrConflict
	}
	now := time.Now().UTC()
	v.Status = models.VoucherStatusRedeemed
	v.RedeemedAt = &now
	return v, nil
}

func (s *mockStore) ExpireVouchers(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, v := range s.vouchers {
		if v.Status == models.VoucherStatusActive && v.ExpiresAt.Before(now) {
			v.Status = models.VoucherStatusExpired
			n++
		}
	}
	return n, nil
}

// --- helpers ---

func approvedJob(payoutType models.PayoutType) *models.Job {
	scoutID := uuid.New()
	now := time.Now()
	return &models.Job{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		Status:          models.JobStatusApproved,
		PayoutType:      payoutType,
		PayoutAmount:    2500,
		Currency:        "EUR",
		AssignedScoutID: &scoutID,
		WindowStart:     now.Add(-48 * time.Hour),
		WindowEnd:       now.Add(-time.Hour),
	}
}

// --- tests ---

func TestIssue_CashPayoutOnly(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeCash)

	payout, err := i.Issue(context.Background(), job, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payout.Amount != 2500 {
		t.Errorf("cash payout must carry the full amount, got %d", payout.Amount)
	}
	if payout.VoucherID != nil {
		t.Error("cash payout must not link a voucher")
	}
	if payout.Status != models.PayoutStatusPending {
		t.Errorf("expected pending, got %s", payout.Status)
	}
	if len(s.vouchers) != 0 {
		t.Errorf("cash payout created %d vouchers", len(s.vouchers))
	}
}

func TestIssue_DiscountVoucher(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)

	payout, err := i.Issue(context.Background(), job, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payout.Amount != 0 {
		t.Errorf("discount payout cash leg must be zero, got %d", payout.Amount)
	}
	if payout.VoucherID == nil {
		t.Fatal("discount payout must link a voucher")
	}
	if len(s.vouchers) != 1 {
		t.Fatalf("expected one voucher, got %d", len(s.vouchers))
	}
	for _, v := range s.vouchers {
		if v.Value != 2500 {
			t.Errorf("discount voucher value must be the payout amount, got %d", v.Value)
		}
		if v.Status != models.VoucherStatusActive {
			t.Errorf("expected active, got %s", v.Status)
		}
	}
}

func TestIssue_FreeProductVoucherHasZeroValue(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeFreeProduct)

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range s.vouchers {
		if v.Value != 0 {
			t.Errorf("free_product voucher value must be zero, got %d", v.Value)
		}
		if v.TermsText == "" {
			t.Error("voucher must carry terms text")
		}
	}
}

func TestIssue_MixedCarriesBothLegs(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeMixed)

	payout, err := i.Issue(context.Background(), job, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payout.Amount != 2500 {
		t.Errorf("mixed payout must carry the cash leg, got %d", payout.Amount)
	}
	if payout.VoucherID == nil {
		t.Error("mixed payout must link a voucher")
	}
}

func TestIssue_DefaultVoucherExpiry(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)

	before := time.Now().Add(defaultVoucherTTL - time.Minute)
	after := time.Now().Add(defaultVoucherTTL + time.Minute)
	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range s.vouchers {
		if v.ExpiresAt.Before(before) || v.ExpiresAt.After(after) {
			t.Errorf("expected ~30 day default expiry, got %s", v.ExpiresAt)
		}
	}
}

func TestIssue_ExplicitVoucherExpiry(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)
	expiry := time.Now().Add(7 * 24 * time.Hour).UTC()
	job.VoucherExpiresAt = &expiry

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range s.vouchers {
		if !v.ExpiresAt.Equal(expiry) {
			t.Errorf("expected %s, got %s", expiry, v.ExpiresAt)
		}
	}
}

func TestIssue_RetriesOnCodeCollision(t *testing.T) {
	s := newMockStore()
	s.collideFirst = 2
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if s.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", s.calls)
	}
}

func TestIssue_GivesUpAfterMaxAttempts(t *testing.T) {
	s := newMockStore()
	s.collideFirst = maxCodeAttempts + 1
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)

	if _, err := i.Issue(context.Background(), job, uuid.New()); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if s.calls != maxCodeAttempts {
		t.Errorf("expected %d attempts, got %d", maxCodeAttempts, s.calls)
	}
}

func TestIssue_SecondSettlementConflicts(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeCash)

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := i.Issue(context.Background(), job, uuid.New())
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expected ErrConflict for double settlement, got %v", err)
	}
}

func TestIssue_NoAssignedScoutIsNoop(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeCash)
	job.AssignedScoutID = nil

	payout, err := i.Issue(context.Background(), job, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payout != nil {
		t.Error("no scout means nothing to settle")
	}
	if s.calls != 0 {
		t.Errorf("store must not be touched, got %d calls", s.calls)
	}
}

func TestComplete_FlipsPayoutToPaid(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeCash)

	payout, err := i.Issue(context.Background(), job, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, err := i.Complete(context.Background(), payout.ID, job.TenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != models.PayoutStatusPaid || done.PaidAt == nil {
		t.Errorf("payout not completed: %+v", done)
	}

	if _, err := i.Complete(context.Background(), payout.ID, job.TenantID); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("second completion must conflict, got %v", err)
	}
}

func TestComplete_WrongTenant(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeCash)

	payout, _ := i.Issue(context.Background(), job, uuid.New())
	if _, err := i.Complete(context.Background(), payout.ID, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedeem_ActiveVoucher(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var code string
	for c := range s.vouchers {
		code = c
	}

	v, err := i.Redeem(context.Background(), code, job.TenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != models.VoucherStatusRedeemed || v.RedeemedAt == nil {
		t.Errorf("voucher not redeemed: %+v", v)
	}

	if _, err := i.Redeem(context.Background(), code, job.TenantID); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("double redemption must conflict, got %v", err)
	}
}

func TestRedeem_ExpiredVoucher(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)
	past := time.Now().Add(-time.Hour)
	job.VoucherExpiresAt = &past

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var code string
	for c := range s.vouchers {
		code = c
	}

	if _, err := i.Redeem(context.Background(), code, job.TenantID); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expired voucher must conflict, got %v", err)
	}
}

func TestRedeem_CrossTenantLooksLikeNotFound(t *testing.T) {
	s := newMockStore()
	i := NewIssuer(s, notify.Nop{})
	job := approvedJob(models.PayoutTypeDiscount)

	if _, err := i.Issue(context.Background(), job, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var code string
	for c := range s.vouchers {
		code = c
	}

	if _, err := i.Redeem(context.Background(), code, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVoucherTerms_FallBackPerType(t *testing.T) {
	job := approvedJob(models.PayoutTypeFreeProduct)
	if !strings.Contains(voucherTerms(job), "free product") {
		t.Errorf("unexpected terms: %s", voucherTerms(job))
	}
	job.RewardDescription = "One free espresso"
	if voucherTerms(job) != "One free espresso" {
		t.Errorf("reward description must win: %s", voucherTerms(job))
	}
}
