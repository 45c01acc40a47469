// Package settlement issues the financial side effects of an approved
// job: the cash payout and, for reward payout types, the voucher.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
	"github.com/scoutops/scoutops/pkg/observability"
)

// defaultVoucherTTL applies when the job does not set a voucher expiry.
const defaultVoucherTTL = 30 * 24 * time.Hour

// maxCodeAttempts bounds the retry loop on voucher code collisions.
const maxCodeAttempts = 5

// Store is the slice of the data layer the issuer depends on.
type Store interface {
	CreateSettlement(ctx context.Context, payout *models.Payout, voucher *models.Voucher) error
	GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	GetPayoutByJob(ctx context.Context, jobID uuid.UUID) (*models.Payout, error)
	CompleteSettlement(ctx context.Context, payoutID uuid.UUID, tenantID uuid.UUID) (*models.Payout, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	RedeemVoucher(ctx context.Context, code string) (*models.Voucher, error)
	ExpireVouchers(ctx context.Context, now time.Time) (int64, error)
}

// Issuer creates and completes settlements.
type Issuer struct {
	store    Store
	notifier notify.Notifier
}

// NewIssuer creates a new Issuer.
func NewIssuer(st Store, n notify.Notifier) *Issuer {
	return &Issuer{store: st, notifier: n}
}

// Issue creates the settlement for an approved job: a voucher for reward
// payout types, then the payout, persisted as one unit of work. The
// caller must hold the approval transition; the unique payout-per-job
// index is the final backstop against double settlement.
func (i *Issuer) Issue(ctx context.Context, job *models.Job, submissionID uuid.UUID) (*models.Payout, error) {
	if job.AssignedScoutID == nil {
		// Should not occur after acceptance; nothing to settle.
		slog.Warn("approved job has no assigned scout, skipping settlement", "job_id", job.ID)
		return nil, nil
	}

	now := time.Now().UTC()
	payout := &models.Payout{
		ID:        uuid.New(),
		JobID:     job.ID,
		TenantID:  job.TenantID,
		ScoutID:   *job.AssignedScoutID,
		Amount:    cashLeg(job),
		Currency:  job.Currency,
		Status:    models.PayoutStatusPending,
		CreatedAt: now,
	}

	if !job.PayoutType.IssuesVoucher() {
		if err := i.store.CreateSettlement(ctx, payout, nil); err != nil {
			return nil, mapSettlementErr(err)
		}
		i.recordIssued(ctx, job, payout)
		return payout, nil
	}

	// Reward types carry a voucher; the code space is small enough that
	// collisions are expected eventually, so regenerate and retry.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newVoucherCode()
		if err != nil {
			return nil, err
		}
		voucher := &models.Voucher{
			ID:           uuid.New(),
			TenantID:     job.TenantID,
			Code:         code,
			Value:        voucherValue(job),
			Currency:     job.Currency,
			ExpiresAt:    voucherExpiry(job, now),
			Status:       models.VoucherStatusActive,
			SubmissionID: &submissionID,
			TermsText:    voucherTerms(job),
			CreatedAt:    now,
		}
		payout.VoucherID = &voucher.ID

		err = i.store.CreateSettlement(ctx, payout, voucher)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, mapSettlementErr(err)
		}
		observability.VouchersIssued.Inc()
		i.recordIssued(ctx, job, payout)
		return payout, nil
	}
	return nil, fmt.Errorf("voucher code generation exhausted %d attempts", maxCodeAttempts)
}

// Complete flips a payout to paid and its job from approved to paid.
func (i *Issuer) Complete(ctx context.Context, payoutID, tenantID uuid.UUID) (*models.Payout, error) {
	payout, err := i.store.CompleteSettlement(ctx, payoutID, tenantID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("%w: payout %s", errs.ErrNotFound, payoutID)
		case errors.Is(err, store.ErrConflict):
			return nil, fmt.Errorf("%w: payout already completed", errs.ErrConflict)
		}
		return nil, fmt.Errorf("complete settlement: %w", err)
	}
	i.notifier.Publish(ctx, notify.Event{Name: notify.EventJobPaid, TenantID: tenantID, JobID: payout.JobID, ScoutID: &payout.ScoutID})
	return payout, nil
}

// Redeem marks an active, unexpired voucher as redeemed.
func (i *Issuer) Redeem(ctx context.Context, code string, tenantID uuid.UUID) (*models.Voucher, error) {
	existing, err := i.store.GetVoucherByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: voucher", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("load voucher: %w", err)
	}
	if existing.TenantID != tenantID {
		return nil, fmt.Errorf("%w: voucher", errs.ErrNotFound)
	}

	voucher, err := i.store.RedeemVoucher(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: voucher is not redeemable", errs.ErrConflict)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: voucher", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("redeem voucher: %w", err)
	}
	i.notifier.Publish(ctx, notify.Event{Name: notify.EventVoucherRedeemed, TenantID: tenantID})
	return voucher, nil
}

// PayoutForJob returns the settlement record of a job.
func (i *Issuer) PayoutForJob(ctx context.Context, jobID, tenantID uuid.UUID) (*models.Payout, error) {
	payout, err := i.store.GetPayoutByJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no payout for job %s", errs.ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	if payout.TenantID != tenantID {
		return nil, fmt.Errorf("%w: no payout for job %s", errs.ErrNotFound, jobID)
	}
	return payout, nil
}

// ExpireOverdue is invoked by the external scheduler to expire vouchers
// past their expiry.
func (i *Issuer) ExpireOverdue(ctx context.Context) (int64, error) {
	return i.store.ExpireVouchers(ctx, time.Now().UTC())
}

func (i *Issuer) recordIssued(ctx context.Context, job *models.Job, payout *models.Payout) {
	observability.PayoutsIssued.WithLabelValues(string(job.PayoutType)).Inc()
	i.notifier.Publish(ctx, notify.Event{
		Name: notify.EventPayoutCreated, TenantID: job.TenantID, JobID: job.ID, ScoutID: &payout.ScoutID,
	})
}

// cashLeg is the payout amount: the full amount for cash and mixed, zero
// for the pure reward types whose value lives in the voucher.
func cashLeg(job *models.Job) int64 {
	switch job.PayoutType {
	case models.PayoutTypeCash, models.PayoutTypeMixed:
		return job.PayoutAmount
	}
	return 0
}

// voucherValue is zero for free_product (the reward is the product, not a
// denomination) and the payout amount otherwise.
func voucherValue(job *models.Job) int64 {
	if job.PayoutType == models.PayoutTypeFreeProduct {
		return 0
	}
	return job.PayoutAmount
}

func voucherExpiry(job *models.Job, now time.Time) time.Time {
	if job.VoucherExpiresAt != nil {
		return *job.VoucherExpiresAt
	}
	return now.Add(defaultVoucherTTL)
}

func voucherTerms(job *models.Job) string {
	if job.RewardDescription != "" {
		return job.RewardDescription
	}
	switch job.PayoutType {
	case models.PayoutTypeFreeProduct:
		return "Redeemable for one free product at the issuing location."
	case models.PayoutTypeDiscount:
		return fmt.Sprintf("Discount voucher worth %d %s.", job.PayoutAmount, job.Currency)
	default:
		return fmt.Sprintf("Reward voucher worth %d %s.", job.PayoutAmount, job.Currency)
	}
}

func mapSettlementErr(err error) error {
	if errors.Is(err, store.ErrPayoutExists) {
		return fmt.Errorf("%w: job is already settled", errs.ErrConflict)
	}
	return fmt.Errorf("create settlement: %w", err)
}
