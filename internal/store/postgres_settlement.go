package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scoutops/scoutops/pkg/models"
)

const payoutColumns = `id, job_id, tenant_id, scout_id, amount, currency, voucher_id, status, created_at, paid_at`

func scanPayout(row pgx.Row) (*models.Payout, error) {
	var p models.Payout
	err := row.Scan(&p.ID, &p.JobID, &p.TenantID, &p.ScoutID, &p.Amount, &p.Currency,
		&p.VoucherID, &p.Status, &p.CreatedAt, &p.PaidAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const voucherColumns = `id, tenant_id, code, value, currency, expires_at, status, submission_id, terms_text, created_at, redeemed_at`

func scanVoucher(row pgx.Row) (*models.Voucher, error) {
	var v models.Voucher
	err := row.Scan(&v.ID, &v.TenantID, &v.Code, &v.Value, &v.Currency, &v.ExpiresAt,
		&v.Status, &v.SubmissionID, &v.TermsText, &v.CreatedAt, &v.RedeemedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PostgresStore) CreateSettlement(ctx context.Context, payout *models.Payout, voucher *models.Voucher) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	if voucher != nil {
		_, err := tx.Exec(ctx,
			`INSERT INTO vouchers (id, tenant_id, code, value, currency, expires_at, status, submission_id, terms_text, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			voucher.ID, voucher.TenantID, voucher.Code, voucher.Value, voucher.Currency,
			voucher.ExpiresAt, voucher.Status, voucher.SubmissionID, voucher.TermsText, voucher.CreatedAt)
		if err != nil {
			if violatedConstraint(err) == "vouchers_code_key" {
				return ErrDuplicateCode
			}
			return fmt.Errorf("insert voucher: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO payouts (id, job_id, tenant_id, scout_id, amount, currency, voucher_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		payout.ID, payout.JobID, payout.TenantID, payout.ScoutID, payout.Amount, payout.Currency,
		payout.VoucherID, payout.Status, payout.CreatedAt)
	if err != nil {
		if violatedConstraint(err) == "payouts_job_id_key" {
			return ErrPayoutExists
		}
		return fmt.Errorf("insert payout: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	payout, err := scanPayout(s.pool.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return payout, nil
}

func (s *PostgresStore) GetPayoutByJob(ctx context.Context, jobID uuid.UUID) (*models.Payout, error) {
	payout, err := scanPayout(s.pool.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE job_id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payout by job: %w", err)
	}
	return payout, nil
}

func (s *PostgresStore) CompleteSettlement(ctx context.Context, payoutID uuid.UUID, tenantID uuid.UUID) (*models.Payout, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	payout, err := scanPayout(tx.QueryRow(ctx,
		`UPDATE payouts SET status = 'paid', paid_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
		 RETURNING `+payoutColumns, payoutID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish an unknown payout from one already paid.
		var exists bool
		if qerr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM payouts WHERE id = $1 AND tenant_id = $2)`,
			payoutID, tenantID).Scan(&exists); qerr != nil {
			return nil, fmt.Errorf("check payout: %w", qerr)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("mark payout paid: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'paid', paid_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'approved'`, payout.JobID)
	if err != nil {
		return nil, fmt.Errorf("transition job to paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete settlement: %w", err)
	}
	return payout, nil
}

func (s *PostgresStore) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	voucher, err := scanVoucher(s.pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}
	return voucher, nil
}

func (s *PostgresStore) RedeemVoucher(ctx context.Context, code string) (*models.Voucher, error) {
	voucher, err := scanVoucher(s.pool.QueryRow(ctx,
		`UPDATE vouchers SET status = 'redeemed', redeemed_at = NOW()
		 WHERE code = $1 AND status = 'active' AND expires_at > NOW()
		 RETURNING `+voucherColumns, code))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := s.GetVoucherByCode(ctx, code); gerr != nil {
			return nil, gerr
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("redeem voucher: %w", err)
	}
	return voucher, nil
}

func (s *PostgresStore) ExpireVouchers(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE vouchers SET status = 'expired' WHERE status = 'active' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire vouchers: %w", err)
	}
	return tag.RowsAffected(), nil
}
