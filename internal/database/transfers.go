package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const transferColumns = `id, order_id, sender_name, transfer_amount, transfer_date, reference_number,
	receipt_image_path, is_confirmed, confirmed_by, confirmed_at, confirmation_notes, created_at`

func scanBankTransfer(row pgx.Row) (BankTransferConfirmation, error) {
	var t BankTransferConfirmation
	err := row.Scan(
		&t.ID, &t.OrderID, &t.SenderName, &t.TransferAmount, &t.TransferDate, &t.ReferenceNumber,
		&t.ReceiptImagePath, &t.IsConfirmed, &t.ConfirmedBy, &t.ConfirmedAt, &t.ConfirmationNotes, &t.CreatedAt,
	)
	return t, err
}

type CreateBankTransferParams struct {
	OrderID          uuid.UUID
	SenderName       string
	TransferAmount   pgtype.Numeric
	TransferDate     pgtype.Date
	ReferenceNumber  pgtype.Text
	ReceiptImagePath pgtype.Text
}

// CreateBankTransfer records a customer's transfer claim. A resubmission for
// the same order replaces the earlier claim as long as it has not been
// confirmed; once confirmed the upsert matches no row and the caller sees
// pgx.ErrNoRows.
const createBankTransfer = `
INSERT INTO bank_transfer_confirmations (
	order_id, sender_name, transfer_amount, transfer_date, reference_number, receipt_image_path
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (order_id) DO UPDATE SET
	sender_name = EXCLUDED.sender_name,
	transfer_amount = EXCLUDED.transfer_amount,
	transfer_date = EXCLUDED.transfer_date,
	reference_number = EXCLUDED.reference_number,
	receipt_image_path = EXCLUDED.receipt_image_path,
	created_at = now()
WHERE bank_transfer_confirmations.is_confirmed = FALSE
RETURNING ` + transferColumns

func (q *Queries) CreateBankTransfer(ctx context.Context, arg CreateBankTransferParams) (BankTransferConfirmation, error) {
	row := q.db.QueryRow(ctx, createBankTransfer,
		arg.OrderID, arg.SenderName, arg.TransferAmount, arg.TransferDate,
		arg.ReferenceNumber, arg.ReceiptImagePath,
	)
	return scanBankTransfer(row)
}

const getBankTransferForUpdate = `
SELECT ` + transferColumns + ` FROM bank_transfer_confirmations WHERE id = $1 FOR NO KEY UPDATE`

func (q *Queries) GetBankTransferForUpdate(ctx context.Context, id uuid.UUID) (BankTransferConfirmation, error) {
	return scanBankTransfer(q.db.QueryRow(ctx, getBankTransferForUpdate, id))
}

const getBankTransferByOrder = `SELECT ` + transferColumns + ` FROM bank_transfer_confirmations WHERE order_id = $1`

func (q *Queries) GetBankTransferByOrder(ctx context.Context, orderID uuid.UUID) (BankTransferConfirmation, error) {
	return scanBankTransfer(q.db.QueryRow(ctx, getBankTransferByOrder, orderID))
}

const listPendingBankTransfers = `
SELECT ` + transferColumns + `
FROM bank_transfer_confirmations
WHERE is_confirmed = FALSE
ORDER BY created_at
`

func (q *Queries) ListPendingBankTransfers(ctx context.Context) ([]BankTransferConfirmation, error) {
	rows, err := q.db.Query(ctx, listPendingBankTransfers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transfers []BankTransferConfirmation
	for rows.Next() {
		t, err := scanBankTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

const countPendingBankTransfers = `SELECT COUNT(*) FROM bank_transfer_confirmations WHERE is_confirmed = FALSE`

func (q *Queries) CountPendingBankTransfers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPendingBankTransfers).Scan(&n)
	return n, err
}

type ConfirmBankTransferParams struct {
	ID                uuid.UUID
	ConfirmedBy       pgtype.UUID
	ConfirmationNotes pgtype.Text
}

// ConfirmBankTransfer is one-way: it only applies to an unconfirmed claim,
// so a repeated confirmation surfaces as pgx.ErrNoRows.
const confirmBankTransfer = `
UPDATE bank_transfer_confirmations
SET is_confirmed = TRUE, confirmed_by = $2, confirmed_at = now(), confirmation_notes = $3
WHERE id = $1 AND is_confirmed = FALSE
RETURNING ` + transferColumns

func (q *Queries) ConfirmBankTransfer(ctx context.Context, arg ConfirmBankTransferParams) (BankTransferConfirmation, error) {
	row := q.db.QueryRow(ctx, confirmBankTransfer, arg.ID, arg.ConfirmedBy, arg.ConfirmationNotes)
	return scanBankTransfer(row)
}
