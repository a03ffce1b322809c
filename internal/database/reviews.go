package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reviewColumns = `id, order_id, customer_id, customer_name, rating, comment, is_approved, created_at`

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.OrderID, &r.CustomerID, &r.CustomerName, &r.Rating,
		&r.Comment, &r.IsApproved, &r.CreatedAt)
	return r, err
}

func collectReviews(rows pgx.Rows) ([]Review, error) {
	defer rows.Close()
	var reviews []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

type CreateReviewParams struct {
	OrderID      pgtype.UUID
	CustomerID   pgtype.UUID
	CustomerName pgtype.Text
	Rating       int32
	Comment      pgtype.Text
}

const createReview = `
INSERT INTO reviews (order_id, customer_id, customer_name, rating, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + reviewColumns

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	row := q.db.QueryRow(ctx, createReview,
		arg.OrderID, arg.CustomerID, arg.CustomerName, arg.Rating, arg.Comment)
	return scanReview(row)
}

type ListReviewsParams struct {
	Limit  int32
	Offset int32
}

const listApprovedReviews = `
SELECT ` + reviewColumns + `
FROM reviews
WHERE is_approved = TRUE
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

func (q *Queries) ListApprovedReviews(ctx context.Context, arg ListReviewsParams) ([]Review, error) {
	rows, err := q.db.Query(ctx, listApprovedReviews, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

const listReviews = `SELECT ` + reviewColumns + ` FROM reviews ORDER BY created_at DESC LIMIT $1 OFFSET $2`

func (q *Queries) ListReviews(ctx context.Context, arg ListReviewsParams) ([]Review, error) {
	rows, err := q.db.Query(ctx, listReviews, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

type SetReviewApprovalParams struct {
	ID         uuid.UUID
	IsApproved bool
}

const setReviewApproval = `
UPDATE reviews SET is_approved = $2 WHERE id = $1
RETURNING ` + reviewColumns

func (q *Queries) SetReviewApproval(ctx context.Context, arg SetReviewApprovalParams) (Review, error) {
	return scanReview(q.db.QueryRow(ctx, setReviewApproval, arg.ID, arg.IsApproved))
}
