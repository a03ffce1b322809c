package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const notificationColumns = `id, user_id, order_id, kind, title, message, payload, is_read, is_sent, created_at, read_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.OrderID, &n.Kind, &n.Title, &n.Message, &n.Payload,
		&n.IsRead, &n.IsSent, &n.CreatedAt, &n.ReadAt,
	)
	return n, err
}

func collectNotifications(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()
	var notifs []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

type CreateNotificationParams struct {
	UserID  pgtype.UUID
	OrderID pgtype.UUID
	Kind    string
	Title   string
	Message string
	Payload pgtype.Text
}

const createNotification = `
INSERT INTO notifications (user_id, order_id, kind, title, message, payload)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + notificationColumns

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, createNotification,
		arg.UserID, arg.OrderID, arg.Kind, arg.Title, arg.Message, arg.Payload)
	return scanNotification(row)
}

type ListNotificationsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

// ListNotificationsByUser deduplicates on (order, kind): retried deliveries
// insert extra rows, but a reader only ever sees the latest one per order
// event. Rows without an order dedup on their own id.
const listNotificationsByUser = `
SELECT ` + notificationColumns + `
FROM (
	SELECT DISTINCT ON (COALESCE(order_id, id), kind) ` + notificationColumns + `
	FROM notifications
	WHERE user_id = $1
	ORDER BY COALESCE(order_id, id), kind, created_at DESC
) n
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListNotificationsByUser(ctx context.Context, arg ListNotificationsByUserParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotificationsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectNotifications(rows)
}

type ListStaffNotificationsParams struct {
	Limit  int32
	Offset int32
}

const listStaffNotifications = `
SELECT ` + notificationColumns + `
FROM (
	SELECT DISTINCT ON (COALESCE(order_id, id), kind) ` + notificationColumns + `
	FROM notifications
	WHERE user_id IS NULL
	ORDER BY COALESCE(order_id, id), kind, created_at DESC
) n
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

func (q *Queries) ListStaffNotifications(ctx context.Context, arg ListStaffNotificationsParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listStaffNotifications, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectNotifications(rows)
}

type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

const markNotificationRead = `
UPDATE notifications
SET is_read = TRUE, read_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + notificationColumns

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, markNotificationRead, arg.ID, arg.UserID))
}

const markStaffNotificationRead = `
UPDATE notifications
SET is_read = TRUE, read_at = now()
WHERE id = $1 AND user_id IS NULL
RETURNING ` + notificationColumns

func (q *Queries) MarkStaffNotificationRead(ctx context.Context, id uuid.UUID) (Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, markStaffNotificationRead, id))
}

const markAllNotificationsRead = `
UPDATE notifications
SET is_read = TRUE, read_at = now()
WHERE user_id = $1 AND is_read = FALSE
`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, markAllNotificationsRead, userID)
	return err
}

const markAllStaffNotificationsRead = `
UPDATE notifications
SET is_read = TRUE, read_at = now()
WHERE user_id IS NULL AND is_read = FALSE
`

func (q *Queries) MarkAllStaffNotificationsRead(ctx context.Context) error {
	_, err := q.db.Exec(ctx, markAllStaffNotificationsRead)
	return err
}

const markNotificationSent = `UPDATE notifications SET is_sent = TRUE WHERE id = $1`

func (q *Queries) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, markNotificationSent, id)
	return err
}

const countUnreadNotifications = `
SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUnreadNotifications, userID).Scan(&n)
	return n, err
}

const countUnreadStaffNotifications = `
SELECT COUNT(*) FROM notifications WHERE user_id IS NULL AND is_read = FALSE
`

func (q *Queries) CountUnreadStaffNotifications(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUnreadStaffNotifications).Scan(&n)
	return n, err
}
