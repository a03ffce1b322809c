package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const settingsColumns = `id, restaurant_name, phone, whatsapp_number, address, opening_time, closing_time,
	is_accepting_orders, tax_rate, bank_name, bank_account_name, bank_account_number, updated_at`

func scanSettings(row pgx.Row) (RestaurantSetting, error) {
	var s RestaurantSetting
	err := row.Scan(
		&s.ID, &s.RestaurantName, &s.Phone, &s.WhatsappNumber, &s.Address, &s.OpeningTime, &s.ClosingTime,
		&s.IsAcceptingOrders, &s.TaxRate, &s.BankName, &s.BankAccountName, &s.BankAccountNumber, &s.UpdatedAt,
	)
	return s, err
}

const getRestaurantSettings = `SELECT ` + settingsColumns + ` FROM restaurant_settings WHERE id = 1`

func (q *Queries) GetRestaurantSettings(ctx context.Context) (RestaurantSetting, error) {
	return scanSettings(q.db.QueryRow(ctx, getRestaurantSettings))
}

type UpdateRestaurantSettingsParams struct {
	RestaurantName    string
	Phone             pgtype.Text
	WhatsappNumber    pgtype.Text
	Address           pgtype.Text
	OpeningTime       pgtype.Text
	ClosingTime       pgtype.Text
	IsAcceptingOrders bool
	TaxRate           pgtype.Numeric
	BankName          pgtype.Text
	BankAccountName   pgtype.Text
	BankAccountNumber pgtype.Text
}

const updateRestaurantSettings = `
UPDATE restaurant_settings
SET restaurant_name = $1, phone = $2, whatsapp_number = $3, address = $4,
    opening_time = $5, closing_time = $6, is_accepting_orders = $7, tax_rate = $8,
    bank_name = $9, bank_account_name = $10, bank_account_number = $11, updated_at = now()
WHERE id = 1
RETURNING ` + settingsColumns

func (q *Queries) UpdateRestaurantSettings(ctx context.Context, arg UpdateRestaurantSettingsParams) (RestaurantSetting, error) {
	row := q.db.QueryRow(ctx, updateRestaurantSettings,
		arg.RestaurantName, arg.Phone, arg.WhatsappNumber, arg.Address,
		arg.OpeningTime, arg.ClosingTime, arg.IsAcceptingOrders, arg.TaxRate,
		arg.BankName, arg.BankAccountName, arg.BankAccountNumber,
	)
	return scanSettings(row)
}

type SeedRestaurantSettingsParams struct {
	RestaurantName string
	TaxRate        pgtype.Numeric
}

// SeedRestaurantSettings inserts the singleton row if it does not exist yet.
const seedRestaurantSettings = `
INSERT INTO restaurant_settings (id, restaurant_name, tax_rate)
VALUES (1, $1, $2)
ON CONFLICT (id) DO NOTHING
`

func (q *Queries) SeedRestaurantSettings(ctx context.Context, arg SeedRestaurantSettingsParams) error {
	_, err := q.db.Exec(ctx, seedRestaurantSettings, arg.RestaurantName, arg.TaxRate)
	return err
}
