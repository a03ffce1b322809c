package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, fmt.Errorf("numeric value is null")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("convert decimal: %w", err)
	}
	return n, nil
}

func numericString(n pgtype.Numeric) string {
	d, err := numericToDecimal(n)
	if err != nil {
		return ""
	}
	return d.StringFixed(2)
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidOrNull(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
