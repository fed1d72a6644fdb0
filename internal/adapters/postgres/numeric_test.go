package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "9.99", "99999999", "1234.5678"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			assert.True(t, d.Equal(numericToDecimal(decimalToNumeric(d))))
		})
	}

	assert.True(t, numericToDecimal(pgtype.Numeric{}).IsZero())
}
