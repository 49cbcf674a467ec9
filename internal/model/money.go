package model

import "github.com/shopspring/decimal"

// Денежные суммы хранятся в БД в сантимах (1/100 динара).

// ToCentimes переводит сумму в сантимы с округлением до сотых.
func ToCentimes(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCentimes переводит сантимы в сумму в динарах.
func FromCentimes(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
