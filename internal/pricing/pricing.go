package pricing

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold сумма, начиная с которой (строго больше) доставка бесплатна.
	FreeShippingThreshold = decimal.NewFromInt(75)
	FlatShipping          = decimal.RequireFromString("9.99")
	TaxRate               = decimal.RequireFromString("0.0825")

	// Tolerance допустимое расхождение сумм из-за округления.
	Tolerance = decimal.RequireFromString("0.01")
)

// Line позиция заказа с ценой, полученной из каталога, а не от клиента.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute рассчитывает стоимость заказа. Функция чистая: одинаковый вход даёт одинаковый результат.
func Compute(lines []Line) Pricing {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = Round(subtotal)

	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := Round(subtotal.Mul(TaxRate))

	return Pricing{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    Round(subtotal.Add(shipping).Add(tax)),
	}
}

// Consistent проверяет инвариант total == subtotal + shipping + tax с точностью до цента.
func (p Pricing) Consistent() bool {
	return Equal(p.Total, p.Subtotal.Add(p.Shipping).Add(p.Tax))
}

// LineTotal стоимость позиции, округлённая до цента.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Round округляет денежную сумму до двух знаков (половина вверх).
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Equal сравнивает суммы с допуском Tolerance.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
