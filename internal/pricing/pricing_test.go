package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestCompute(t *testing.T) {
	testCases := []struct {
		testName string
		lines    []Line
		expected Pricing
	}{
		{
			testName: "Бесплатная доставка выше порога",
			lines:    []Line{{UnitPrice: d("50"), Quantity: 2}},
			expected: Pricing{Subtotal: d("100"), Shipping: d("0"), Tax: d("8.25"), Total: d("108.25")},
		},
		{
			testName: "Фиксированная доставка ниже порога",
			lines:    []Line{{UnitPrice: d("20"), Quantity: 1}},
			expected: Pricing{Subtotal: d("20"), Shipping: d("9.99"), Tax: d("1.65"), Total: d("31.64")},
		},
		{
			testName: "Ровно на пороге доставка платная",
			lines:    []Line{{UnitPrice: d("25"), Quantity: 3}},
			expected: Pricing{Subtotal: d("75"), Shipping: d("9.99"), Tax: d("6.19"), Total: d("91.18")},
		},
		{
			testName: "Несколько позиций",
			lines:    []Line{{UnitPrice: d("19.99"), Quantity: 2}, {UnitPrice: d("5.5"), Quantity: 1}},
			expected: Pricing{Subtotal: d("45.48"), Shipping: d("9.99"), Tax: d("3.75"), Total: d("59.22")},
		},
		{
			testName: "Пустая корзина",
			lines:    nil,
			expected: Pricing{Subtotal: d("0"), Shipping: d("9.99"), Tax: d("0"), Total: d("9.99")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			result := Compute(tc.lines)

			assert.True(t, tc.expected.Subtotal.Equal(result.Subtotal), "subtotal %s", result.Subtotal)
			assert.True(t, tc.expected.Shipping.Equal(result.Shipping), "shipping %s", result.Shipping)
			assert.True(t, tc.expected.Tax.Equal(result.Tax), "tax %s", result.Tax)
			assert.True(t, tc.expected.Total.Equal(result.Total), "total %s", result.Total)
			assert.True(t, result.Consistent())
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	lines := []Line{{UnitPrice: d("12.34"), Quantity: 3}, {UnitPrice: d("0.99"), Quantity: 7}}

	assert.Equal(t, Compute(lines), Compute(lines))
}

// Налог округляется до цента половиной вверх на всём диапазоне сумм.
func TestTaxMatchesCentRounding(t *testing.T) {
	for cents := int64(1); cents <= 200000; cents++ {
		subtotal := decimal.New(cents, -2)
		result := Compute([]Line{{UnitPrice: subtotal, Quantity: 1}})

		// cents * 825 / 10000 с округлением половины вверх в целых центах.
		expected := decimal.New((cents*825+5000)/10000, -2)
		if !expected.Equal(result.Tax) {
			t.Fatalf("subtotal %s: tax %s, expected %s", subtotal, result.Tax, expected)
		}
		if !result.Consistent() {
			t.Fatalf("subtotal %s: pricing is inconsistent", subtotal)
		}
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(d("108.25"), d("108.26")))
	assert.True(t, Equal(d("31.64"), d("31.64")))
	assert.False(t, Equal(d("108.25"), d("108.27")))
}
