package database

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	SelectActiveProductsQuery = `
		SELECT
			id,
			name,
			price
		FROM
			products
		WHERE
			id = ANY($1)
			AND active
	`
)

type ProductDB struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// FindProducts возвращает активные товары по списку ID. Отсутствующие ID просто не попадают в результат.
func (d *Database) FindProducts(ctx context.Context, ids []string) ([]ProductDB, error) {
	rows, err := d.db.Query(ctx, SelectActiveProductsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска товаров: %w", err)
	}
	defer rows.Close()

	var result []ProductDB
	for rows.Next() {
		var product ProductDB
		if err := rows.Scan(&product.ID, &product.Name, &product.Price); err != nil {
			return nil, fmt.Errorf("ошибка обработки строки с товаром: %w", err)
		}
		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по строкам: %w", err)
	}

	return result, nil
}
