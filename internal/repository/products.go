package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

const productColumns = `id, name, description, price, gender, age, category, subcategory, season,
	pictures, is_newest, is_trending, COALESCE(created_by, 0), created_at, updated_at`

// CreateProduct сохраняет товар вместе с остатками.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var createdBy *int64
		if p.CreatedBy != 0 {
			createdBy = &p.CreatedBy
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO products (name, description, price, gender, age, category, subcategory, season,
			                       pictures, is_newest, is_trending, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING id`,
			p.Name, p.Description, model.ToCentimes(p.Price), string(p.Gender), string(p.Age),
			string(p.Category), p.Subcategory, string(p.Season), p.Pictures, p.IsNewest, p.IsTrending, createdBy,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		return syncSizes(ctx, tx, id, p.Stock)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateProduct обновляет карточку товара и набор размеров. Остатки уже
// существующих размеров не меняются: пополнение выполняется только через Restock.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	return r.withRetry(ctx, func() error {
		return r.updateProduct(ctx, p)
	})
}

func (r *PostgresRepository) updateProduct(ctx context.Context, p *model.Product) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE products
			 SET name = $2, description = $3, price = $4, gender = $5, age = $6, category = $7,
			     subcategory = $8, season = $9, pictures = $10, is_newest = $11, is_trending = $12,
			     updated_at = now()
			 WHERE id = $1`,
			p.ID, p.Name, p.Description, model.ToCentimes(p.Price), string(p.Gender), string(p.Age),
			string(p.Category), p.Subcategory, string(p.Season), p.Pictures, p.IsNewest, p.IsTrending,
		)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
		}

		return syncSizes(ctx, tx, p.ID, p.Stock)
	})
}

// syncSizes удаляет размеры, которых нет в stock, и добавляет новые с начальным
// остатком. Количество существующих размеров не перезаписывается.
func syncSizes(ctx context.Context, tx pgx.Tx, productID int64, stock []model.StockEntry) error {
	sizes := make([]string, 0, len(stock))
	for _, s := range stock {
		sizes = append(sizes, s.Size)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM product_stock WHERE product_id = $1 AND NOT (size = ANY($2))`,
		productID, sizes,
	); err != nil {
		return fmt.Errorf("delete stale sizes: %w", err)
	}

	for _, s := range stock {
		if _, err := tx.Exec(ctx,
			`INSERT INTO product_stock (product_id, size, quantity) VALUES ($1, $2, $3)
			 ON CONFLICT (product_id, size) DO NOTHING`,
			productID, s.Size, s.Quantity,
		); err != nil {
			return fmt.Errorf("insert size %s: %w", s.Size, err)
		}
	}
	return nil
}

// DeleteProduct удаляет товар. Позиции оформленных заказов не затрагиваются.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetProduct возвращает товар с остатками.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	products := []model.Product{*p}
	if err := r.loadStock(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// ListProducts возвращает страницу товаров по фильтру и общее число подходящих товаров.
func (r *PostgresRepository) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Search != "" {
		add(`(name ILIKE '%%' || $%[1]d || '%%' OR description ILIKE '%%' || $%[1]d || '%%')`, f.Search)
	}
	if f.Category != "" {
		add(`category = $%d`, f.Category)
	}
	if f.Subcategory != "" {
		add(`subcategory = $%d`, f.Subcategory)
	}
	if f.Gender != "" {
		add(`gender = $%d`, f.Gender)
	}
	if f.Age != "" {
		add(`age = $%d`, f.Age)
	}
	if f.Season != "" {
		add(`season = $%d`, f.Season)
	}
	if f.Newest {
		conds = append(conds, `is_newest`)
	}
	if f.Trending {
		conds = append(conds, `is_trending`)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		productColumns, where, f.Limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadStock(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListRelatedProducts возвращает до limit товаров, похожих на данный: сначала той же
// подкатегории, затем той же категории, затем остальные. Внутри группы порядок случайный.
func (r *PostgresRepository) ListRelatedProducts(ctx context.Context, productID int64, limit int) ([]model.Product, error) {
	var category, subcategory string
	err := r.pool.QueryRow(ctx,
		`SELECT category, subcategory FROM products WHERE id = $1`, productID,
	).Scan(&category, &subcategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE id <> $1
		 ORDER BY CASE
		     WHEN category = $2 AND subcategory = $3 THEN 0
		     WHEN category = $2 THEN 1
		     ELSE 2
		 END, random()
		 LIMIT $4`,
		productID, category, subcategory, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select related products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadStock(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p                             model.Product
		price                         int64
		gender, age, category, season string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &gender, &age, &category, &p.Subcategory,
		&season, &p.Pictures, &p.IsNewest, &p.IsTrending, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = model.FromCentimes(price)
	p.Gender = model.Gender(gender)
	p.Age = model.AgeGroup(age)
	p.Category = model.Category(category)
	p.Season = model.Season(season)
	return &p, nil
}

func (r *PostgresRepository) loadStock(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids = append(ids, p.ID)
		index[p.ID] = i
		products[i].Stock = []model.StockEntry{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, size, quantity FROM product_stock WHERE product_id = ANY($1) ORDER BY product_id, size`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			entry     model.StockEntry
		)
		if err := rows.Scan(&productID, &entry.Size, &entry.Quantity); err != nil {
			return fmt.Errorf("scan stock: %w", err)
		}
		i := index[productID]
		products[i].Stock = append(products[i].Stock, entry)
	}
	return rows.Err()
}

// ListCategories возвращает категории, в которых есть товары.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListSubcategories возвращает подкатегории категории, в которых есть товары.
func (r *PostgresRepository) ListSubcategories(ctx context.Context, category string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT subcategory FROM products WHERE category = $1 ORDER BY subcategory`, category)
	if err != nil {
		return nil, fmt.Errorf("select subcategories: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Restock атомарно увеличивает остаток размера и возвращает новое значение.
// Строка товара блокируется до строки остатка, в том же порядке, что и при
// оформлении заказа.
func (r *PostgresRepository) Restock(ctx context.Context, productID int64, size string, quantity int) (int, error) {
	var newQuantity int
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `UPDATE products SET updated_at = now() WHERE id = $1`, productID)
			if err != nil {
				return fmt.Errorf("touch product: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("product %d: %w", productID, ErrNotFound)
			}

			err = tx.QueryRow(ctx,
				`INSERT INTO product_stock (product_id, size, quantity) VALUES ($1, $2, $3)
				 ON CONFLICT (product_id, size) DO UPDATE SET quantity = product_stock.quantity + excluded.quantity
				 RETURNING quantity`,
				productID, size, quantity,
			).Scan(&newQuantity)
			if err != nil {
				return fmt.Errorf("restock: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return newQuantity, nil
}
