package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

const offerColumns = `id, title, description, image, show_on_main_page, created_at, updated_at`

// ListOffers возвращает акции, новые первыми. При mainPage = true только показанные
// на главной странице, не больше model.MaxMainPageOffers.
func (r *PostgresRepository) ListOffers(ctx context.Context, mainPage bool) ([]model.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers ORDER BY created_at DESC, id DESC`
	if mainPage {
		query = fmt.Sprintf(`SELECT %s FROM offers WHERE show_on_main_page
			ORDER BY created_at DESC, id DESC LIMIT %d`, offerColumns, model.MaxMainPageOffers)
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	offers := []model.Offer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return offers, nil
}

// GetOffer возвращает акцию по идентификатору.
func (r *PostgresRepository) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

// CreateOffer сохраняет акцию и заполняет её идентификатор и даты.
func (r *PostgresRepository) CreateOffer(ctx context.Context, o *model.Offer) error {
	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if o.ShowOnMainPage {
				if err := checkMainPageLimit(ctx, tx); err != nil {
					return err
				}
			}

			err := tx.QueryRow(ctx,
				`INSERT INTO offers (title, description, image, show_on_main_page)
				 VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`,
				o.Title, o.Description, o.Image, o.ShowOnMainPage,
			).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert offer: %w", err)
			}
			return nil
		})
	})
}

// UpdateOffer перезаписывает акцию. Лимит главной страницы проверяется, только
// если акция становится видимой.
func (r *PostgresRepository) UpdateOffer(ctx context.Context, o *model.Offer) error {
	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if o.ShowOnMainPage {
				if _, err := tx.Exec(ctx, `LOCK TABLE offers IN SHARE ROW EXCLUSIVE MODE`); err != nil {
					return fmt.Errorf("lock offers: %w", err)
				}
			}

			var visible bool
			err := tx.QueryRow(ctx,
				`SELECT show_on_main_page FROM offers WHERE id = $1 FOR UPDATE`, o.ID,
			).Scan(&visible)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("offer %d: %w", o.ID, ErrNotFound)
				}
				return fmt.Errorf("select offer: %w", err)
			}

			if o.ShowOnMainPage && !visible {
				if err := checkMainPageLimit(ctx, tx); err != nil {
					return err
				}
			}

			err = tx.QueryRow(ctx,
				`UPDATE offers
				 SET title = $2, description = $3, image = $4, show_on_main_page = $5, updated_at = now()
				 WHERE id = $1
				 RETURNING created_at, updated_at`,
				o.ID, o.Title, o.Description, o.Image, o.ShowOnMainPage,
			).Scan(&o.CreatedAt, &o.UpdatedAt)
			if err != nil {
				return fmt.Errorf("update offer: %w", err)
			}
			return nil
		})
	})
}

// DeleteOffer удаляет акцию.
func (r *PostgresRepository) DeleteOffer(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("offer %d: %w", id, ErrNotFound)
	}
	return nil
}

// checkMainPageLimit блокирует таблицу акций до конца транзакции и проверяет,
// что на главной странице есть место.
func checkMainPageLimit(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `LOCK TABLE offers IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock offers: %w", err)
	}

	var visible int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM offers WHERE show_on_main_page`,
	).Scan(&visible); err != nil {
		return fmt.Errorf("count visible offers: %w", err)
	}
	if visible >= model.MaxMainPageOffers {
		return fmt.Errorf("%w: at most %d", ErrOfferLimit, model.MaxMainPageOffers)
	}
	return nil
}

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var o model.Offer
	if err := row.Scan(&o.ID, &o.Title, &o.Description, &o.Image, &o.ShowOnMainPage,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
