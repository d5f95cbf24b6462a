package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const pizzaColumns = `id, name, description_text, ingredients, weight, price, is_vegetarian, photo_path`

type pizzaRow struct {
	ID              int64              `db:"id"`
	Name            string             `db:"name"`
	DescriptionText string             `db:"description_text"`
	Ingredients     models.Ingredients `db:"ingredients"`
	Weight          string             `db:"weight"`
	Price           decimal.Decimal    `db:"price"`
	IsVegetarian    bool               `db:"is_vegetarian"`
	PhotoPath       string             `db:"photo_path"`
}

func (r pizzaRow) toModel() models.Pizza {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = models.Ingredients{}
	}
	return models.Pizza{
		ID:   r.ID,
		Name: r.Name,
		Description: models.Description{
			Text:        r.DescriptionText,
			Ingredients: ingredients,
			Weight:      r.Weight,
		},
		Price:        r.Price,
		IsVegetarian: r.IsVegetarian,
		PhotoPath:    r.PhotoPath,
	}
}

func toModels(rows []pizzaRow) []models.Pizza {
	pizzas := make([]models.Pizza, len(rows))
	for i, r := range rows {
		pizzas[i] = r.toModel()
	}
	return pizzas
}

// GetPizzas retrieves the whole catalog ordered by id
func (s *Store) GetPizzas(ctx context.Context) ([]models.Pizza, error) {
	var rows []pizzaRow
	err := s.db.SelectContext(ctx, &rows, "SELECT "+pizzaColumns+" FROM pizzas ORDER BY id")
	if err != nil {
		return nil, apperr.Storage("list pizzas", err)
	}
	return toModels(rows), nil
}

// GetPizzaByID retrieves a pizza by ID
func (s *Store) GetPizzaByID(ctx context.Context, id int64) (*models.Pizza, error) {
	var row pizzaRow
	err := s.db.GetContext(ctx, &row, s.rebind("SELECT "+pizzaColumns+" FROM pizzas WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperr.NotFoundError{Entity: "pizza", ID: id}
	}
	if err != nil {
		return nil, apperr.Storage("get pizza", err)
	}
	pizza := row.toModel()
	return &pizza, nil
}

// GetPizzasByIDs resolves ids in a single query. Ids that do not exist are
// simply absent from the result.
func (s *Store) GetPizzasByIDs(ctx context.Context, ids []int64) ([]models.Pizza, error) {
	if len(ids) == 0 {
		return []models.Pizza{}, nil
	}

	query, args, err := sqlx.In("SELECT "+pizzaColumns+" FROM pizzas WHERE id IN (?)", ids)
	if err != nil {
		return nil, apperr.Storage("build pizza lookup", err)
	}

	var rows []pizzaRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, apperr.Storage("lookup pizzas", err)
	}
	return toModels(rows), nil
}

// CreatePizza inserts a pizza and sets its ID
func (s *Store) CreatePizza(ctx context.Context, pizza *models.Pizza) error {
	now := time.Now().UTC()
	query := s.rebind(`
		INSERT INTO pizzas (name, description_text, ingredients, weight, price, is_vegetarian, photo_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.GetContext(ctx, &pizza.ID, query,
		pizza.Name, pizza.Description.Text, pizza.Description.Ingredients, pizza.Description.Weight,
		pizza.Price, pizza.IsVegetarian, pizza.PhotoPath, now, now)
	return apperr.Storage("insert pizza", err)
}

// UpdatePizza overwrites every editable field of a pizza
func (s *Store) UpdatePizza(ctx context.Context, pizza *models.Pizza) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE pizzas
		SET name = ?, description_text = ?, ingredients = ?, weight = ?, price = ?,
		    is_vegetarian = ?, photo_path = ?, updated_at = ?
		WHERE id = ?`),
		pizza.Name, pizza.Description.Text, pizza.Description.Ingredients, pizza.Description.Weight,
		pizza.Price, pizza.IsVegetarian, pizza.PhotoPath, time.Now().UTC(), pizza.ID)
	if err != nil {
		return apperr.Storage("update pizza", err)
	}
	return expectRow(res, "pizza", pizza.ID)
}

// UpdatePizzaPhoto sets the stored photo key of a pizza
func (s *Store) UpdatePizzaPhoto(ctx context.Context, id int64, photoPath string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE pizzas SET photo_path = ?, updated_at = ? WHERE id = ?"),
		photoPath, time.Now().UTC(), id)
	if err != nil {
		return apperr.Storage("update pizza photo", err)
	}
	return expectRow(res, "pizza", id)
}

// DeletePizza removes a pizza. Order lines referencing it keep their snapshot.
func (s *Store) DeletePizza(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM pizzas WHERE id = ?"), id)
	if err != nil {
		return apperr.Storage("delete pizza", err)
	}
	return expectRow(res, "pizza", id)
}

func expectRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("rows affected", err)
	}
	if n == 0 {
		return &apperr.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
