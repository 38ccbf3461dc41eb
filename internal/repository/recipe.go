package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/recipebox/recipebox/internal/model"
)

// ErrRecipeNotFound is returned when no recipe matches the given id.
var ErrRecipeNotFound = errors.New("recipe not found")

const recipeColumns = `id, title, ingredients, instructions, cook_time, cover_image, created_by, created_at, updated_at`

// ListRecipes returns every recipe in insertion order.
func (r *Repository) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]*model.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	return recipes, nil
}

// GetRecipeByID retrieves a recipe by its ID.
func (r *Repository) GetRecipeByID(ctx context.Context, id string) (*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`

	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	return recipe, nil
}

// CreateRecipe inserts a recipe. The store assigns the ID and timestamps
// and writes them back into recipe.
func (r *Repository) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	query := `
		INSERT INTO recipes (id, title, ingredients, instructions, cook_time, cover_image, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	id := ulid.Make().String()
	err := r.pool.QueryRow(ctx, query,
		id,
		recipe.Title,
		pq.Array(ingredientsOrEmpty(recipe.Ingredients)),
		recipe.Instructions,
		recipe.Time,
		recipe.CoverImage,
		recipe.CreatedBy,
	).Scan(&recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	recipe.ID = id
	return nil
}

// UpdateRecipe overwrites the mutable fields of a recipe.
// created_by is never written.
func (r *Repository) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	query := `
		UPDATE recipes
		SET title = $2, ingredients = $3, instructions = $4, cook_time = $5, cover_image = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		recipe.ID,
		recipe.Title,
		pq.Array(ingredientsOrEmpty(recipe.Ingredients)),
		recipe.Instructions,
		recipe.Time,
		recipe.CoverImage,
	).Scan(&recipe.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	return nil
}

// DeleteRecipe removes a recipe permanently.
func (r *Repository) DeleteRecipe(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	return nil
}

// scanRecipe scans a single row into a Recipe model.
func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var recipe model.Recipe
	var ingredients []string
	err := row.Scan(
		&recipe.ID,
		&recipe.Title,
		pq.Array(&ingredients),
		&recipe.Instructions,
		&recipe.Time,
		&recipe.CoverImage,
		&recipe.CreatedBy,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredientsOrEmpty(ingredients)
	return &recipe, nil
}

// ingredientsOrEmpty keeps the column and the JSON field a list, never NULL.
func ingredientsOrEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
