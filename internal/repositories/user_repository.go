package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atelieforma/storefront/internal/models"
	"github.com/atelieforma/storefront/internal/utils"
	"github.com/google/uuid"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AddAddress(ctx context.Context, address *models.Address) error
	GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, user.ID, user.Name, user.Email, user.Password).
		Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, email, password, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(dbCtx, query, email).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, email, password, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Password,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return user, nil
}

func (r *userRepository) AddAddress(ctx context.Context, address *models.Address) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO addresses (id, user_id, label, street, number, complement, district, city, state, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return r.DB.QueryRowContext(dbCtx, query,
		address.ID, address.UserID, address.Label, address.Street, address.Number,
		address.Complement, address.District, address.City, address.State, address.PostalCode,
	).Scan(&address.CreatedAt)
}

func (r *userRepository) GetAddressByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, label, street, number, complement, district, city, state, postal_code, created_at
		FROM addresses
		WHERE id = $1
	`

	address := &models.Address{}

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(
		&address.ID, &address.UserID, &address.Label, &address.Street, &address.Number,
		&address.Complement, &address.District, &address.City, &address.State,
		&address.PostalCode, &address.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return address, nil
}

func (r *userRepository) ListAddressesByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, user_id, label, street, number, complement, district, city, state, postal_code, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.DB.QueryContext(dbCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying addresses: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address

	for rows.Next() {
		var a models.Address

		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Label, &a.Street, &a.Number,
			&a.Complement, &a.District, &a.City, &a.State,
			&a.PostalCode, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning address row: %w", err)
		}

		addresses = append(addresses, a)
	}

	return addresses, rows.Err()
}
