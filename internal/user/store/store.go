package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/ventas/internal/user"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, nombre, email, telefono, estado, created_at
		FROM usuarios
		WHERE id = $1
	`

	var (
		u     user.User
		email sql.NullString
		phone sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &email, &phone, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}

		return nil, fmt.Errorf("getting user: %w", err)
	}

	u.Email = email.String
	u.Phone = phone.String

	return &u, nil
}
