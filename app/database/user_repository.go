package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ UserRepository = (*UserRepositoryImpl)(nil)

type UserRepositoryImpl struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) CreateUser(username, email string) (*User, error) {
	user := &User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		APIToken:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(`
		INSERT INTO users (id, username, email, api_token, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.APIToken, user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *UserRepositoryImpl) GetUserByToken(token string) (*User, error) {
	return r.getUser(`SELECT id, username, email, api_token, created_at FROM users WHERE api_token = ?`, token)
}

func (r *UserRepositoryImpl) GetUserByUsername(username string) (*User, error) {
	return r.getUser(`SELECT id, username, email, api_token, created_at FROM users WHERE username = ?`, username)
}

func (r *UserRepositoryImpl) getUser(query string, arg any) (*User, error) {
	var user User

	err := r.db.QueryRow(query, arg).Scan(&user.ID, &user.Username, &user.Email, &user.APIToken, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// DeleteUser removes a user; owned blog posts and chat turns are removed
// by the ON DELETE CASCADE constraints.
func (r *UserRepositoryImpl) DeleteUser(id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *UserRepositoryImpl) GetUserCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
