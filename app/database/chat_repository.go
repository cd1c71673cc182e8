package database

import (
	"fmt"
	"time"
)

var _ ChatTurnRepository = (*ChatTurnRepositoryImpl)(nil)

type ChatTurnRepositoryImpl struct {
	db *DB
}

func NewChatTurnRepository(db *DB) *ChatTurnRepositoryImpl {
	return &ChatTurnRepositoryImpl{db: db}
}

func (r *ChatTurnRepositoryImpl) AppendTurn(userID, prompt, response string) (*ChatTurn, error) {
	turn := &ChatTurn{
		UserID:    userID,
		Prompt:    prompt,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}

	result, err := r.db.Exec(`
		INSERT INTO chat_turns (user_id, prompt, response, created_at)
		VALUES (?, ?, ?, ?)
	`, turn.UserID, turn.Prompt, turn.Response, turn.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to append chat turn: %w", err)
	}

	turn.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat turn id: %w", err)
	}

	return turn, nil
}

// GetHistory returns the user's most recent turns, oldest first. A
// limit <= 0 returns the full history.
func (r *ChatTurnRepositoryImpl) GetHistory(userID string, limit int) ([]ChatTurn, error) {
	query := `
		SELECT id, user_id, prompt, response, created_at
		FROM chat_turns
		WHERE user_id = ?
		ORDER BY id DESC
	`
	args := []any{userID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var turn ChatTurn
		err := rows.Scan(&turn.ID, &turn.UserID, &turn.Prompt, &turn.Response, &turn.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	// Rows come newest-first so the LIMIT keeps the most recent turns;
	// reverse into creation order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

func (r *ChatTurnRepositoryImpl) GetTurnCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM chat_turns`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat turns: %w", err)
	}
	return count, nil
}
