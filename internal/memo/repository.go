package memo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists memos. Every query is scoped by the owning user ID, so
// a row belonging to another user is indistinguishable from a missing row.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID int64, input MemoInput) (Memo, error) {
	now := time.Now().UTC()

	m := Memo{
		Title:       input.Title,
		Description: input.Description,
		IsCheck:     input.IsCheck,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO memos (title, description, is_check, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING memo_id
	`, m.Title, m.Description, m.IsCheck, userID, now).Scan(&m.MemoID)
	if err != nil {
		return Memo{}, fmt.Errorf("insert memo: %w", err)
	}

	return m, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Memo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT memo_id, title, description, is_check, user_id, created_at, updated_at
		FROM memos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query memos: %w", err)
	}
	defer rows.Close()

	memos := make([]Memo, 0)
	for rows.Next() {
		var m Memo
		if err := rows.Scan(&m.MemoID, &m.Title, &m.Description, &m.IsCheck, &m.UserID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan memo: %w", err)
		}
		memos = append(memos, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memos: %w", err)
	}

	return memos, nil
}

func (r *Repository) Get(ctx context.Context, userID, memoID int64) (Memo, error) {
	var m Memo
	err := r.db.QueryRowContext(ctx, `
		SELECT memo_id, title, description, is_check, user_id, created_at, updated_at
		FROM memos
		WHERE memo_id = $1 AND user_id = $2
	`, memoID, userID).Scan(&m.MemoID, &m.Title, &m.Description, &m.IsCheck, &m.UserID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Memo{}, err
		}
		return Memo{}, fmt.Errorf("query memo: %w", err)
	}

	return m, nil
}

func (r *Repository) Update(ctx context.Context, userID, memoID int64, input MemoInput) (Memo, error) {
	var m Memo
	err := r.db.QueryRowContext(ctx, `
		UPDATE memos
		SET title = $3, description = $4, is_check = $5, updated_at = $6
		WHERE memo_id = $1 AND user_id = $2
		RETURNING memo_id, title, description, is_check, user_id, created_at, updated_at
	`, memoID, userID, input.Title, input.Description, input.IsCheck, time.Now().UTC()).
		Scan(&m.MemoID, &m.Title, &m.Description, &m.IsCheck, &m.UserID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Memo{}, err
		}
		return Memo{}, fmt.Errorf("update memo: %w", err)
	}

	return m, nil
}

func (r *Repository) Delete(ctx context.Context, userID, memoID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM memos
		WHERE memo_id = $1 AND user_id = $2
	`, memoID, userID)
	if err != nil {
		return fmt.Errorf("delete memo: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete memo rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
