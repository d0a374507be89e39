package memo

import "time"

type Memo struct {
	MemoID      int64     `json:"memo_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsCheck     bool      `json:"is_check"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MemoInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsCheck     bool   `json:"is_check"`
}
