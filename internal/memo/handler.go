package memo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"

	"memo-backend/internal/auth"
)

const (
	maxJSONBodyBytes     = 1 << 20
	maxTitleLength       = 50
	maxDescriptionLength = 255
)

// Store is the memo persistence surface, implemented by *Repository.
type Store interface {
	Create(ctx context.Context, userID int64, input MemoInput) (Memo, error)
	ListByUser(ctx context.Context, userID int64) ([]Memo, error)
	Get(ctx context.Context, userID, memoID int64) (Memo, error)
	Update(ctx context.Context, userID, memoID int64, input MemoInput) (Memo, error)
	Delete(ctx context.Context, userID, memoID int64) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) CreateMemo(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalForPath(w, r)
	if !ok {
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	m, err := h.store.Create(r.Context(), userID, input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create memo")
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) ListMemos(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalForPath(w, r)
	if !ok {
		return
	}

	memos, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list memos")
		return
	}

	writeJSON(w, http.StatusOK, memos)
}

func (h *Handler) GetMemo(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalForPath(w, r)
	if !ok {
		return
	}
	memoID, ok := memoIDFromPath(w, r)
	if !ok {
		return
	}

	m, err := h.store.Get(r.Context(), userID, memoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "memo not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load memo")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) UpdateMemo(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalForPath(w, r)
	if !ok {
		return
	}
	memoID, ok := memoIDFromPath(w, r)
	if !ok {
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	m, err := h.store.Update(r.Context(), userID, memoID, input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "memo not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update memo")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) DeleteMemo(w http.ResponseWriter, r *http.Request) {
	userID, ok := principalForPath(w, r)
	if !ok {
		return
	}
	memoID, ok := memoIDFromPath(w, r)
	if !ok {
		return
	}

	err := h.store.Delete(r.Context(), userID, memoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "memo not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete memo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// principalForPath resolves the authenticated user and requires the user_id
// path segment to match. A mismatch is reported as 404, same as any other
// foreign resource, so the route leaks nothing about other users.
func principalForPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return 0, false
	}

	pathUserID, err := strconv.ParseInt(r.PathValue("user_id"), 10, 64)
	if err != nil || pathUserID != userID {
		writeError(w, http.StatusNotFound, "memo not found")
		return 0, false
	}

	return userID, true
}

func memoIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	memoID, err := strconv.ParseInt(r.PathValue("memo_id"), 10, 64)
	if err != nil || memoID <= 0 {
		writeError(w, http.StatusNotFound, "memo not found")
		return 0, false
	}
	return memoID, true
}

func parseInput(w http.ResponseWriter, r *http.Request) (MemoInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input MemoInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return MemoInput{}, false
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)

	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return MemoInput{}, false
	}
	if !utf8.ValidString(input.Title) || utf8.RuneCountInString(input.Title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "title is invalid")
		return MemoInput{}, false
	}
	if !utf8.ValidString(input.Description) || utf8.RuneCountInString(input.Description) > maxDescriptionLength {
		writeError(w, http.StatusBadRequest, "description is invalid")
		return MemoInput{}, false
	}

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
