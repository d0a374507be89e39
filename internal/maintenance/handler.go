package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"memo-backend/internal/auth"
	"memo-backend/internal/observability"
)

// TokenAuditor exposes the token-store audit counts. Token rows are never
// deleted, so the counts cover every credential ever issued.
type TokenAuditor interface {
	TokenStoreStats(ctx context.Context) ([]auth.TokenStats, error)
}

// StatsHandler serves token-store statistics to a scheduled operator job,
// authenticated with a static bearer secret.
type StatsHandler struct {
	auditor    TokenAuditor
	logger     *observability.Logger
	cronSecret string
}

func NewStatsHandler(auditor TokenAuditor, logger *observability.Logger, cronSecret string) *StatsHandler {
	return &StatsHandler{
		auditor:    auditor,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
	}
}

func (h *StatsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	stats, err := h.auditor.TokenStoreStats(r.Context())
	if err != nil {
		h.logger.Error("token_stats_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to collect stats"})
		return
	}

	h.logger.Info("token_stats_collected", map[string]any{"stores": len(stats)})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stores": stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
