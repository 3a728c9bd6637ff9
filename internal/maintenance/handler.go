package maintenance

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"videotube-api/internal/observability"
	"videotube-api/internal/response"
)

const maxBatchesPerRun = 100

type RefreshTokenCleaner interface {
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time, limit int) (int64, error)
}

type CleanupResult struct {
	ClearedRefreshTokens int64 `json:"clearedRefreshTokens"`
	Batches              int   `json:"batches"`
}

type CleanupHandler struct {
	users      RefreshTokenCleaner
	logger     *observability.Logger
	cronSecret string
	batchSize  int
	now        func() time.Time
}

func NewCleanupHandler(users RefreshTokenCleaner, logger *observability.Logger, cronSecret string, batchSize int) *CleanupHandler {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &CleanupHandler{
		users:      users,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
		now:        time.Now,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		response.Error(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(h.cronSecret)) != 1 {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.run(r.Context())
	if err != nil {
		h.logger.Error("auth_cleanup_failed", map[string]any{"error": err})
		response.Error(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	h.logger.Info("auth_cleanup_completed", map[string]any{
		"cleared_refresh_tokens": result.ClearedRefreshTokens,
		"batches":                result.Batches,
	})
	response.OK(w, http.StatusOK, result, "cleanup completed")
}

// run clears expired refresh tokens batch by batch until a short batch.
func (h *CleanupHandler) run(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult
	now := h.now().UTC()

	for result.Batches < maxBatchesPerRun {
		cleared, err := h.users.ClearExpiredRefreshTokens(ctx, now, h.batchSize)
		if err != nil {
			return result, err
		}
		result.Batches++
		result.ClearedRefreshTokens += cleared
		if cleared < int64(h.batchSize) {
			break
		}
	}
	return result, nil
}
