package stream

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"riskdesk/internal/repository"
	"riskdesk/internal/risk"
	"riskdesk/internal/service"
)

// StatusStreamHandler pushes the derived risk status of one account over a
// websocket on a fixed interval, so dashboard widgets see lock expiry without
// polling.
type StatusStreamHandler struct {
	Repo         repository.Repository
	Logger       *zap.Logger
	Flags        *service.SystemSettingsService
	PushInterval time.Duration
}

func (h *StatusStreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/stream/accounts/:id", h.stream)
}

func (h *StatusStreamHandler) interval() time.Duration {
	if h.PushInterval <= 0 {
		return 3 * time.Second
	}
	return h.PushInterval
}

func (h *StatusStreamHandler) stream(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid account id"})
		return
	}
	if h.Flags != nil && !h.Flags.IsEnabled(c.Request.Context(), service.FeatureStatusStream, true) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "stream disabled"})
		return
	}
	acct, err := h.Repo.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"message": err.Error()})
		return
	}
	if acct == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "account not found"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "shutdown")
	}()

	h.push(c.Request.Context(), conn, id)
}

func (h *StatusStreamHandler) push(ctx context.Context, conn *websocket.Conn, accountID uint64) {
	t := time.NewTicker(h.interval())
	defer t.Stop()

	for {
		acct, err := h.Repo.GetAccountByID(ctx, accountID)
		if err != nil || acct == nil {
			return
		}
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = wsjson.Write(writeCtx, conn, risk.StatusOf(*acct, time.Now().UTC()))
		cancel()
		if err != nil {
			if ctx.Err() == nil && h.Logger != nil {
				h.Logger.Debug("status stream write failed", zap.Uint64("account_id", accountID), zap.Error(err))
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
