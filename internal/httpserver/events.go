package httpserver

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quote-commerce/internal/logger"
)

const defaultEventHeartbeat = 25 * time.Second

// cartEvents streams cart room messages as server-sent events until the client goes away.
func (h *handlers) cartEvents(c *gin.Context) {
	ctx := c.Request.Context()
	cartID := c.Param("id")
	if h.deps.Carts != nil {
		if _, err := h.deps.Carts.Get(ctx, organizationID(c), cartID); err != nil {
			writeError(c, err)
			return
		}
	}

	messages, closeFn, err := h.deps.Events.Subscribe(ctx, cartID)
	if err != nil {
		writeError(c, err)
		return
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.FromContext(ctx).Warn("close cart subscription", zap.String("cart_id", cartID), zap.Error(err))
		}
	}()

	heartbeat := h.deps.EventHeartbeat
	if heartbeat <= 0 {
		heartbeat = defaultEventHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, msg)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
