package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const sseHeartbeat = 30 * time.Second

func startSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(200)
}

// sendSSEEvent writes an SSE event to the response and flushes it
func sendSSEEvent(c *gin.Context, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(c.Writer, "event: "+eventType+"\n")
	_, _ = io.WriteString(c.Writer, "data: "+string(jsonData)+"\n\n")
	c.Writer.Flush()
}

// streamSSE forwards values from ch as events until the client leaves or
// ch closes, with a heartbeat in between.
func streamSSE[T any](c *gin.Context, eventType string, ch <-chan T) {
	clientGone := c.Request.Context().Done()
	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			sendSSEEvent(c, eventType, v)
		case <-ticker.C:
			sendSSEEvent(c, "heartbeat", gin.H{"timestamp": time.Now()})
		}
	}
}
