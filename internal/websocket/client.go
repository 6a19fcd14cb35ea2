package websocket

import (
	"context"
	"encoding/json"
	"time"

	"ai-quiz-generator-be/internal/dto"
	"ai-quiz-generator-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// ProgressSource returns the current progress snapshot of a job.
type ProgressSource func(ctx context.Context, quizId uuid.UUID) (*dto.QuizProgressResponse, error)

// Client streams progress snapshots of one quiz job to a websocket peer.
type Client struct {
	Conn *websocket.Conn

	QuizID uuid.UUID

	Source       ProgressSource
	PollInterval time.Duration

	logger logger.ILogger

	// Closed by readPump when the peer goes away.
	done chan struct{}
}

// readPump only drains control frames; the peer never sends payloads.
func (c *Client) readPump() {
	defer close(c.done)

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{"quiz_id": c.QuizID, "error": err.Error()})
			}
			return
		}
	}
}

// writePump polls the source and writes every changed snapshot until the job is terminal.
func (c *Client) writePump() {
	poll := time.NewTicker(c.PollInterval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		poll.Stop()
		ping.Stop()
		c.Conn.Close()
	}()

	var last *dto.QuizProgressResponse
	if c.push(&last) {
		c.closeNormally()
		return
	}

	for {
		select {
		case <-c.done:
			return
		case <-ping.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			if c.push(&last) {
				c.closeNormally()
				return
			}
		}
	}
}

func (c *Client) closeNormally() {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// push writes the snapshot when it differs from the last one sent. It reports
// whether the stream should end.
func (c *Client) push(last **dto.QuizProgressResponse) bool {
	snapshot, err := c.Source(context.Background(), c.QuizID)
	if err != nil {
		c.writeJSON(map[string]interface{}{"quiz_id": c.QuizID, "error": err.Error()})
		return true
	}

	if *last == nil || changed(*last, snapshot) {
		if err := c.writeJSON(snapshot); err != nil {
			return true
		}
		*last = snapshot
	}

	return IsTerminal(snapshot.Status)
}

func (c *Client) writeJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

func changed(a, b *dto.QuizProgressResponse) bool {
	return a.Status != b.Status || a.Progress != b.Progress || a.Message != b.Message
}

func IsTerminal(status string) bool {
	return status == "COMPLETED" || status == "FAILED"
}
