package api

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/cohort"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/middleware"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
)

// Stream message types
const (
	MessageDashboard = "dashboard"
	MessageError     = "error"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// StreamRequest is one filter change sent by a stream client
type StreamRequest struct {
	Filters *predicate.Set `json:"filters"`
	Key     string         `json:"key,omitempty"`
}

// StreamMessage is sent back for every snapshot that was not superseded
type StreamMessage struct {
	Type   string           `json:"type"`
	Update *cohort.Update   `json:"update,omitempty"`
	Error  *domain.APIError `json:"error,omitempty"`
}

// streamConn serialises writes to one websocket
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (sc *streamConn) send(msg StreamMessage) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return sc.conn.WriteJSON(msg)
}

// handleStream upgrades to a websocket. Each inbound message is a snapshot;
// a newer snapshot cancels the one still resolving and only the latest is answered.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	requestID := c.GetString(middleware.RequestIDKey)
	logger := s.logger.WithField("request_id", requestID)
	logger.Debug("Stream opened")

	ctx := c.Request.Context()
	session := cohort.NewSession(s.service, s.logger)
	defer session.Close()

	out := &streamConn{conn: conn}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("Stream closed unexpectedly")
			}
			session.Close()
			return
		}

		set, key, err := decodeStreamRequest(payload)
		if err != nil {
			_, code, message := errorStatus(err)
			if !domain.IsValidationError(err) && !errors.Is(err, domain.ErrUnknownStratification) {
				code, message = domain.ErrCodeInvalidInput, "Malformed stream request"
			}
			_ = out.send(StreamMessage{Type: MessageError, Error: domain.NewAPIError(code, message, err.Error(), requestID)})
			continue
		}

		ticket := session.Begin(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			update, err := session.Run(ticket, set, key)
			switch {
			case errors.Is(err, domain.ErrSuperseded):
				return
			case err != nil:
				_, code, message := errorStatus(err)
				_ = out.send(StreamMessage{Type: MessageError, Error: domain.NewAPIError(code, message, err.Error(), requestID)})
			default:
				if sendErr := out.send(StreamMessage{Type: MessageDashboard, Update: update}); sendErr != nil {
					logger.WithFields(logrus.Fields{
						"generation": update.Generation,
						"error":      sendErr.Error(),
					}).Debug("Dropping stream update")
				}
			}
		}()
	}
}

func decodeStreamRequest(payload []byte) (predicate.Set, survival.Key, error) {
	set := predicate.Default()
	req := StreamRequest{Filters: &set}
	if err := json.Unmarshal(payload, &req); err != nil {
		return predicate.Set{}, "", err
	}
	if req.Filters == nil {
		req.Filters = &set
	}
	if err := req.Filters.Validate(); err != nil {
		return predicate.Set{}, "", err
	}
	key := DefaultStratification
	if req.Key != "" {
		parsed, err := survival.ParseKey(req.Key)
		if err != nil {
			return predicate.Set{}, "", err
		}
		key = parsed
	}
	return *req.Filters, key, nil
}

