package handler

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/middleware"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/garala-cf/garala/internal/platform/metrics"
	"github.com/garala-cf/garala/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// Clients only send control frames and the occasional close.
	maxMessageSize = 512
	sendBuffer     = 64
)

// Subscriber delivers raw event payloads published on a subject.
type Subscriber interface {
	Subscribe(subject string, fn func([]byte)) (func() error, error)
}

// LiveHandler streams new messages of one conversation over a WebSocket.
type LiveHandler struct {
	messages   *usecase.MessageUsecase
	subscriber Subscriber
	upgrader   websocket.Upgrader
	responder
}

func NewLiveHandler(messages *usecase.MessageUsecase, subscriber Subscriber, allowedOrigins []string, m *metrics.MetricsManager, log *logger.Logger) *LiveHandler {
	return &LiveHandler{
		messages:   messages,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return slices.Contains(allowedOrigins, origin)
			},
		},
		responder: responder{logger: log.Named("LiveFeedHandler"), metrics: m},
	}
}

// HandleLiveFeed checks participation before upgrading, so refused callers get
// a normal JSON error instead of a closed socket. The subscription is in place
// before the handshake completes, so nothing sent after connect is missed.
func (h *LiveHandler) HandleLiveFeed(w http.ResponseWriter, r *http.Request) {
	conv, err := h.messages.AuthorizeConversation(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "conversationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	log := h.logger.With(zap.String("conversation_id", conv.ID))

	f := &feed{
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		kick:   make(chan struct{}),
		logger: log,
	}
	unsubscribe, err := h.subscriber.Subscribe(usecase.ConversationMessagesSubject(conv.ID), f.push)
	if err != nil {
		log.Error("Failed to subscribe live feed", zap.Error(err))
		h.fail(w, r, domain.ErrUnavailable)
		return
	}
	defer func() {
		if err := unsubscribe(); err != nil {
			log.Warn("Failed to unsubscribe live feed", zap.Error(err))
		}
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn("Failed to upgrade live feed", zap.Error(err))
		return
	}
	f.conn = conn

	if h.metrics != nil {
		h.metrics.LiveFeedConnections.Inc()
		defer h.metrics.LiveFeedConnections.Dec()
	}
	go f.write()
	f.read()
}

// feed is one live WebSocket connection.
type feed struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{} // closed when the reader exits
	kick     chan struct{} // closed when the consumer falls behind
	kickOnce sync.Once
	logger   *logger.Logger
}

// push queues a payload without blocking the subscription; a consumer that
// cannot keep up is disconnected.
func (f *feed) push(payload []byte) {
	select {
	case <-f.done:
	case f.send <- payload:
	default:
		f.kickOnce.Do(func() {
			f.logger.Warn("Live feed consumer too slow, closing")
			close(f.kick)
		})
	}
}

func (f *feed) write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		f.conn.Close()
	}()

	for {
		select {
		case <-f.done:
			return
		case <-f.kick:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = f.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
			return
		case payload := <-f.send:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// read blocks until the peer goes away. Incoming data frames are ignored.
func (f *feed) read() {
	defer func() {
		close(f.done)
		f.conn.Close()
	}()

	f.conn.SetReadLimit(maxMessageSize)
	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		return f.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := f.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Debug("Live feed closed", zap.Error(err))
			}
			return
		}
	}
}
