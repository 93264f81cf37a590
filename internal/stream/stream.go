// Package stream owns the resilient websocket session: listen key
// lifecycle, subscription, event classification and the busy-drop price
// dispatch. A session reconnects immediately on any transport failure and
// only stops when Close is called; consumers never see connection churn,
// they just observe a gap in updates.
package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cryptobridge/internal/metrics"
	"cryptobridge/internal/models"
	"cryptobridge/logger"
)

// State is the session connection state, readable at any time.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateFaulted
	StateReconnecting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateFaulted:
		return "faulted"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// PriceUpdate is one best bid/ask tick from the book ticker stream.
type PriceUpdate struct {
	Symbol   string
	UpdateID int64
	Bid      float64
	BidQty   float64
	Ask      float64
	AskQty   float64
}

// Handlers receives classified stream events. Nil handlers drop their event
// class silently. OnPrice runs under the busy-drop guard: while one
// invocation is still running, further ticks are discarded and counted
// rather than queued, so a slow consumer always sees the freshest price it
// can keep up with and never builds a backlog.
type Handlers struct {
	OnPrice     func(PriceUpdate)
	OnExecution func(json.RawMessage)
	OnAccount   func(json.RawMessage)
}

// ListenKeys manages the ephemeral stream credential for private streams.
type ListenKeys interface {
	Create(ctx context.Context) (models.ListenKey, error)
	Renew(ctx context.Context, token string) error
}

// Config describes one stream session.
type Config struct {
	// Exchange labels the session in logs and metrics, e.g. "binance_spot".
	Exchange string
	// URL is the websocket endpoint. The listen key, when present, is
	// appended as a path segment.
	URL string
	// Symbols to subscribe to the book ticker for, any case.
	Symbols []string
	// SubscriptionID is the id field of the subscribe frame.
	SubscriptionID int
	// ExecutionEvent and AccountEvent are the venue's event type tags for
	// order and account payloads ("executionReport" and
	// "outboundAccountPosition" on spot, "ORDER_TRADE_UPDATE" and
	// "ACCOUNT_UPDATE" on futures).
	ExecutionEvent string
	AccountEvent   string
	// Keys is optional; when nil the session runs the public stream only.
	Keys ListenKeys
	// KeepAlive is the listen key renewal period.
	KeepAlive time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Session is a single resilient stream connection. Create with New, start
// with Start, stop with Close. All exported methods are safe for concurrent
// use.
type Session struct {
	cfg      Config
	handlers Handlers
	log      *logger.Entry
	id       string

	state  atomic.Int32
	closed atomic.Bool

	// priceMu is the busy-drop guard, held for the duration of each OnPrice
	// invocation.
	priceMu sync.Mutex

	// connMu serialises writes; the websocket allows one concurrent writer.
	connMu sync.Mutex
	conn   *websocket.Conn

	keyMu     sync.Mutex
	listenKey string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a session. It does not connect until Start.
func New(cfg Config, handlers Handlers) *Session {
	id := uuid.NewString()
	return &Session{
		cfg:      cfg,
		handlers: handlers,
		id:       id,
		log: logger.GetLogger().
			WithComponent(cfg.Exchange + "_stream").
			WithField("session", id),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Exchange returns the venue label the session was built for.
func (s *Session) Exchange() string { return s.cfg.Exchange }

// State returns the current connection state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Start launches the connection loop and, for private streams, the listen
// key renewal loop. It returns immediately.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	if s.cfg.Keys != nil && s.cfg.KeepAlive > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.renewLoop(ctx)
		}()
	}
}

// Close requests shutdown and waits for the loops to exit. After Close the
// session never reconnects.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.setState(StateClosing)
	if s.cancel != nil {
		s.cancel()
	}
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	s.setState(StateDisconnected)
	s.log.Info("session closed")
}

// run is the connection loop. Reconnection is immediate and unconditional:
// any read or dial failure goes straight into the next attempt with no
// backoff, until Close flips the shutdown flag.
func (s *Session) run(ctx context.Context) {
	for !s.closed.Load() {
		if ctx.Err() != nil {
			return
		}
		s.setState(StateConnecting)

		if err := s.connectAndServe(ctx); err != nil && !s.closed.Load() {
			s.setState(StateFaulted)
			metrics.IncrementReconnect(s.cfg.Exchange, "")
			logger.IncrementReconnect()
			s.log.WithError(err).Warn("stream connection lost, reconnecting")
			// A dropped connection often means the key was expired or
			// invalidated server-side, so the next connect fetches a new one.
			s.invalidateKey()
			s.setState(StateReconnecting)
		}
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	url := s.cfg.URL
	if s.cfg.Keys != nil {
		token, err := s.currentKey(ctx)
		if err != nil {
			return err
		}
		url = strings.TrimRight(url, "/") + "/" + token
	}

	dialer := s.cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		conn.Close()
	}()

	conn.SetPingHandler(func(appData string) error {
		return s.write(websocket.PongMessage, []byte(appData))
	})

	if err := s.subscribe(); err != nil {
		return err
	}
	s.setState(StateOpen)
	s.log.Info("stream connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		logger.IncrementStreamRead(s.id, len(data))
		s.dispatch(data)
	}
}

// currentKey returns the cached listen key, creating one on first use and
// after a transport failure or a failed renewal invalidated the cache.
func (s *Session) currentKey(ctx context.Context) (string, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	if s.listenKey != "" {
		return s.listenKey, nil
	}
	key, err := s.cfg.Keys.Create(ctx)
	if err != nil {
		return "", err
	}
	s.listenKey = key.Token
	s.log.Info("listen key issued")
	return s.listenKey, nil
}

func (s *Session) invalidateKey() {
	s.keyMu.Lock()
	s.listenKey = ""
	s.keyMu.Unlock()
}

// renewLoop keeps the listen key alive on a fixed period, independent of the
// connection state: a key renewed while the socket is down is still the key
// the next connect uses.
func (s *Session) renewLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.KeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.keyMu.Lock()
		token := s.listenKey
		s.keyMu.Unlock()
		if token == "" {
			continue
		}
		if err := s.cfg.Keys.Renew(ctx, token); err != nil {
			metrics.IncrementRenewalFailure(s.cfg.Exchange)
			s.log.WithError(err).Error("listen key renewal failed")
			s.invalidateKey()
			continue
		}
		s.log.Debug("listen key renewed")
	}
}

type subscribeFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

func (s *Session) subscribe() error {
	if len(s.cfg.Symbols) == 0 {
		return nil
	}
	params := make([]string, 0, len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		params = append(params, strings.ToLower(sym)+"@bookTicker")
	}
	frame, err := json.Marshal(subscribeFrame{
		Method: "SUBSCRIBE",
		Params: params,
		ID:     s.cfg.SubscriptionID,
	})
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, frame)
}

func (s *Session) write(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	return s.conn.WriteMessage(messageType, data)
}

// wireEvent carries the fields classification needs. Classification is by
// the "e" tag first; only an untagged payload with a book update id "u" is a
// price tick. Tagged frames with an unrecognised "e" (such as the legacy
// spot "outboundAccountInfo", which also carries "u") are discarded.
type wireEvent struct {
	Event    string  `json:"e"`
	UpdateID *int64  `json:"u"`
	Symbol   string  `json:"s"`
	Bid      string  `json:"b"`
	BidQty   string  `json:"B"`
	Ask      string  `json:"a"`
	AskQty   string  `json:"A"`
}

func (s *Session) dispatch(data []byte) {
	var evt wireEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		s.log.WithError(err).Debug("discarding unparseable frame")
		return
	}

	switch {
	case evt.Event != "" && evt.Event == s.cfg.ExecutionEvent:
		if s.handlers.OnExecution != nil {
			s.handlers.OnExecution(json.RawMessage(data))
		}
	case evt.Event != "" && evt.Event == s.cfg.AccountEvent:
		if s.handlers.OnAccount != nil {
			s.handlers.OnAccount(json.RawMessage(data))
		}
	case evt.Event == "" && evt.UpdateID != nil:
		s.dispatchPrice(evt)
	}
}

// dispatchPrice hands the tick to OnPrice unless a previous invocation is
// still running, in which case the tick is dropped and counted.
func (s *Session) dispatchPrice(evt wireEvent) {
	if s.handlers.OnPrice == nil {
		return
	}
	if !s.priceMu.TryLock() {
		metrics.IncrementTickDropped(s.cfg.Exchange, evt.Symbol)
		logger.IncrementTickDropped()
		return
	}
	update := PriceUpdate{
		Symbol:   evt.Symbol,
		UpdateID: *evt.UpdateID,
		Bid:      parseFloat(evt.Bid),
		BidQty:   parseFloat(evt.BidQty),
		Ask:      parseFloat(evt.Ask),
		AskQty:   parseFloat(evt.AskQty),
	}
	go func() {
		defer s.priceMu.Unlock()
		s.handlers.OnPrice(update)
	}()
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
