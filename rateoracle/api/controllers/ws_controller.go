package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/oracle/fanout"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

const (
	wsWriteWait = 10 * time.Second

	wsActionSubscribe   = "subscribe"
	wsActionUnsubscribe = "unsubscribe"
	wsActionPing        = "ping"

	wsTypeConnectionEstablished = "connection_established"
	wsTypeSubscriptionUpdated   = "subscription_updated"
	wsTypePong                  = "pong"
)

type wsClientMessage struct {
	Action string   `json:"action"`
	Pairs  []string `json:"pairs"`
}

type wsAckMessage struct {
	Type            string   `json:"type"`
	SubscribedPairs []string `json:"subscribed_pairs"`
}

type wsPongMessage struct {
	Type string `json:"type"`
}

type WSControllerImpl struct {
	hub          *fanout.Hub
	fanoutConfig oracleCore.FanoutConfig
	upgrader     websocket.Upgrader
	logger       hclog.Logger
}

var _ core.APIController = (*WSControllerImpl)(nil)

func NewWSController(
	hub *fanout.Hub, fanoutConfig oracleCore.FanoutConfig, logger hclog.Logger,
) *WSControllerImpl {
	return &WSControllerImpl{
		hub:          hub,
		fanoutConfig: fanoutConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (*WSControllerImpl) GetPathPrefix() string {
	return "ws"
}

// Browser websocket clients cannot attach custom headers, so the stream
// endpoint skips the api key check.
func (c *WSControllerImpl) GetEndpoints() []*core.APIEndpoint {
	return []*core.APIEndpoint{
		{Path: "rates", Method: http.MethodGet, Handler: c.streamRates, APIKeyAuth: false},
	}
}

func (c *WSControllerImpl) streamRates(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("streamRates called", "url", r.URL)

	var pairs []string

	if pairsArr, exists := r.URL.Query()["pairs"]; exists && len(pairsArr) > 0 && pairsArr[0] != "" {
		pairs = strings.Split(pairsArr[0], ",")
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the http error response
		c.logger.Debug("websocket upgrade failed", "url", r.URL, "err", err)

		return
	}

	listener, err := c.hub.Register(pairs)
	if err != nil {
		c.logger.Debug("listener registration rejected", "err", err)
		_ = conn.Close()

		return
	}

	client := &wsClient{
		conn:     conn,
		listener: listener,
		hub:      c.hub,
		config:   c.fanoutConfig,
		send:     make(chan []byte, 8),
		logger:   c.logger,
	}

	client.enqueue(wsAckMessage{
		Type:            wsTypeConnectionEstablished,
		SubscribedPairs: c.hub.Subscription(listener.ID),
	})

	c.logger.Debug("websocket listener connected", "id", listener.ID, "pairs", pairs)

	go client.writePump()
	go client.readPump()
}

// wsClient couples one websocket connection to one hub listener. All writes to
// the connection go through writePump, acks from readPump travel over the send
// channel.
type wsClient struct {
	conn     *websocket.Conn
	listener *fanout.Listener
	hub      *fanout.Hub
	config   oracleCore.FanoutConfig
	send     chan []byte
	logger   hclog.Logger
}

func (client *wsClient) writePump() {
	pingTicker := time.NewTicker(client.config.PingPeriod())

	defer func() {
		pingTicker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case broadcast, ok := <-client.listener.ReadCh():
			if !ok {
				// listener was unregistered, tell the peer we are done
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			payload, err := json.Marshal(broadcast)
			if err != nil {
				client.logger.Error("failed to marshal rate broadcast", "err", err)

				continue
			}

			if !client.write(payload) {
				return
			}
		case payload, ok := <-client.send:
			if !ok {
				return
			}

			if !client.write(payload) {
				return
			}
		case <-pingTicker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))

			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (client *wsClient) write(payload []byte) bool {
	_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))

	if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return false
	}

	return true
}

func (client *wsClient) readPump() {
	defer func() {
		client.hub.Unregister(client.listener.ID)
		_ = client.conn.Close()
	}()

	_ = client.conn.SetReadDeadline(time.Now().Add(client.config.PongWait()))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(client.config.PongWait()))

		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				client.logger.Debug("websocket closed unexpectedly", "id", client.listener.ID, "err", err)
			}

			break
		}

		client.handleMessage(message)
	}
}

func (client *wsClient) handleMessage(data []byte) {
	var message wsClientMessage

	if err := json.Unmarshal(data, &message); err != nil {
		client.logger.Debug("invalid websocket message", "id", client.listener.ID, "err", err)

		return
	}

	switch message.Action {
	case wsActionSubscribe:
		client.subscribe(message.Pairs)
	case wsActionUnsubscribe:
		client.unsubscribe(message.Pairs)
	case wsActionPing:
		client.enqueue(wsPongMessage{Type: wsTypePong})
	default:
		client.logger.Debug("unknown websocket action", "id", client.listener.ID, "action", message.Action)
	}
}

func (client *wsClient) subscribe(pairs []string) {
	current := client.hub.Subscription(client.listener.ID)
	effective := client.hub.UpdateSubscription(client.listener.ID, append(current, pairs...))

	client.enqueue(wsAckMessage{Type: wsTypeSubscriptionUpdated, SubscribedPairs: effective})
}

// unsubscribe removes pairs from the subscription. Removing the last pair
// leaves an empty set, which the hub treats as an all pairs subscription.
func (client *wsClient) unsubscribe(pairs []string) {
	removed := make(map[string]struct{}, len(pairs))

	for _, raw := range pairs {
		if pair, err := oracleCore.ParseCurrencyPair(raw); err == nil {
			removed[pair.String()] = struct{}{}
		}
	}

	current := client.hub.Subscription(client.listener.ID)
	remaining := make([]string, 0, len(current))

	for _, pair := range current {
		if _, drop := removed[pair]; !drop {
			remaining = append(remaining, pair)
		}
	}

	effective := client.hub.UpdateSubscription(client.listener.ID, remaining)

	client.enqueue(wsAckMessage{Type: wsTypeSubscriptionUpdated, SubscribedPairs: effective})
}

func (client *wsClient) enqueue(message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		client.logger.Error("failed to marshal websocket message", "err", err)

		return
	}

	select {
	case client.send <- payload:
	default:
	}
}
