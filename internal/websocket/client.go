package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Происхождение проверяется JWT-аутентификацией до апгрейда
		return true
	},
}

// Client - одно WebSocket-подключение участника
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	userID        uint
	competitionID uint
}

// ServeClient апгрейдит HTTP-запрос и регистрирует клиента в хабе
func ServeClient(hub *Hub, w http.ResponseWriter, r *http.Request, userID, competitionID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 32),
		userID:        userID,
		competitionID: competitionID,
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump читает входящие фреймы. Клиенты движку ничего не шлют по
// WebSocket (ответы идут по HTTP), поэтому чтение нужно только для
// обработки pong и закрытия.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Hub] Неожиданное закрытие соединения пользователя %d: %v", c.userID, err)
			}
			return
		}
	}
}

// writePump отправляет события из канала send и периодические пинги
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
