package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Event - формат сообщения, отправляемого клиентам.
// Хаб используется ТОЛЬКО для объявлений (результаты готовы,
// соревнование завершено): расписание слотов никогда не пушится,
// клиенты выводят его из времени начала соревнования.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Типы событий
const (
	EventResultsAvailable     = "results:available"
	EventCompetitionCompleted = "competition:completed"
	EventCompetitionCancelled = "competition:cancelled"
)

// Hub управляет подключёнными клиентами и рассылкой объявлений
type Hub struct {
	// Клиенты по комнатам соревнований
	rooms map[uint]map[*Client]bool

	// Клиенты по пользователям (у пользователя может быть
	// несколько вкладок/устройств)
	byUser map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		byUser:     make(map[uint]map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
	}
}

// Run обрабатывает регистрацию и отключение клиентов
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.competitionID] == nil {
		h.rooms[client.competitionID] = make(map[*Client]bool)
	}
	h.rooms[client.competitionID][client] = true

	if h.byUser[client.userID] == nil {
		h.byUser[client.userID] = make(map[*Client]bool)
	}
	h.byUser[client.userID][client] = true

	log.Printf("[Hub] Клиент подключён: пользователь %d, соревнование %d", client.userID, client.competitionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[client.competitionID]; ok {
		if _, exists := room[client]; exists {
			delete(room, client)
			close(client.send)
			if len(room) == 0 {
				delete(h.rooms, client.competitionID)
			}
		}
	}
	if clients, ok := h.byUser[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.byUser, client.userID)
		}
	}
}

// BroadcastToCompetition рассылает событие всем клиентам комнаты
// соревнования. Отправка неблокирующая: переполненный клиент
// пропускает событие и обязан перечитать состояние по HTTP.
func (h *Hub) BroadcastToCompetition(competitionID uint, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[competitionID] {
		select {
		case client.send <- data:
		default:
			log.Printf("[Hub] Буфер клиента %d переполнен, событие пропущено", client.userID)
		}
	}
	return nil
}

// SendToUser отправляет событие всем подключениям пользователя
func (h *Hub) SendToUser(userID uint, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.byUser[userID] {
		select {
		case client.send <- data:
		default:
		}
	}
	return nil
}

// ClientCount возвращает число подключённых клиентов комнаты
func (h *Hub) ClientCount(competitionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[competitionID])
}
