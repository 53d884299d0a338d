package service

import (
	"sync"
)

func NewSSEClientMap[T any]() *SSEClientMap[T] {
	return &SSEClientMap[T]{
		clients: make(map[string]map[string]chan T),
	}
}

// SSEClientMap fans run events out to every connected client of that run.
type SSEClientMap[T any] struct {
	m       sync.Mutex
	clients map[string]map[string]chan T
}

func (cm *SSEClientMap[T]) AddClient(runID, uid string) chan T {
	cm.m.Lock()
	defer cm.m.Unlock()
	if cm.clients[runID] == nil {
		cm.clients[runID] = make(map[string]chan T)
	}
	ch := make(chan T, 16)
	cm.clients[runID][uid] = ch
	return ch
}

func (cm *SSEClientMap[T]) RemoveClient(runID, uid string) {
	cm.m.Lock()
	defer cm.m.Unlock()
	runClients, ok := cm.clients[runID]
	if !ok {
		return
	}
	if ch, ok := runClients[uid]; ok {
		close(ch)
		delete(runClients, uid)
	}
	if len(runClients) == 0 {
		delete(cm.clients, runID)
	}
}

func (cm *SSEClientMap[T]) SendToClients(runID string, message T) {
	cm.m.Lock()
	defer cm.m.Unlock()
	for _, ch := range cm.clients[runID] {
		select {
		case ch <- message:
		default:
			// slow client, drop rather than stall the run
		}
	}
}
