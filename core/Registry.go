package core

import (
	"PongOnline/logger"

	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// Registry 是唯一跨房間的結構，鎖的順序一律是 registry → room
type Registry struct {
	mu       deadlock.RWMutex
	rooms    map[string]*Room
	settings RoomSettings
}

func NewRegistry(settings RoomSettings) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		settings: settings,
	}
}

func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getOrCreateLocked(roomID)
}

func (g *Registry) getOrCreateLocked(roomID string) *Room {
	if room, ok := g.rooms[roomID]; ok {
		return room
	}
	room := newRoom(roomID, g.settings, g)
	g.rooms[roomID] = room
	logger.Log.WithFields(logrus.Fields{"room": roomID}).Info(logger.RoomCreatedMsg)
	return room
}

// Join 取得房間並加入連線，避免加進一個正在關閉的房間
func (g *Registry) Join(roomID string, c Conn) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	room := g.getOrCreateLocked(roomID)
	room.mu.Lock()
	room.attachLocked(c)
	count := len(room.conns)
	room.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"room":  roomID,
		"conn":  c.ID(),
		"addr":  c.RemoteAddr(),
		"count": count,
	}).Info(logger.ConnEnterRoomMsg)
	return room
}

// Leave 移除連線，房間空了就關閉。重複呼叫不會有作用
func (g *Registry) Leave(room *Room, c Conn) []Conn {
	g.mu.Lock()
	defer g.mu.Unlock()

	room.mu.Lock()
	removed, failed := room.detachLocked(c)
	room.mu.Unlock()

	if removed {
		logger.Log.WithFields(logrus.Fields{
			"room": room.RoomId,
			"conn": c.ID(),
		}).Info(logger.ConnLeaveRoomMsg)
	}

	g.removeIfEmptyLocked(room)
	return failed
}

func (g *Registry) RemoveIfEmpty(room *Room) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeIfEmptyLocked(room)
}

func (g *Registry) removeIfEmptyLocked(room *Room) bool {
	room.mu.Lock()
	if len(room.conns) > 0 {
		room.mu.Unlock()
		return false
	}
	alreadyDown := room.status == RoomStatusTornDown
	room.teardownLocked()
	room.mu.Unlock()

	if g.rooms[room.RoomId] == room {
		delete(g.rooms, room.RoomId)
	}
	if !alreadyDown {
		logger.Log.WithFields(logrus.Fields{"room": room.RoomId}).Info(logger.RoomTornDownMsg)
	}
	return true
}

func (g *Registry) Lookup(roomID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[roomID]
	return room, ok
}

func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// CloseAll 關閉所有房間與連線，伺服器關閉時使用
func (g *Registry) CloseAll() {
	g.mu.Lock()
	var conns []Conn
	for id, room := range g.rooms {
		room.mu.Lock()
		conns = append(conns, room.conns...)
		room.teardownLocked()
		room.mu.Unlock()
		delete(g.rooms, id)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
