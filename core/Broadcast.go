package core

import (
	"encoding/json"

	"PongOnline/logger"

	"github.com/sirupsen/logrus"
)

// broadcastLocked 呼叫時必須持有 r.mu。送不出去的連線只收集起來，由呼叫端放開鎖後再 evict
func (r *Room) broadcastLocked(payload any) []Conn {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"room":  r.RoomId,
			"error": err,
		}).Error(logger.MarshalPayloadFailedMsg)
		return nil
	}

	conns := make([]Conn, len(r.conns))
	copy(conns, r.conns)

	var failed []Conn
	for _, c := range conns {
		if !c.IsOpen() {
			failed = append(failed, c)
			continue
		}
		if err := c.Send(data); err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// sendLocked 只送給單一連線
func (r *Room) sendLocked(c Conn, payload any) []Conn {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"room":  r.RoomId,
			"error": err,
		}).Error(logger.MarshalPayloadFailedMsg)
		return nil
	}
	if err := c.Send(data); err != nil {
		return []Conn{c}
	}
	return nil
}

// evict 不能在持有 r.mu 時呼叫。踢掉連線時產生的廣播失敗也會一併處理
func (r *Room) evict(failed []Conn) {
	seen := make(map[string]bool, len(failed))
	queue := failed

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true

		logger.Log.WithFields(logrus.Fields{
			"room": r.RoomId,
			"conn": c.ID(),
			"addr": c.RemoteAddr(),
		}).Warn(logger.ConnEvictedMsg)

		c.Close()

		var more []Conn
		if r.registry != nil {
			more = r.registry.Leave(r, c)
		} else {
			r.mu.Lock()
			_, more = r.detachLocked(c)
			r.mu.Unlock()
		}
		queue = append(queue, more...)
	}
}
