package core

import (
	"errors"
	"runtime/debug"

	"PongOnline/logger"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Router 每條連線一個接收迴圈，解析訊息後交給房間處理
type Router struct {
	registry *Registry
	msgRate  rate.Limit
	msgBurst int
}

func NewRouter(registry *Registry, messageRate float64, messageBurst int) *Router {
	limit := rate.Limit(messageRate)
	if messageRate <= 0 {
		limit = rate.Inf
	}
	if messageBurst <= 0 {
		messageBurst = 1
	}
	return &Router{registry: registry, msgRate: limit, msgBurst: messageBurst}
}

// Serve 阻塞到連線結束，結束時一定會把連線移出房間
func (rt *Router) Serve(roomID string, c Conn) {
	room := rt.registry.Join(roomID, c)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.WithFields(logrus.Fields{
				"room":  roomID,
				"conn":  c.ID(),
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error(logger.ConnRouterFaultMsg)
		}
		c.Close()
		room.evict(rt.registry.Leave(room, c))
	}()

	limiter := rate.NewLimiter(rt.msgRate, rt.msgBurst)

	for {
		data, err := c.Receive()
		if err != nil {
			fields := logrus.Fields{"room": roomID, "conn": c.ID()}
			if !errors.Is(err, ErrConnClosed) {
				fields["error"] = err
			}
			logger.Log.WithFields(fields).Debug(logger.ConnBrokenMsg)
			return
		}

		msg, err := parseInboundPayload(data)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"room":  roomID,
				"conn":  c.ID(),
				"error": err,
			}).Debug(logger.MessageDroppedMsg)
			continue
		}

		// 只限制球拍更新，控制訊息一定會處理
		if _, isUpdate := msg.(PlayerUpdate); isUpdate && !limiter.Allow() {
			logger.Log.WithFields(logrus.Fields{"room": roomID, "conn": c.ID()}).Debug(logger.MessageRateLimitedMsg)
			continue
		}

		rt.dispatch(room, c, msg)
	}
}

// dispatch 連線已經被踢掉時不再處理它讀到的訊息
func (rt *Router) dispatch(room *Room, c Conn, msg InboundMessage) {
	if !c.IsOpen() {
		return
	}

	switch m := msg.(type) {

	case IdentifyPlayer:
		room.Identify(c)

	case PlayerStatus:
		room.SetReady(m.Player, m.IsReady)

	case StartGame:
		room.RequestStart()

	case PlayerUpdate:
		room.ApplyPlayerPosition(m.Player, m.Position)
	}
}
