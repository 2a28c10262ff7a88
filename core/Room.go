package core

import (
	"context"
	"time"

	"PongOnline/logger"

	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

type RoomStatus int

const (
	RoomStatusForming      RoomStatus = iota // 座位還沒坐滿
	RoomStatusReadyPending                   // 兩個座位都有人，還有人沒準備
	RoomStatusReady                          // 兩個人都準備好，還沒開始
	RoomStatusRunning                        // 對戰中
	RoomStatusTornDown                       // 房間已關閉
)

func (s RoomStatus) String() string {
	switch s {
	case RoomStatusForming:
		return "Forming"
	case RoomStatusReadyPending:
		return "ReadyPending"
	case RoomStatusReady:
		return "Ready"
	case RoomStatusRunning:
		return "Running"
	case RoomStatusTornDown:
		return "TornDown"
	}
	return "Unknown"
}

// validTransition 只有這些轉換是合法的，TornDown 之後不能再離開
func validTransition(from, to RoomStatus) bool {
	if from == RoomStatusTornDown {
		return false
	}
	if to == RoomStatusTornDown {
		return true
	}
	switch from {
	case RoomStatusForming:
		return to == RoomStatusReadyPending || to == RoomStatusReady
	case RoomStatusReadyPending:
		return to == RoomStatusForming || to == RoomStatusReady
	case RoomStatusReady:
		return to == RoomStatusForming || to == RoomStatusReadyPending || to == RoomStatusRunning
	case RoomStatusRunning:
		return to == RoomStatusForming || to == RoomStatusReadyPending || to == RoomStatusReady
	}
	return false
}

type RoomSettings struct {
	Canvas       Canvas
	TickInterval time.Duration
	WinningScore int
}

func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		Canvas:       DefaultCanvas(),
		TickInterval: 33 * time.Millisecond,
		WinningScore: 5,
	}
}

// Room 一個房間內的座位、準備狀態、遊戲狀態與連線都由 mu 保護
type Room struct {
	RoomId string

	settings RoomSettings
	registry *Registry

	mu        deadlock.Mutex
	status    RoomStatus
	conns     []Conn
	slots     map[PlayerID]Conn
	readiness map[PlayerID]bool
	state     GameState
	matchBase map[PlayerID]int

	stopLoop context.CancelFunc
	loopSeq  uint64
	ticks    uint64
}

func newRoom(roomID string, settings RoomSettings, registry *Registry) *Room {
	if settings.Canvas.Width <= 0 || settings.Canvas.Height <= 0 {
		settings.Canvas = DefaultCanvas()
	}
	if settings.TickInterval <= 0 {
		settings.TickInterval = DefaultRoomSettings().TickInterval
	}
	return &Room{
		RoomId:    roomID,
		settings:  settings,
		registry:  registry,
		status:    RoomStatusForming,
		slots:     make(map[PlayerID]Conn, len(PlayerIDs)),
		readiness: map[PlayerID]bool{Player1: false, Player2: false},
		state:     NewGameState(settings.Canvas),
		matchBase: map[PlayerID]int{Player1: 0, Player2: 0},
	}
}

func (r *Room) setStatusLocked(to RoomStatus) bool {
	from := r.status
	if from == to {
		return true
	}
	if !validTransition(from, to) {
		logger.Log.WithFields(logrus.Fields{
			"room": r.RoomId,
			"from": from.String(),
			"to":   to.String(),
		}).Debug(logger.RoomTransitionRejectedMsg)
		return false
	}
	r.status = to
	return true
}

// derivedStatusLocked 由座位與準備狀態推出的狀態
func (r *Room) derivedStatusLocked() RoomStatus {
	if len(r.slots) < len(PlayerIDs) {
		return RoomStatusForming
	}
	for _, id := range PlayerIDs {
		if !r.readiness[id] {
			return RoomStatusReadyPending
		}
	}
	return RoomStatusReady
}

func (r *Room) refreshStatusLocked() {
	if r.status == RoomStatusRunning || r.status == RoomStatusTornDown {
		return
	}
	r.setStatusLocked(r.derivedStatusLocked())
}

func (r *Room) stopSimulationLocked() {
	if r.stopLoop != nil {
		r.stopLoop()
		r.stopLoop = nil
	}
	if r.status == RoomStatusRunning {
		r.setStatusLocked(r.derivedStatusLocked())
	}
}

func (r *Room) attachedLocked(c Conn) bool {
	for _, conn := range r.conns {
		if conn == c {
			return true
		}
	}
	return false
}

func (r *Room) slotOfLocked(c Conn) (PlayerID, bool) {
	for id, conn := range r.slots {
		if conn == c {
			return id, true
		}
	}
	return "", false
}

func (r *Room) attachLocked(c Conn) bool {
	if r.status == RoomStatusTornDown || r.attachedLocked(c) {
		return false
	}
	r.conns = append(r.conns, c)
	return true
}

// detachLocked 移除連線，若它有座位則釋放座位並清掉準備狀態
func (r *Room) detachLocked(c Conn) (bool, []Conn) {
	idx := -1
	for i, conn := range r.conns {
		if conn == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	r.conns = append(r.conns[:idx], r.conns[idx+1:]...)

	id, bound := r.slotOfLocked(c)
	if !bound {
		return true, nil
	}

	delete(r.slots, id)
	r.readiness[id] = false

	fields := logrus.Fields{"room": r.RoomId, "player": id, "conn": c.ID()}
	if r.status == RoomStatusRunning {
		r.stopSimulationLocked()
		logger.Log.WithFields(fields).Info(logger.BattleAbortedMsg)
	}
	r.refreshStatusLocked()
	logger.Log.WithFields(fields).Info(logger.PlayerLeftSlotMsg)

	return true, r.broadcastLocked(generateUpdatePlayersPayload(r.readiness))
}

func (r *Room) teardownLocked() {
	r.stopSimulationLocked()
	r.setStatusLocked(RoomStatusTornDown)
	r.conns = nil
	r.slots = make(map[PlayerID]Conn, len(PlayerIDs))
}

// Identify 把連線綁到第一個空的座位，座位已滿時回傳 false，連線留在房間觀戰
func (r *Room) Identify(c Conn) (PlayerID, bool) {
	id, ok, failed := r.identify(c)
	r.evict(failed)
	return id, ok
}

func (r *Room) identify(c Conn) (PlayerID, bool, []Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.attachedLocked(c) {
		return "", false, nil
	}

	if id, bound := r.slotOfLocked(c); bound {
		return id, true, r.sendLocked(c, generateIdentifyPayload(id))
	}

	var id PlayerID
	for _, candidate := range PlayerIDs {
		if _, taken := r.slots[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		logger.Log.WithFields(logrus.Fields{
			"room": r.RoomId,
			"conn": c.ID(),
		}).Info(logger.PlayerIdentifyRejectedMsg)
		return "", false, nil
	}

	r.slots[id] = c
	r.refreshStatusLocked()

	logger.Log.WithFields(logrus.Fields{
		"room":   r.RoomId,
		"player": id,
		"conn":   c.ID(),
		"status": r.status.String(),
	}).Info(logger.PlayerIdentifiedMsg)

	failed := r.sendLocked(c, generateIdentifyPayload(id))
	failed = append(failed, r.broadcastLocked(generateUpdatePlayersPayload(r.readiness))...)
	failed = append(failed, r.broadcastLocked(generateGameStatePayload(r.state))...)
	return id, true, failed
}

// SetReady 每次都廣播完整的準備狀態，不管有沒有改變
func (r *Room) SetReady(id PlayerID, isReady bool) {
	if !id.Valid() {
		return
	}

	r.mu.Lock()
	if r.status == RoomStatusTornDown {
		r.mu.Unlock()
		return
	}

	r.readiness[id] = isReady
	r.refreshStatusLocked()

	msg := logger.PlayerCancelReadyMsg
	if isReady {
		msg = logger.PlayerPressReadyMsg
	}
	logger.Log.WithFields(logrus.Fields{
		"room":   r.RoomId,
		"player": id,
		"status": r.status.String(),
	}).Info(msg)

	failed := r.broadcastLocked(generateUpdatePlayersPayload(r.readiness))
	r.mu.Unlock()

	r.evict(failed)
}

// RequestStart 只有在 Ready 時才會開始對戰，成功時回傳 true
func (r *Room) RequestStart() bool {
	r.mu.Lock()

	switch r.status {
	case RoomStatusRunning, RoomStatusTornDown:
		r.mu.Unlock()
		return false

	case RoomStatusForming, RoomStatusReadyPending:
		logger.Log.WithFields(logrus.Fields{
			"room":   r.RoomId,
			"status": r.status.String(),
		}).Info(logger.WaitingForPlayersMsg)
		failed := r.broadcastLocked(generateWaitingForPlayersPayload(r.readiness))
		r.mu.Unlock()
		r.evict(failed)
		return false
	}

	if !r.setStatusLocked(RoomStatusRunning) {
		r.mu.Unlock()
		return false
	}

	for _, id := range PlayerIDs {
		r.matchBase[id] = r.state.Scores[id]
	}
	r.state.Ball = r.settings.Canvas.serveBall()

	failed := r.broadcastLocked(generateGameStartedPayload())

	if r.stopLoop != nil {
		r.stopLoop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.stopLoop = cancel
	r.loopSeq++
	go r.runSimulation(ctx, r.loopSeq, r.settings.TickInterval)

	logger.Log.WithFields(logrus.Fields{
		"room": r.RoomId,
		"loop": r.loopSeq,
	}).Info(logger.BattleStartMsg)

	r.mu.Unlock()
	r.evict(failed)
	return true
}

// ApplyPlayerPosition 球拍位置只來自玩家回報，對戰中由下一個 tick 帶出去
func (r *Room) ApplyPlayerPosition(id PlayerID, position PaddlePosition) {
	if !id.Valid() {
		return
	}

	r.mu.Lock()
	if r.status == RoomStatusTornDown {
		r.mu.Unlock()
		return
	}

	position.applyTo(r.state.Paddle(id))

	var failed []Conn
	if r.status != RoomStatusRunning {
		failed = r.broadcastLocked(generateGameStatePayload(r.state))
	}
	r.mu.Unlock()

	r.evict(failed)
}

func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) Snapshot() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

func (r *Room) Readiness() map[PlayerID]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyReadiness(r.readiness)
}

func (r *Room) SlotOf(c Conn) (PlayerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotOfLocked(c)
}

func (r *Room) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Room) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}
