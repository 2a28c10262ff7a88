package core

import (
	"context"
	"runtime/debug"
	"time"

	"PongOnline/logger"

	"github.com/sirupsen/logrus"
)

// TickResult 記錄一次 Step 裡發生的事件
type TickResult struct {
	WallBounce   bool
	PaddleBounce PlayerID
	Scorer       PlayerID
}

// Step 推進一個 tick。球拍位置完全來自玩家回報，這裡只移動球並判斷碰撞與得分
func Step(s *GameState, c Canvas) TickResult {
	var res TickResult
	ball := &s.Ball

	//移動球
	ball.X += ball.DX
	ball.Y += ball.DY

	//檢查有沒有撞到左右牆壁
	if isCollidesWithWall(ball, c) {
		ball.DX = -ball.DX
		ball.X = clamp(ball.X, ball.Radius, c.Width-ball.Radius)
		res.WallBounce = true
	}

	//player1 在上方
	edge := clamp(s.Player1.Y+s.Player1.Height, 0, c.Height)
	if ball.DY < 0 && ball.Y-ball.Radius <= edge {
		if s.Player1.spans(ball.X) {
			ball.DY = -ball.DY
			ball.Y = edge + ball.Radius
			res.PaddleBounce = Player1
		} else {
			scorePoint(s, Player2, c)
			res.Scorer = Player2
		}
	}

	//player2 在下方
	edge = clamp(s.Player2.Y, 0, c.Height)
	if ball.DY > 0 && ball.Y+ball.Radius >= edge {
		if s.Player2.spans(ball.X) {
			ball.DY = -ball.DY
			ball.Y = edge - ball.Radius
			res.PaddleBounce = Player2
		} else {
			scorePoint(s, Player1, c)
			res.Scorer = Player1
		}
	}

	ball.X = clamp(ball.X, ball.Radius, c.Width-ball.Radius)
	ball.Y = clamp(ball.Y, ball.Radius, c.Height-ball.Radius)

	return res
}

func isCollidesWithWall(ball *Ball, c Canvas) bool {
	return (ball.DX < 0 && ball.X-ball.Radius <= 0) ||
		(ball.DX > 0 && ball.X+ball.Radius >= c.Width)
}

func scorePoint(s *GameState, scorer PlayerID, c Canvas) {
	if s.Scores == nil {
		s.Scores = make(map[PlayerID]int, len(PlayerIDs))
	}
	s.Scores[scorer] += 1
	resetNewRound(s, c)
}

func resetNewRound(s *GameState, c Canvas) {
	s.Ball = c.serveBall()
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// runSimulation 是房間的 tick 迴圈，ctx 被取消或 seq 不再是目前的迴圈時結束
func (r *Room) runSimulation(ctx context.Context, seq uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.WithFields(logrus.Fields{
				"room":  r.RoomId,
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error(logger.SimulationFaultMsg)

			r.mu.Lock()
			if r.loopSeq == seq {
				r.stopSimulationLocked()
			}
			r.mu.Unlock()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			failed, running := r.tick(ctx, seq)
			r.evict(failed)
			if !running {
				return
			}
		}
	}
}

func (r *Room) tick(ctx context.Context, seq uint64) ([]Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Err() != nil || r.loopSeq != seq || r.status != RoomStatusRunning {
		return nil, false
	}

	res := Step(&r.state, r.settings.Canvas)
	r.ticks++

	if res.Scorer != "" {
		logger.Log.WithFields(logrus.Fields{
			"room":   r.RoomId,
			"player": res.Scorer,
			"scores": r.state.Scores,
		}).Debug(logger.PlayerScoredMsg)
	}

	failed := r.broadcastLocked(generateGameStatePayload(r.state))

	winner, over := r.matchWinnerLocked()
	if !over {
		return failed, true
	}

	failed = append(failed, r.broadcastLocked(generateGameOverPayload(winner, r.state.Scores))...)
	for _, id := range PlayerIDs {
		r.readiness[id] = false
	}
	r.stopSimulationLocked()
	failed = append(failed, r.broadcastLocked(generateUpdatePlayersPayload(r.readiness))...)

	logger.Log.WithFields(logrus.Fields{
		"room":   r.RoomId,
		"winner": winner,
		"scores": r.state.Scores,
	}).Info(logger.BattleOverMsg)

	return failed, false
}

// matchWinnerLocked 以開賽時的分數為基準，先多拿 WinningScore 分的一方獲勝
func (r *Room) matchWinnerLocked() (PlayerID, bool) {
	if r.settings.WinningScore <= 0 {
		return "", false
	}
	for _, id := range PlayerIDs {
		if r.state.Scores[id]-r.matchBase[id] >= r.settings.WinningScore {
			return id, true
		}
	}
	return "", false
}
