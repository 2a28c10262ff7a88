package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// client → server
const IdentifyPlayerHeader = "identify_player"
const PlayerStatusHeader = "player_status"
const StartGameHeader = "start_game"
const PlayerUpdateHeader = "player_update"

// server → client
const UpdatePlayersHeader = "update_players"
const GameStartedHeader = "game_started"
const GameStateHeader = "game_state"
const WaitingForPlayersHeader = "waiting_for_players"
const GameOverHeader = "game_over"

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownMessage   = errors.New("unknown message type")
)

// InboundMessage 是玩家可以送來的訊息，只有下面四種
type InboundMessage interface {
	header() string
}

type IdentifyPlayer struct{}

type PlayerStatus struct {
	Player  PlayerID `json:"player"`
	IsReady bool     `json:"isReady"`
}

type StartGame struct{}

type PlayerUpdate struct {
	Player   PlayerID       `json:"player"`
	Position PaddlePosition `json:"position"`
}

// PaddlePosition 沒帶的欄位保留原本的值
type PaddlePosition struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

func (IdentifyPlayer) header() string { return IdentifyPlayerHeader }
func (PlayerStatus) header() string   { return PlayerStatusHeader }
func (StartGame) header() string      { return StartGameHeader }
func (PlayerUpdate) header() string   { return PlayerUpdateHeader }

func (p PaddlePosition) applyTo(paddle *Paddle) {
	if p.X != nil {
		paddle.X = *p.X
	}
	if p.Y != nil {
		paddle.Y = *p.Y
	}
	if p.Width != nil {
		paddle.Width = *p.Width
	}
	if p.Height != nil {
		paddle.Height = *p.Height
	}
}

// parseInboundPayload 解析玩家訊息，不認得的欄位視為格式錯誤
func parseInboundPayload(data []byte) (InboundMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch envelope.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)

	case IdentifyPlayerHeader:
		var m struct {
			Type string `json:"type"`
		}
		if err := decodeStrict(data, &m); err != nil {
			return nil, err
		}
		return IdentifyPlayer{}, nil

	case PlayerStatusHeader:
		var m struct {
			Type string `json:"type"`
			PlayerStatus
		}
		if err := decodeStrict(data, &m); err != nil {
			return nil, err
		}
		if !m.Player.Valid() {
			return nil, fmt.Errorf("%w: unknown player %q", ErrMalformedMessage, m.Player)
		}
		return m.PlayerStatus, nil

	case StartGameHeader:
		var m struct {
			Type string `json:"type"`
		}
		if err := decodeStrict(data, &m); err != nil {
			return nil, err
		}
		return StartGame{}, nil

	case PlayerUpdateHeader:
		var m struct {
			Type string `json:"type"`
			PlayerUpdate
		}
		if err := decodeStrict(data, &m); err != nil {
			return nil, err
		}
		if !m.Player.Valid() {
			return nil, fmt.Errorf("%w: unknown player %q", ErrMalformedMessage, m.Player)
		}
		return m.PlayerUpdate, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, envelope.Type)
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// GenerateClientPayload 給客戶端用，把訊息加上 type 後編碼
func GenerateClientPayload(msg InboundMessage) ([]byte, error) {
	switch m := msg.(type) {
	case IdentifyPlayer, StartGame:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{m.header()})

	case PlayerStatus:
		return json.Marshal(struct {
			Type string `json:"type"`
			PlayerStatus
		}{m.header(), m})

	case PlayerUpdate:
		return json.Marshal(struct {
			Type string `json:"type"`
			PlayerUpdate
		}{m.header(), m})
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
}

type identifyPayload struct {
	Type   string   `json:"type"`
	Player PlayerID `json:"player"`
}

type playersPayload struct {
	Type    string            `json:"type"`
	Players map[PlayerID]bool `json:"players"`
}

type gameStartedPayload struct {
	Type string `json:"type"`
}

type gameStatePayload struct {
	Type string `json:"type"`
	GameState
}

type gameOverPayload struct {
	Type   string           `json:"type"`
	Winner PlayerID         `json:"winner"`
	Scores map[PlayerID]int `json:"scores"`
}

func generateIdentifyPayload(player PlayerID) identifyPayload {
	return identifyPayload{Type: IdentifyPlayerHeader, Player: player}
}

func generateUpdatePlayersPayload(readiness map[PlayerID]bool) playersPayload {
	return playersPayload{Type: UpdatePlayersHeader, Players: copyReadiness(readiness)}
}

func generateWaitingForPlayersPayload(readiness map[PlayerID]bool) playersPayload {
	return playersPayload{Type: WaitingForPlayersHeader, Players: copyReadiness(readiness)}
}

func generateGameStartedPayload() gameStartedPayload {
	return gameStartedPayload{Type: GameStartedHeader}
}

func generateGameStatePayload(state GameState) gameStatePayload {
	return gameStatePayload{Type: GameStateHeader, GameState: state.Clone()}
}

func generateGameOverPayload(winner PlayerID, scores map[PlayerID]int) gameOverPayload {
	copied := make(map[PlayerID]int, len(scores))
	for id, v := range scores {
		copied[id] = v
	}
	return gameOverPayload{Type: GameOverHeader, Winner: winner, Scores: copied}
}

// copyReadiness 兩個玩家都會出現在結果裡
func copyReadiness(readiness map[PlayerID]bool) map[PlayerID]bool {
	out := make(map[PlayerID]bool, len(PlayerIDs))
	for _, id := range PlayerIDs {
		out[id] = readiness[id]
	}
	return out
}

// ServerMessage 給客戶端解析伺服器送來的任何訊息
type ServerMessage struct {
	Type    string            `json:"type"`
	Player  PlayerID          `json:"player,omitempty"`
	Players map[PlayerID]bool `json:"players,omitempty"`
	Winner  PlayerID          `json:"winner,omitempty"`
	GameState
}

func ParseServerPayload(data []byte) (ServerMessage, error) {
	var m ServerMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.Type == "" {
		return m, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return m, nil
}
