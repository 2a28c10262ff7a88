package core

type PlayerID string

const (
	Player1 PlayerID = "player1" // 上方球拍
	Player2 PlayerID = "player2" // 下方球拍
)

// PlayerIDs 依照指派順序排列
var PlayerIDs = [...]PlayerID{Player1, Player2}

func (p PlayerID) Valid() bool {
	return p == Player1 || p == Player2
}

func (p PlayerID) Opponent() PlayerID {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// 預設的場地與物件尺寸
const (
	CanvasWidth  = 800
	CanvasHeight = 600

	BallRadius = 10
	BallSpeedX = 2
	BallSpeedY = -2

	PaddleWidth  = 100
	PaddleHeight = 20
	PaddleMargin = 10 // 球拍與上下邊界的距離
)

type Canvas struct {
	Width  float64
	Height float64
}

func DefaultCanvas() Canvas {
	return Canvas{Width: CanvasWidth, Height: CanvasHeight}
}

type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Radius float64 `json:"radius"`
}

type Paddle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (p Paddle) spans(x float64) bool {
	return x >= p.X && x <= p.X+p.Width
}

type GameState struct {
	Ball    Ball             `json:"ball"`
	Player1 Paddle           `json:"player1"`
	Player2 Paddle           `json:"player2"`
	Scores  map[PlayerID]int `json:"scores"`
}

// NewGameState 球在場地中央，兩個球拍水平置中
func NewGameState(c Canvas) GameState {
	paddleX := (c.Width - PaddleWidth) / 2
	return GameState{
		Ball: c.serveBall(),
		Player1: Paddle{
			X: paddleX, Y: PaddleMargin,
			Width: PaddleWidth, Height: PaddleHeight,
		},
		Player2: Paddle{
			X: paddleX, Y: c.Height - PaddleMargin - PaddleHeight,
			Width: PaddleWidth, Height: PaddleHeight,
		},
		Scores: map[PlayerID]int{Player1: 0, Player2: 0},
	}
}

func (c Canvas) serveBall() Ball {
	return Ball{
		X: c.Width / 2, Y: c.Height / 2,
		DX: BallSpeedX, DY: BallSpeedY,
		Radius: BallRadius,
	}
}

func (s *GameState) Paddle(id PlayerID) *Paddle {
	switch id {
	case Player1:
		return &s.Player1
	case Player2:
		return &s.Player2
	}
	return nil
}

// Clone 複製一份，Scores 不共用
func (s GameState) Clone() GameState {
	scores := make(map[PlayerID]int, len(s.Scores))
	for id, v := range s.Scores {
		scores[id] = v
	}
	s.Scores = scores
	return s
}
