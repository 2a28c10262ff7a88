package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepMovesBallByVelocity(t *testing.T) {
	c := DefaultCanvas()
	s := NewGameState(c)

	res := Step(&s, c)

	assert.Equal(t, TickResult{}, res)
	assert.Equal(t, 402.0, s.Ball.X)
	assert.Equal(t, 298.0, s.Ball.Y)
}

func TestStepReflectsOffSideWalls(t *testing.T) {
	c := DefaultCanvas()

	s := NewGameState(c)
	s.Ball = Ball{X: 11, Y: 300, DX: -2, DY: -2, Radius: BallRadius}
	res := Step(&s, c)
	assert.True(t, res.WallBounce)
	assert.Equal(t, 2.0, s.Ball.DX)
	assert.Equal(t, 10.0, s.Ball.X)

	s.Ball = Ball{X: 789, Y: 300, DX: 2, DY: -2, Radius: BallRadius}
	res = Step(&s, c)
	assert.True(t, res.WallBounce)
	assert.Equal(t, -2.0, s.Ball.DX)
	assert.Equal(t, 790.0, s.Ball.X)

	// 已經往內移動時不會再反彈一次
	s.Ball = Ball{X: 5, Y: 300, DX: 2, DY: -2, Radius: BallRadius}
	res = Step(&s, c)
	assert.False(t, res.WallBounce)
	assert.Equal(t, 2.0, s.Ball.DX)
}

func TestStepBouncesOffTopPaddle(t *testing.T) {
	c := DefaultCanvas()
	s := NewGameState(c)
	s.Ball = Ball{X: 400, Y: 42, DX: 2, DY: -2, Radius: BallRadius}

	res := Step(&s, c)

	assert.Equal(t, Player1, res.PaddleBounce)
	assert.Empty(t, res.Scorer)
	assert.Equal(t, 2.0, s.Ball.DY)
	assert.Equal(t, 40.0, s.Ball.Y)
	assert.Equal(t, 0, s.Scores[Player2])
}

func TestStepBouncesOffBottomPaddle(t *testing.T) {
	c := DefaultCanvas()
	s := NewGameState(c)
	s.Ball = Ball{X: 400, Y: 558, DX: 2, DY: 2, Radius: BallRadius}

	res := Step(&s, c)

	assert.Equal(t, Player2, res.PaddleBounce)
	assert.Equal(t, -2.0, s.Ball.DY)
	assert.Equal(t, 560.0, s.Ball.Y)
}

func TestStepMissAtBottomScoresForPlayer1(t *testing.T) {
	c := DefaultCanvas()
	s := NewGameState(c)
	s.Player2.X = 0
	s.Ball = Ball{X: 400, Y: 558, DX: -2, DY: 2, Radius: BallRadius}

	res := Step(&s, c)

	assert.Equal(t, Player1, res.Scorer)
	assert.Equal(t, 1, s.Scores[Player1])
	assert.Equal(t, c.serveBall(), s.Ball)
}

func TestStepScoresAfterTicksWithoutPaddle(t *testing.T) {
	c := DefaultCanvas()
	s := NewGameState(c)
	s.Player1.X = 0

	for i := 0; i < 129; i++ {
		res := Step(&s, c)
		require.Empty(t, res.Scorer, "tick %d", i+1)
	}
	assert.Equal(t, 0, s.Scores[Player2])

	res := Step(&s, c)

	assert.Equal(t, Player2, res.Scorer)
	assert.Equal(t, 1, s.Scores[Player2])
	assert.Equal(t, 0, s.Scores[Player1])
	assert.Equal(t, Ball{X: 400, Y: 300, DX: BallSpeedX, DY: BallSpeedY, Radius: BallRadius}, s.Ball)
}

func TestStepKeepsBallInsideCanvas(t *testing.T) {
	c := Canvas{Width: 100, Height: 100}
	s := NewGameState(c)
	s.Player1 = Paddle{X: 0, Y: -50, Width: 100, Height: 10}
	s.Ball = Ball{X: 50, Y: 11, DX: 0, DY: -5, Radius: 10}

	Step(&s, c)

	assert.GreaterOrEqual(t, s.Ball.Y, s.Ball.Radius)
	assert.LessOrEqual(t, s.Ball.Y, c.Height-s.Ball.Radius)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(0, 1, 2))
	assert.Equal(t, 2.0, clamp(3, 1, 2))
	assert.Equal(t, 1.5, clamp(1.5, 1, 2))
	assert.Equal(t, 5.0, clamp(3, 5, 4))
}
