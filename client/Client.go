package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"PongOnline/core"

	"github.com/gdamore/tcell"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

const PaddleSymbol = 0x2588 // 球拍符號
const BallSymbol = 0x25CF   // 球符號
const PaddleStep = 15       // 每按一次左右鍵移動的距離

var screen tcell.Screen

// view 是客戶端目前看到的畫面狀態
type view struct {
	mu      sync.Mutex
	me      core.PlayerID
	ready   bool
	state   core.GameState
	players map[core.PlayerID]bool
	notice  string
}

func main() {
	serverAddr := pflag.String("server", "127.0.0.1:8000", "伺服器位址 host:port")
	roomID := pflag.String("room", "", "房間代碼，空白時向伺服器建立新的")
	pflag.Parse()

	if *roomID == "" {
		key, err := createGame(*serverAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create game: %v\n", err)
			os.Exit(1)
		}
		*roomID = key
	}

	conn, err := connect(*serverAddr, *roomID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	initScreen()
	defer screen.Fini()

	v := &view{
		state:   core.NewGameState(core.DefaultCanvas()),
		players: map[core.PlayerID]bool{},
		notice:  "房間 " + *roomID,
	}

	if err := sendData(conn, core.IdentifyPlayer{}); err != nil {
		return
	}

	go readServerMsg(conn, v)

	listenOperation(conn, v)
}

func createGame(serverAddr string) (string, error) {
	resp, err := http.Post("http://"+serverAddr+"/create_game", "application/json", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var body struct {
		GameKey string `json:"game_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.GameKey, nil
}

func connect(serverAddr, roomID string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: serverAddr, Path: "/ws/" + url.PathEscape(roomID)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

func sendData(conn *websocket.Conn, msg core.InboundMessage) error {
	data, err := core.GenerateClientPayload(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func listenOperation(conn *websocket.Conn, v *view) {
	for {
		ev, ok := screen.PollEvent().(*tcell.EventKey)
		if !ok {
			continue
		}

		var msg core.InboundMessage

		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
			return

		case ev.Rune() == 'r':
			v.mu.Lock()
			if v.me != "" {
				v.ready = !v.ready
				msg = core.PlayerStatus{Player: v.me, IsReady: v.ready}
			}
			v.mu.Unlock()

		case ev.Rune() == 's':
			msg = core.StartGame{}

		case ev.Key() == tcell.KeyLeft, ev.Key() == tcell.KeyRight:
			msg = v.movePaddle(ev.Key() == tcell.KeyRight)
		}

		if msg != nil {
			if err := sendData(conn, msg); err != nil {
				return
			}
		}
	}
}

func (v *view) movePaddle(right bool) core.InboundMessage {
	v.mu.Lock()
	defer v.mu.Unlock()

	paddle := v.state.Paddle(v.me)
	if paddle == nil {
		return nil
	}

	x := paddle.X - PaddleStep
	if right {
		x = paddle.X + PaddleStep
	}
	if x < 0 {
		x = 0
	}
	if limit := core.CanvasWidth - paddle.Width; x > limit {
		x = limit
	}
	paddle.X = x

	return core.PlayerUpdate{Player: v.me, Position: core.PaddlePosition{X: &x}}
}

func readServerMsg(conn *websocket.Conn, v *view) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			screen.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
			return
		}

		msg, err := core.ParseServerPayload(data)
		if err != nil {
			continue
		}
		v.apply(msg)
		drawView(v)
	}
}

func (v *view) apply(msg core.ServerMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch msg.Type {
	case core.IdentifyPlayerHeader:
		v.me = msg.Player
		v.notice = "你是 " + string(msg.Player) + "，按 r 準備"

	case core.UpdatePlayersHeader:
		v.players = msg.Players
		v.ready = msg.Players[v.me]

	case core.WaitingForPlayersHeader:
		v.players = msg.Players
		v.notice = "等待另一位玩家準備"

	case core.GameStartedHeader:
		v.notice = "對戰開始"

	case core.GameStateHeader:
		own := v.state.Paddle(v.me)
		var keep core.Paddle
		if own != nil {
			keep = *own
		}
		v.state = msg.GameState
		// 自己的球拍以本地為準
		if p := v.state.Paddle(v.me); p != nil {
			*p = keep
		}

	case core.GameOverHeader:
		v.notice = string(msg.Winner) + " 獲勝！按 r 再來一局"
		v.ready = false
	}
}

func initScreen() {
	var err error
	screen, err = tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if e := screen.Init(); e != nil {
		fmt.Fprintf(os.Stderr, "%v\n", e)
		os.Exit(1)
	}

	defaultStyle := tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite)
	screen.SetStyle(defaultStyle)
}

func drawView(v *view) {
	v.mu.Lock()
	defer v.mu.Unlock()

	screen.Clear()
	width, height := screen.Size()
	sx := float64(width) / core.CanvasWidth
	sy := float64(height-1) / core.CanvasHeight

	//兩個球拍
	for _, p := range []core.Paddle{v.state.Player1, v.state.Player2} {
		w := int(p.Width * sx)
		if w < 1 {
			w = 1
		}
		Print(int(p.Y*sy)+1, int(p.X*sx), w, 1, PaddleSymbol)
	}
	//球
	Print(int(v.state.Ball.Y*sy)+1, int(v.state.Ball.X*sx), 1, 1, BallSymbol)

	//狀態列
	status := fmt.Sprintf("%s  P1:%s(%s) P2:%s(%s)  [r]準備 [s]開始 [←→]移動 [q]離開",
		v.notice,
		strconv.Itoa(v.state.Scores[core.Player1]), readyMark(v.players[core.Player1]),
		strconv.Itoa(v.state.Scores[core.Player2]), readyMark(v.players[core.Player2]))
	drawLetters(0, 0, status)

	screen.Show()
}

func readyMark(ready bool) string {
	if ready {
		return "準備"
	}
	return "未準備"
}

func Print(row, col, width, height int, ch rune) {
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			screen.SetContent(col+c, row+r, ch, nil, tcell.StyleDefault)
		}
	}
}

func drawLetters(x int, y int, word string) {
	for _, letter := range word {
		screen.SetContent(x, y, letter, nil, tcell.StyleDefault)
		x++
	}
}
