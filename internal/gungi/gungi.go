package gungi

import (
	"errors"
	"fmt"
)

// Game is a single Gungi match. It is owned by exactly one room and is
// not safe for concurrent use; callers serialize access per room.
type Game struct {
	phase     string
	turn      string
	board     map[string][]Piece
	hands     map[string]map[string]int
	ready     map[string]bool
	moveCount int
	passRun   int

	inCheckmate bool
	inStalemate bool
}

// Piece is one unit of a tower. Color is "w" or "b".
type Piece struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// Move is a single action submitted by a player. "ready" ends a side's
// draft; "place" drops a piece from hand; "move" and "attack" act on
// the board; "pass" gives up the turn.
type Move struct {
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
	Piece string `json:"piece,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// State is a read-only snapshot of the match.
type State struct {
	Phase       string                    `json:"phase"`
	Turn        string                    `json:"turn"`
	InCheckmate bool                      `json:"in_checkmate"`
	InStalemate bool                      `json:"in_stalemate"`
	MoveCount   int                       `json:"move_count"`
	Board       map[string][]Piece        `json:"board"`
	Hands       map[string]map[string]int `json:"hands"`
}

const (
	PhaseDraft = "draft"
	PhaseGame  = "game"

	maxTier = 3
)

var startingHand = map[string]int{
	"marshal":    1,
	"pawn":       9,
	"general":    2,
	"lieutenant": 2,
	"knight":     2,
	"fortress":   1,
	"archer":     2,
	"samurai":    2,
}

var (
	ErrGameOver    = errors.New("game is over")
	ErrWrongTurn   = errors.New("not your turn")
	ErrBadSquare   = errors.New("invalid square")
	ErrEmptySquare = errors.New("no tower on square")
	ErrTowerFull   = errors.New("tower at max tier")
	ErrNotInHand   = errors.New("piece not in hand")
	ErrWrongPhase  = errors.New("move not allowed in this phase")
	ErrUnknownMove = errors.New("unknown move type")
)

// New returns a fresh match in the draft phase, White to act first.
func New() *Game {
	hands := map[string]map[string]int{"w": {}, "b": {}}
	for c := range hands {
		for t, n := range startingHand {
			hands[c][t] = n
		}
	}
	return &Game{
		phase: PhaseDraft,
		turn:  "w",
		board: make(map[string][]Piece),
		hands: hands,
		ready: map[string]bool{"w": false, "b": false},
	}
}

// State returns a snapshot of the current position. The board and hand
// maps are copies; mutating them does not affect the game.
func (g *Game) State() State {
	board := make(map[string][]Piece, len(g.board))
	for sq, tower := range g.board {
		board[sq] = append([]Piece(nil), tower...)
	}
	hands := map[string]map[string]int{}
	for c, hand := range g.hands {
		hands[c] = map[string]int{}
		for t, n := range hand {
			hands[c][t] = n
		}
	}
	return State{
		Phase:       g.phase,
		Turn:        g.turn,
		InCheckmate: g.inCheckmate,
		InStalemate: g.inStalemate,
		MoveCount:   g.moveCount,
		Board:       board,
		Hands:       hands,
	}
}

// Over reports whether a terminal flag has been raised.
func (g *Game) Over() bool {
	return g.inCheckmate || g.inStalemate
}

// ApplyMove validates and applies mv. On error the position is
// unchanged.
func (g *Game) ApplyMove(mv Move) error {
	if g.Over() {
		return ErrGameOver
	}
	switch mv.Type {
	case "ready":
		return g.applyReady(mv)
	case "place":
		return g.applyPlace(mv)
	case "move":
		return g.applyMove(mv)
	case "attack":
		return g.applyAttack(mv)
	case "pass":
		return g.applyPass(mv)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMove, mv.Type)
	}
}

func (g *Game) applyReady(mv Move) error {
	if g.phase != PhaseDraft {
		return ErrWrongPhase
	}
	c, err := color(mv.Color)
	if err != nil {
		return err
	}
	g.ready[c] = true
	if g.ready["w"] && g.ready["b"] {
		g.phase = PhaseGame
		g.turn = "w"
	}
	return nil
}

func (g *Game) applyPlace(mv Move) error {
	c, err := color(mv.Color)
	if err != nil {
		return err
	}
	if g.phase == PhaseGame && c != g.turn {
		return ErrWrongTurn
	}
	if !validSquare(mv.To) {
		return ErrBadSquare
	}
	if g.hands[c][mv.Piece] <= 0 {
		return fmt.Errorf("%w: %q", ErrNotInHand, mv.Piece)
	}
	if len(g.board[mv.To]) >= maxTier {
		return ErrTowerFull
	}
	g.hands[c][mv.Piece]--
	g.board[mv.To] = append(g.board[mv.To], Piece{Type: mv.Piece, Color: c})
	if g.phase == PhaseGame {
		g.advanceTurn()
	}
	return nil
}

func (g *Game) applyMove(mv Move) error {
	top, err := g.topForTurn(mv)
	if err != nil {
		return err
	}
	if len(g.board[mv.To]) >= maxTier {
		return ErrTowerFull
	}
	g.pop(mv.From)
	g.board[mv.To] = append(g.board[mv.To], top)
	g.advanceTurn()
	return nil
}

func (g *Game) applyAttack(mv Move) error {
	top, err := g.topForTurn(mv)
	if err != nil {
		return err
	}
	target := g.board[mv.To]
	if len(target) == 0 {
		return ErrEmptySquare
	}
	victim := target[len(target)-1]
	if victim.Color == top.Color {
		return errors.New("cannot attack own tower")
	}
	g.pop(mv.To)
	g.pop(mv.From)
	g.board[mv.To] = append(g.board[mv.To], top)
	if victim.Type == "marshal" {
		g.inCheckmate = true
	}
	g.advanceTurn()
	return nil
}

func (g *Game) applyPass(mv Move) error {
	if g.phase != PhaseGame {
		return ErrWrongPhase
	}
	c, err := color(mv.Color)
	if err != nil {
		return err
	}
	if c != g.turn {
		return ErrWrongTurn
	}
	g.passRun++
	if g.passRun >= 2 {
		g.inStalemate = true
	}
	g.turn = other(g.turn)
	g.moveCount++
	return nil
}

// topForTurn validates a from-square action for the side to move and
// returns the acting top piece without removing it.
func (g *Game) topForTurn(mv Move) (Piece, error) {
	if g.phase != PhaseGame {
		return Piece{}, ErrWrongPhase
	}
	if !validSquare(mv.From) || !validSquare(mv.To) {
		return Piece{}, ErrBadSquare
	}
	tower := g.board[mv.From]
	if len(tower) == 0 {
		return Piece{}, ErrEmptySquare
	}
	top := tower[len(tower)-1]
	if top.Color != g.turn {
		return Piece{}, ErrWrongTurn
	}
	return top, nil
}

func (g *Game) pop(sq string) {
	tower := g.board[sq]
	if len(tower) <= 1 {
		delete(g.board, sq)
		return
	}
	g.board[sq] = tower[:len(tower)-1]
}

func (g *Game) advanceTurn() {
	g.passRun = 0
	g.turn = other(g.turn)
	g.moveCount++
}

func other(c string) string {
	if c == "w" {
		return "b"
	}
	return "w"
}

func color(c string) (string, error) {
	if c != "w" && c != "b" {
		return "", fmt.Errorf("invalid color %q", c)
	}
	return c, nil
}

// validSquare accepts files a-i and ranks 1-9, e.g. "e5".
func validSquare(sq string) bool {
	if len(sq) != 2 {
		return false
	}
	return sq[0] >= 'a' && sq[0] <= 'i' && sq[1] >= '1' && sq[1] <= '9'
}
