package game

import "time"

// Move is a player action kind carried on the wire.
type Move string

const (
	MoveHit       Move = "HIT"
	MoveStand     Move = "STAND"
	MoveDouble    Move = "DOUBLE"
	MoveSplit     Move = "SPLIT"
	MoveBet       Move = "BET"
	MoveInsurance Move = "INSURANCE"
)

// Turn is the single writable cursor over (player index, hand index).
// All mutating hand operations implicitly target
// players[PlayerIdx].Hands[HandIdx]; PlayerIdx indexes the roster slice.
type Turn struct {
	PlayerIdx  int       `json:"player_idx"`
	HandIdx    int       `json:"hand_idx"`
	ValidMoves []Move    `json:"valid_moves"`
	Deadline   time.Time `json:"deadline"`
}
