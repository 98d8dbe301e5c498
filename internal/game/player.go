package game

// PlayerState is the lifecycle state of a seated player.
//
// ACTIVE players are dealt in and act on their turns. INACTIVE players keep
// their seat and hands but are auto-stood through; they are pruned from the
// roster at the next betting re-entry. SPECTATING players joined mid-round
// and are skipped entirely until promoted at the next betting phase.
type PlayerState string

const (
	StateActive     PlayerState = "ACTIVE"
	StateInactive   PlayerState = "INACTIVE"
	StateSpectating PlayerState = "SPECTATING"
)

type Player struct {
	Nick    string      `json:"nick"`
	Balance int         `json:"balance"`
	Seat    int         `json:"seat"`
	State   PlayerState `json:"state"`
	Hands   []*Hand     `json:"hands"`
}

func NewPlayer(nick string, balance, seat int) *Player {
	return &Player{
		Nick:    nick,
		Balance: balance,
		Seat:    seat,
		State:   StateActive,
		Hands:   []*Hand{{}},
	}
}

// ResetForRound collapses the player back to a single empty hand.
func (p *Player) ResetForRound() {
	p.Hands = []*Hand{{}}
}

// HasBet reports whether the player's primary hand carries a bet.
func (p *Player) HasBet() bool {
	return len(p.Hands) > 0 && p.Hands[0].Bet > 0
}
