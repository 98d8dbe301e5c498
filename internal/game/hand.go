package game

// HandResult is the terminal settlement tag stamped on a hand in RESULTS.
type HandResult string

const (
	ResultWin       HandResult = "WIN"
	ResultLose      HandResult = "LOSE"
	ResultPush      HandResult = "PUSH"
	ResultBlackjack HandResult = "BLACKJACK"
	ResultBust      HandResult = "BUST"
)

// Hand is a bet plus a card sequence with running point bookkeeping.
// The dealer uses the same type with Bet left at zero.
//
// Points always equals the card point sum minus 10 for every ace that has
// been downgraded from 11 to 1. FullAces counts the aces still worth 11.
type Hand struct {
	Bet      int        `json:"bet"`
	Cards    []Card     `json:"cards"`
	Points   int        `json:"points"`
	FullAces int        `json:"full_aces"`
	Insured  bool       `json:"is_insured"`
	Result   HandResult `json:"result,omitempty"`
}

// Add appends a drawn card and updates the point total in one step,
// downgrading full aces until the hand is no longer over 21 or no full
// aces remain. No intermediate state is observable.
func (h *Hand) Add(c Card) {
	h.Cards = append(h.Cards, c)
	h.Points += c.Points
	if c.Rank == "ace" {
		h.FullAces++
	}
	for h.Points > 21 && h.FullAces > 0 {
		h.Points -= 10
		h.FullAces--
	}
}

func (h *Hand) IsBust() bool {
	return h.Points > 21
}

// IsBlackjack reports a natural: exactly two cards totaling 21.
func (h *Hand) IsBlackjack() bool {
	return len(h.Cards) == 2 && h.Points == 21
}

// Reset clears the hand for a new betting round.
func (h *Hand) Reset() {
	h.Bet = 0
	h.Cards = nil
	h.Points = 0
	h.FullAces = 0
	h.Insured = false
	h.Result = ""
}
