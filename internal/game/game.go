package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Phase is the game-level phase, a strict cycle
// BETTING -> PLAYING -> RESULTS -> BETTING.
type Phase string

const (
	PhaseBetting Phase = "BETTING"
	PhasePlaying Phase = "PLAYING"
	PhaseResults Phase = "RESULTS"
)

var (
	ErrRoomFull            = errors.New("room is full")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrWrongPhase          = errors.New("action not valid in current phase")
	ErrAlreadyBet          = errors.New("bet already placed")
	ErrSpectating          = errors.New("spectating until next round")
	ErrUnknownPlayer       = errors.New("unknown player")
	ErrNoCurrentHand       = errors.New("turn cursor out of range")
	ErrCannotSplit         = errors.New("hand cannot be split")
	ErrInsuranceNotOffered = errors.New("insurance is not offered")
	ErrAlreadyInsured      = errors.New("hand is already insured")
	ErrNoActivePlayers     = errors.New("no active players with a bet")
)

// Game is the blackjack rules engine for one table. It is not safe for
// concurrent use: the owning room is the single writer and serializes
// every call behind its own lock.
type Game struct {
	shoe     *Shoe
	rng      *rand.Rand
	numDecks int
	maxSeats int
	nextSeat int

	Players []*Player
	Dealer  *Hand
	Turn    Turn
	Phase   Phase

	// InsuranceOffered is set at deal time when the dealer's up-card is an
	// ace, before any natural-blackjack skip runs.
	InsuranceOffered bool
}

func New(numDecks, maxSeats int, rng *rand.Rand) *Game {
	return &Game{
		shoe:     NewShoe(numDecks, rng),
		rng:      rng,
		numDecks: numDecks,
		maxSeats: maxSeats,
		Dealer:   &Hand{},
		Phase:    PhaseBetting,
	}
}

func (g *Game) MaxSeats() int   { return g.maxSeats }
func (g *Game) NumPlayers() int { return len(g.Players) }

// ConnectPlayer seats a new player. Outside BETTING the player joins as a
// spectator and is promoted at the next betting re-entry.
func (g *Game) ConnectPlayer(nick string, balance int) (*Player, error) {
	if len(g.Players) >= g.maxSeats {
		return nil, ErrRoomFull
	}
	if _, ok := g.PlayerByNick(nick); ok {
		return nil, fmt.Errorf("player %s already seated", nick)
	}
	p := NewPlayer(nick, balance, g.nextSeat)
	g.nextSeat++
	if g.Phase != PhaseBetting {
		p.State = StateSpectating
	}
	g.Players = append(g.Players, p)
	return p, nil
}

func (g *Game) PlayerByNick(nick string) (*Player, bool) {
	for _, p := range g.Players {
		if p.Nick == nick {
			return p, true
		}
	}
	return nil, false
}

func (g *Game) MarkInactive(nick string) {
	if p, ok := g.PlayerByNick(nick); ok && p.State == StateActive {
		p.State = StateInactive
	}
}

func (g *Game) MarkActive(nick string) {
	if p, ok := g.PlayerByNick(nick); ok && p.State == StateInactive {
		p.State = StateActive
	}
}

// Bet debits the amount and sets it on the player's primary hand.
// One bet per player per round.
func (g *Game) Bet(nick string, amount int) error {
	if g.Phase != PhaseBetting {
		return ErrWrongPhase
	}
	p, ok := g.PlayerByNick(nick)
	if !ok {
		return ErrUnknownPlayer
	}
	if p.State == StateSpectating {
		return ErrSpectating
	}
	if amount <= 0 {
		return fmt.Errorf("invalid bet amount %d", amount)
	}
	if p.HasBet() {
		return ErrAlreadyBet
	}
	if amount > p.Balance {
		return ErrInsufficientFunds
	}
	p.Balance -= amount
	p.Hands[0].Bet = amount
	return nil
}

// AllBetsPlaced reports whether every ACTIVE player has placed a bet and at
// least one bet exists.
func (g *Game) AllBetsPlaced() bool {
	bettors := 0
	for _, p := range g.Players {
		if p.State != StateActive {
			continue
		}
		if !p.HasBet() {
			return false
		}
		bettors++
	}
	return bettors > 0
}

// PlayersWithoutBet returns the nicks of ACTIVE players with no bet placed.
func (g *Game) PlayersWithoutBet() []string {
	var nicks []string
	for _, p := range g.Players {
		if p.State == StateActive && !p.HasBet() {
			nicks = append(nicks, p.Nick)
		}
	}
	return nicks
}

// StartRound is the BETTING -> PLAYING transition: two cards to every ACTIVE
// bettor's primary hand and two to the dealer, alternating one pass per card,
// then the turn cursor lands on the first playable hand.
func (g *Game) StartRound() error {
	if g.Phase != PhaseBetting {
		return ErrWrongPhase
	}
	bettors := 0
	for _, p := range g.Players {
		if p.State == StateActive && p.HasBet() {
			bettors++
		}
	}
	if bettors == 0 {
		return ErrNoActivePlayers
	}
	for i := 0; i < 2; i++ {
		for _, p := range g.Players {
			if p.State != StateActive || !p.HasBet() {
				continue
			}
			c, err := g.shoe.Draw()
			if err != nil {
				return err
			}
			p.Hands[0].Add(c)
		}
		c, err := g.shoe.Draw()
		if err != nil {
			return err
		}
		g.Dealer.Add(c)
	}
	g.InsuranceOffered = g.Dealer.Cards[0].Rank == "ace"
	g.Phase = PhasePlaying
	g.Turn = Turn{}
	if g.cursorPlayable() {
		g.Turn.ValidMoves = g.validMoves()
		return nil
	}
	return g.nextTurn()
}

// CurrentPlayer returns the player the turn cursor points at.
func (g *Game) CurrentPlayer() (*Player, error) {
	if g.Turn.PlayerIdx < 0 || g.Turn.PlayerIdx >= len(g.Players) {
		return nil, ErrNoCurrentHand
	}
	return g.Players[g.Turn.PlayerIdx], nil
}

// CurrentHand returns the hand the turn cursor points at.
func (g *Game) CurrentHand() (*Hand, error) {
	p, err := g.CurrentPlayer()
	if err != nil {
		return nil, err
	}
	if g.Turn.HandIdx < 0 || g.Turn.HandIdx >= len(p.Hands) {
		return nil, ErrNoCurrentHand
	}
	return p.Hands[g.Turn.HandIdx], nil
}

// Hit draws one card into the current hand. A bust advances the turn.
func (g *Game) Hit() error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	h, err := g.CurrentHand()
	if err != nil {
		return err
	}
	c, err := g.shoe.Draw()
	if err != nil {
		return err
	}
	h.Add(c)
	if h.IsBust() {
		return g.nextTurn()
	}
	g.Turn.ValidMoves = g.validMoves()
	return nil
}

// Stand advances the turn unconditionally.
func (g *Game) Stand() error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if _, err := g.CurrentHand(); err != nil {
		return err
	}
	return g.nextTurn()
}

// Double doubles the current hand's bet, draws exactly one card and
// advances the turn.
func (g *Game) Double() error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	p, err := g.CurrentPlayer()
	if err != nil {
		return err
	}
	h, err := g.CurrentHand()
	if err != nil {
		return err
	}
	if p.Balance < h.Bet {
		return ErrInsufficientFunds
	}
	c, err := g.shoe.Draw()
	if err != nil {
		return err
	}
	p.Balance -= h.Bet
	h.Bet *= 2
	h.Add(c)
	return g.nextTurn()
}

// Split moves the second card of an equal-rank pair into a new hand
// appended to the player's hand list, each hand keeping the original bet.
// The cursor stays on the current hand; the new hand is reached via normal
// turn advance.
func (g *Game) Split() error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	p, err := g.CurrentPlayer()
	if err != nil {
		return err
	}
	h, err := g.CurrentHand()
	if err != nil {
		return err
	}
	if len(h.Cards) != 2 || h.Cards[0].Rank != h.Cards[1].Rank {
		return ErrCannotSplit
	}
	if p.Balance < h.Bet {
		return ErrInsufficientFunds
	}
	p.Balance -= h.Bet

	first, second := h.Cards[0], h.Cards[1]
	bet, insured := h.Bet, h.Insured
	// Rebuild both hands from their single card so ace bookkeeping stays
	// consistent (an ace re-enters as 11).
	*h = Hand{Bet: bet, Insured: insured}
	h.Add(first)
	split := &Hand{Bet: bet}
	split.Add(second)
	p.Hands = append(p.Hands, split)

	g.Turn.ValidMoves = g.validMoves()
	return nil
}

// Insurance records the current player's insurance decision. Accepting
// debits half the hand's bet as premium; the side bet settles with the
// round. The turn does not advance.
func (g *Game) Insurance(accept bool) error {
	if g.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if !g.InsuranceOffered {
		return ErrInsuranceNotOffered
	}
	p, err := g.CurrentPlayer()
	if err != nil {
		return err
	}
	h, err := g.CurrentHand()
	if err != nil {
		return err
	}
	if !accept {
		return nil
	}
	if h.Insured {
		return ErrAlreadyInsured
	}
	premium := h.Bet / 2
	if p.Balance < premium {
		return ErrInsufficientFunds
	}
	p.Balance -= premium
	h.Insured = true
	return nil
}

// cursorPlayable reports whether the hand under the cursor should be
// offered actions: ACTIVE owner, a placed bet, not a natural and not bust.
func (g *Game) cursorPlayable() bool {
	p, err := g.CurrentPlayer()
	if err != nil {
		return false
	}
	if p.State != StateActive {
		return false
	}
	if g.Turn.HandIdx >= len(p.Hands) {
		return false
	}
	h := p.Hands[g.Turn.HandIdx]
	return h.Bet > 0 && !h.IsBlackjack() && !h.IsBust()
}

// nextTurn moves the cursor: next hand of the same player, else the next
// seated player's first hand, else dealer play. INACTIVE players are stood
// through, SPECTATING players and natural blackjacks are skipped.
func (g *Game) nextTurn() error {
	for {
		p, err := g.CurrentPlayer()
		if err != nil {
			return g.playDealer()
		}
		if g.Turn.HandIdx+1 < len(p.Hands) {
			g.Turn.HandIdx++
		} else {
			g.Turn.PlayerIdx++
			g.Turn.HandIdx = 0
			if g.Turn.PlayerIdx >= len(g.Players) {
				return g.playDealer()
			}
		}
		if g.cursorPlayable() {
			g.Turn.ValidMoves = g.validMoves()
			return nil
		}
	}
}

func (g *Game) validMoves() []Move {
	moves := []Move{MoveHit, MoveStand, MoveDouble}
	h, err := g.CurrentHand()
	if err != nil {
		return moves
	}
	if len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank {
		moves = append(moves, MoveSplit)
	}
	return moves
}

// playDealer finishes the dealer hand and settles every bet, the
// PLAYING -> RESULTS transition. The dealer stands on any 17 and skips
// drawing entirely on a natural.
func (g *Game) playDealer() error {
	if !g.Dealer.IsBlackjack() {
		for g.Dealer.Points < 17 {
			c, err := g.shoe.Draw()
			if err != nil {
				return err
			}
			g.Dealer.Add(c)
		}
	}
	g.settle()
	g.Phase = PhaseResults
	g.Turn.ValidMoves = nil
	return nil
}

func (g *Game) settle() {
	dealerBJ := g.Dealer.IsBlackjack()
	dealerBust := g.Dealer.IsBust()
	for _, p := range g.Players {
		if p.State == StateSpectating {
			continue
		}
		for _, h := range p.Hands {
			if h.Bet == 0 {
				continue
			}
			if h.Insured && dealerBJ {
				// Insurance pays 2:1 on the premium, stake returned.
				p.Balance += 3 * (h.Bet / 2)
			}
			switch {
			case h.IsBust():
				h.Result = ResultBust
			case h.IsBlackjack() && !dealerBJ:
				p.Balance += int(math.Round(2.5 * float64(h.Bet)))
				h.Result = ResultBlackjack
			case dealerBust || h.Points > g.Dealer.Points:
				p.Balance += 2 * h.Bet
				h.Result = ResultWin
			case h.Points == g.Dealer.Points:
				p.Balance += h.Bet
				h.Result = ResultPush
			default:
				h.Result = ResultLose
			}
		}
	}
}

// PruneInactive removes INACTIVE players from the roster and returns them
// so the caller can settle their balances. Never valid during PLAYING,
// where seat removal would disturb the turn cursor.
func (g *Game) PruneInactive() []*Player {
	if g.Phase == PhasePlaying {
		return nil
	}
	var pruned []*Player
	players := g.Players[:0]
	for _, p := range g.Players {
		if p.State == StateInactive {
			pruned = append(pruned, p)
			continue
		}
		players = append(players, p)
	}
	g.Players = players
	return pruned
}

// ResetRound is the RESULTS -> BETTING transition: promotes spectators,
// clears all hands, reshuffles a fresh shoe and resets the cursor.
// INACTIVE players keep their state so the caller can prune them.
func (g *Game) ResetRound() {
	for _, p := range g.Players {
		if p.State == StateInactive {
			continue
		}
		p.State = StateActive
		p.ResetForRound()
	}
	g.Dealer.Reset()
	g.shoe = NewShoe(g.numDecks, g.rng)
	g.Turn = Turn{}
	g.InsuranceOffered = false
	g.Phase = PhaseBetting
}
