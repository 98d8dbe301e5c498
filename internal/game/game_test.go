package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(rank string) Card {
	points := 0
	for _, r := range ranks {
		if r.name == rank {
			points = r.points
		}
	}
	return Card{Rank: rank, Suit: "hearts", Points: points}
}

// stackShoe replaces the shoe so draws come out in the listed order.
func stackShoe(g *Game, cards ...Card) {
	stacked := make([]Card, len(cards))
	for i, c := range cards {
		stacked[len(cards)-1-i] = c
	}
	g.shoe = &Shoe{cards: stacked, rng: g.rng}
}

func newTestGame() *Game {
	return New(4, 5, rand.New(rand.NewSource(7)))
}

func TestConnectPlayer(t *testing.T) {
	g := newTestGame()
	p, err := g.ConnectPlayer("alice", 1000)
	require.NoError(t, err)
	assert.Equal(t, StateActive, p.State)
	assert.Equal(t, 0, p.Seat)

	_, err = g.ConnectPlayer("alice", 1000)
	assert.Error(t, err, "duplicate nick must be refused")

	for _, n := range []string{"b", "c", "d", "e"} {
		_, err := g.ConnectPlayer(n, 1000)
		require.NoError(t, err)
	}
	_, err = g.ConnectPlayer("late", 1000)
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinMidRoundSpectates(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))
	require.NoError(t, g.StartRound())

	p, err := g.ConnectPlayer("bob", 1000)
	require.NoError(t, err)
	assert.Equal(t, StateSpectating, p.State)
	assert.ErrorIs(t, g.Bet("bob", 50), ErrWrongPhase)
}

func TestBetValidation(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 100)

	assert.Error(t, g.Bet("alice", 0))
	assert.Error(t, g.Bet("alice", -5))
	assert.ErrorIs(t, g.Bet("alice", 200), ErrInsufficientFunds)
	assert.ErrorIs(t, g.Bet("ghost", 10), ErrUnknownPlayer)

	require.NoError(t, g.Bet("alice", 60))
	assert.Equal(t, 40, g.Players[0].Balance)
	assert.ErrorIs(t, g.Bet("alice", 10), ErrAlreadyBet)
}

func TestStartRoundDealsOnlyToBettors(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	g.ConnectPlayer("bob", 1000)
	g.ConnectPlayer("carol", 1000)

	require.NoError(t, g.Bet("alice", 100))
	require.NoError(t, g.Bet("bob", 50))
	// carol sits the round out
	g.MarkInactive("carol")

	assert.True(t, g.AllBetsPlaced())
	// alternating passes: one card per bettor then the dealer, twice
	stackShoe(g,
		card("9"), card("10"), card("7"),
		card("8"), card("6"), card("king"),
	)
	require.NoError(t, g.StartRound())

	assert.Equal(t, PhasePlaying, g.Phase)
	assert.Len(t, g.Players[0].Hands[0].Cards, 2)
	assert.Len(t, g.Players[1].Hands[0].Cards, 2)
	assert.Len(t, g.Players[2].Hands[0].Cards, 0, "inactive player is not dealt in")
	assert.Len(t, g.Dealer.Cards, 2)

	assert.Equal(t, "9", g.Players[0].Hands[0].Cards[0].Rank)
	assert.Equal(t, "10", g.Players[1].Hands[0].Cards[0].Rank)
	assert.Equal(t, "7", g.Dealer.Cards[0].Rank)

	cur, err := g.CurrentPlayer()
	require.NoError(t, err)
	assert.Equal(t, "alice", cur.Nick)
	assert.ElementsMatch(t, []Move{MoveHit, MoveStand, MoveDouble}, g.Turn.ValidMoves)
}

func TestStartRoundWithoutBettors(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	assert.ErrorIs(t, g.StartRound(), ErrNoActivePlayers)
}

func TestNaturalBlackjackSkipsTurn(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	g.ConnectPlayer("bob", 1000)
	require.NoError(t, g.Bet("alice", 100))
	require.NoError(t, g.Bet("bob", 100))

	stackShoe(g,
		card("ace"), card("9"), card("9"),
		card("king"), card("10"), card("8"),
	)
	require.NoError(t, g.StartRound())

	cur, err := g.CurrentPlayer()
	require.NoError(t, err)
	assert.Equal(t, "bob", cur.Nick, "natural hand is skipped")
}

func TestHitBustAdvancesToDealer(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("9"),
		card("queen"), card("8"),
		card("5"), // alice's hit, 25, bust
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Hit())

	assert.Equal(t, PhaseResults, g.Phase)
	assert.Equal(t, ResultBust, g.Players[0].Hands[0].Result)
	assert.Equal(t, 900, g.Players[0].Balance, "bust pays nothing")
}

func TestStandAndWin(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	// alice 19, dealer 17: dealer stands on any 17
	stackShoe(g,
		card("king"), card("10"),
		card("9"), card("7"),
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Stand())

	assert.Equal(t, PhaseResults, g.Phase)
	assert.Equal(t, ResultWin, g.Players[0].Hands[0].Result)
	assert.Equal(t, 1100, g.Players[0].Balance, "win pays 1:1")
	assert.Len(t, g.Dealer.Cards, 2, "dealer stands on 17")
}

func TestPush(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("9"),
		card("7"), card("8"),
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Stand())

	assert.Equal(t, ResultPush, g.Players[0].Hands[0].Result)
	assert.Equal(t, 1000, g.Players[0].Balance, "push returns the stake")
}

func TestBlackjackPaysThreeToTwo(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("ace"), card("9"),
		card("king"), card("8"),
	)
	require.NoError(t, g.StartRound())

	// the natural is skipped and there is nobody else, so the round settles
	assert.Equal(t, PhaseResults, g.Phase)
	assert.Equal(t, ResultBlackjack, g.Players[0].Hands[0].Result)
	assert.Equal(t, 1150, g.Players[0].Balance)
}

func TestDealerBustPaysEveryStandingHand(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("10"),
		card("4"), card("6"),
		card("king"), // dealer hits 16 into 26
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Stand())

	assert.True(t, g.Dealer.IsBust())
	assert.Equal(t, ResultWin, g.Players[0].Hands[0].Result)
	assert.Equal(t, 1100, g.Players[0].Balance)
}

func TestDouble(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	// alice 11, doubles into a 9 for 20; dealer 19
	stackShoe(g,
		card("5"), card("10"),
		card("6"), card("9"),
		card("9"),
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Double())

	h := g.Players[0].Hands[0]
	assert.Equal(t, 200, h.Bet)
	assert.Len(t, h.Cards, 3)
	assert.Equal(t, PhaseResults, g.Phase, "double draws exactly one card and ends the turn")
	assert.Equal(t, ResultWin, h.Result)
	assert.Equal(t, 1200, g.Players[0].Balance)
}

func TestDoubleNeedsFunds(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 150)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("5"), card("10"),
		card("6"), card("9"),
	)
	require.NoError(t, g.StartRound())
	assert.ErrorIs(t, g.Double(), ErrInsufficientFunds)
}

func TestSplit(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 50))

	stackShoe(g,
		card("8"), card("10"),
		card("8"), card("7"),
		card("10"), // hit on the first split hand, 18
		card("5"),  // hit on the second, 13
	)
	require.NoError(t, g.StartRound())

	assert.Contains(t, g.Turn.ValidMoves, MoveSplit)
	require.NoError(t, g.Split())

	p := g.Players[0]
	require.Len(t, p.Hands, 2)
	assert.Equal(t, 50, p.Hands[0].Bet)
	assert.Equal(t, 50, p.Hands[1].Bet)
	assert.Equal(t, 900, p.Balance, "split debits a second bet")
	assert.Equal(t, 0, g.Turn.HandIdx, "cursor stays on the first hand")

	require.NoError(t, g.Hit())   // first hand 18
	require.NoError(t, g.Stand()) // cursor moves to the split hand
	assert.Equal(t, 1, g.Turn.HandIdx)
	require.NoError(t, g.Hit())   // second hand 13
	require.NoError(t, g.Stand()) // dealer plays

	assert.Equal(t, PhaseResults, g.Phase)
	assert.Equal(t, ResultWin, p.Hands[0].Result, "18 beats dealer 17")
	assert.Equal(t, ResultLose, p.Hands[1].Result)
	assert.Equal(t, 1000, p.Balance)
}

func TestSplitRequiresEqualRankPair(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 50))

	stackShoe(g,
		card("king"), card("10"),
		card("queen"), card("7"),
	)
	require.NoError(t, g.StartRound())
	// both worth 10 but ranks differ
	assert.ErrorIs(t, g.Split(), ErrCannotSplit)
}

func TestSplitAcesReenterAsEleven(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 50))

	stackShoe(g,
		card("ace"), card("10"),
		card("ace"), card("7"),
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Split())

	p := g.Players[0]
	assert.Equal(t, 11, p.Hands[0].Points)
	assert.Equal(t, 1, p.Hands[0].FullAces)
	assert.Equal(t, 11, p.Hands[1].Points)
	assert.Equal(t, 1, p.Hands[1].FullAces)
}

func TestInsurance(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	// dealer shows an ace and has a natural underneath
	stackShoe(g,
		card("king"), card("ace"),
		card("9"), card("king"),
	)
	require.NoError(t, g.StartRound())
	assert.True(t, g.InsuranceOffered)

	require.NoError(t, g.Insurance(true))
	assert.Equal(t, 850, g.Players[0].Balance, "premium is half the bet")
	assert.ErrorIs(t, g.Insurance(true), ErrAlreadyInsured)

	require.NoError(t, g.Stand())
	assert.Equal(t, PhaseResults, g.Phase)
	assert.Len(t, g.Dealer.Cards, 2, "dealer draws nothing on a natural")
	// insurance pays 2:1 on the 50 premium, main bet loses 19 vs 21
	assert.Equal(t, ResultLose, g.Players[0].Hands[0].Result)
	assert.Equal(t, 1000, g.Players[0].Balance)
}

func TestInsuranceDeclineIsFree(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("ace"),
		card("9"), card("6"),
	)
	require.NoError(t, g.StartRound())
	require.NoError(t, g.Insurance(false))
	assert.Equal(t, 900, g.Players[0].Balance)
	assert.False(t, g.Players[0].Hands[0].Insured)
}

func TestInsuranceNotOffered(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("10"),
		card("9"), card("7"),
	)
	require.NoError(t, g.StartRound())
	assert.False(t, g.InsuranceOffered)
	assert.ErrorIs(t, g.Insurance(true), ErrInsuranceNotOffered)
}

func TestInactivePlayerIsStoodThrough(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	g.ConnectPlayer("bob", 1000)
	require.NoError(t, g.Bet("alice", 100))
	require.NoError(t, g.Bet("bob", 100))

	stackShoe(g,
		card("king"), card("10"), card("9"),
		card("9"), card("9"), card("8"),
	)
	require.NoError(t, g.StartRound())

	// alice drops mid-turn; standing her hand moves play to bob
	g.MarkInactive("alice")
	require.NoError(t, g.Stand())
	cur, err := g.CurrentPlayer()
	require.NoError(t, err)
	assert.Equal(t, "bob", cur.Nick)

	// bob stands; alice's frozen 19 still settles against dealer 17
	require.NoError(t, g.Stand())
	assert.Equal(t, ResultWin, g.Players[0].Hands[0].Result)
}

func TestResetRoundAndPrune(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	g.ConnectPlayer("bob", 1000)
	require.NoError(t, g.Bet("alice", 100))
	require.NoError(t, g.Bet("bob", 100))

	stackShoe(g,
		card("king"), card("10"), card("9"),
		card("9"), card("9"), card("8"),
	)
	require.NoError(t, g.StartRound())
	g.MarkInactive("bob")
	// alice stands, bob is inactive and skipped, the dealer plays
	require.NoError(t, g.Stand())
	require.Equal(t, PhaseResults, g.Phase)

	// spectator joins during results and is promoted on reset
	g.ConnectPlayer("carol", 1000)

	g.ResetRound()
	pruned := g.PruneInactive()
	require.Len(t, pruned, 1)
	assert.Equal(t, "bob", pruned[0].Nick)

	assert.Equal(t, PhaseBetting, g.Phase)
	require.Len(t, g.Players, 2)
	for _, p := range g.Players {
		assert.Equal(t, StateActive, p.State)
		assert.False(t, p.HasBet())
		assert.Len(t, p.Hands, 1)
		assert.Len(t, p.Hands[0].Cards, 0)
	}
	assert.Len(t, g.Dealer.Cards, 0)
	assert.Equal(t, 4*52, g.shoe.Size(), "fresh shoe every round")
}

func TestSeatNumbersAreStable(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	g.ConnectPlayer("bob", 1000)
	g.MarkInactive("alice")
	g.PruneInactive()

	p, err := g.ConnectPlayer("carol", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Players[0].Seat, "bob keeps his seat number")
	assert.Equal(t, 2, p.Seat, "seat numbers are never reused")
}

func TestSnapshotMasksDealerHoleCard(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("10"),
		card("5"), card("7"),
	)
	require.NoError(t, g.StartRound())

	snap := g.Snapshot()
	require.Len(t, snap.Dealer.Cards, 1, "only the up-card is visible")
	assert.Equal(t, "10", snap.Dealer.Cards[0].Rank)
	assert.Equal(t, 1, snap.Dealer.Hidden)
	assert.Equal(t, 10, snap.Dealer.Points)

	require.NoError(t, g.Stand())
	snap = g.Snapshot()
	assert.GreaterOrEqual(t, len(snap.Dealer.Cards), 2, "results reveal the full hand")
	assert.Equal(t, 0, snap.Dealer.Hidden)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	g := newTestGame()
	g.ConnectPlayer("alice", 1000)
	require.NoError(t, g.Bet("alice", 100))

	stackShoe(g,
		card("king"), card("10"),
		card("5"), card("7"),
		card("2"),
	)
	require.NoError(t, g.StartRound())

	snap := g.Snapshot()
	before := len(snap.Players[0].Hands[0].Cards)
	require.NoError(t, g.Hit())
	assert.Equal(t, before, len(snap.Players[0].Hands[0].Cards), "snapshot must not alias live hands")
}
