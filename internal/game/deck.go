package game

import (
	"errors"
	"math/rand"
)

// Card ranks use the wire names the client renders ("2".."10", "jack",
// "queen", "king", "ace"). Points carry the blackjack value at draw time;
// aces enter as 11 and are downgraded by Hand bookkeeping.
type Card struct {
	Rank   string `json:"rank"`
	Suit   string `json:"suit"`
	Points int    `json:"points"`
}

var suits = []string{"hearts", "diamonds", "spades", "clubs"}

var ranks = []struct {
	name   string
	points int
}{
	{"2", 2}, {"3", 3}, {"4", 4}, {"5", 5}, {"6", 6}, {"7", 7},
	{"8", 8}, {"9", 9}, {"10", 10},
	{"jack", 10}, {"queen", 10}, {"king", 10},
	{"ace", 11},
}

// ErrOutOfCards is returned when a draw is attempted on an empty shoe.
// The engine sizes the shoe so this is unreachable within one round.
var ErrOutOfCards = errors.New("shoe is out of cards")

// Shoe is a draw-from-the-end stack of numDecks shuffled 52-card decks.
type Shoe struct {
	cards []Card
	rng   *rand.Rand
}

func NewShoe(numDecks int, rng *rand.Rand) *Shoe {
	s := &Shoe{
		cards: make([]Card, 0, numDecks*52),
		rng:   rng,
	}
	for i := 0; i < numDecks; i++ {
		for _, suit := range suits {
			for _, r := range ranks {
				s.cards = append(s.cards, Card{Rank: r.name, Suit: suit, Points: r.points})
			}
		}
	}
	s.shuffle()
	return s
}

func (s *Shoe) shuffle() {
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
}

// Draw pops the top card of the shoe.
func (s *Shoe) Draw() (Card, error) {
	if len(s.cards) == 0 {
		return Card{}, ErrOutOfCards
	}
	c := s.cards[len(s.cards)-1]
	s.cards = s.cards[:len(s.cards)-1]
	return c, nil
}

// Size returns how many cards remain in the shoe.
func (s *Shoe) Size() int {
	return len(s.cards)
}
