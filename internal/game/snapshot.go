package game

// DealerView is the dealer hand as broadcast to clients. During PLAYING the
// hole card is masked: only the up-card and a hidden count are visible, and
// Points covers the up-card alone.
type DealerView struct {
	Cards  []Card `json:"cards"`
	Hidden int    `json:"hidden"`
	Points int    `json:"points"`
}

// Snapshot is a deep copy of the observable game state, taken under the
// room lock so no client ever sees a half-applied mutation.
type Snapshot struct {
	Phase            Phase     `json:"phase"`
	Players          []*Player `json:"players"`
	Dealer           DealerView `json:"dealer"`
	Turn             Turn      `json:"turn"`
	InsuranceOffered bool      `json:"insurance_offered"`
}

func (g *Game) Snapshot() Snapshot {
	players := make([]*Player, len(g.Players))
	for i, p := range g.Players {
		hands := make([]*Hand, len(p.Hands))
		for j, h := range p.Hands {
			hc := *h
			hc.Cards = append([]Card(nil), h.Cards...)
			hands[j] = &hc
		}
		pc := *p
		pc.Hands = hands
		players[i] = &pc
	}

	var dealer DealerView
	if g.Phase == PhasePlaying && len(g.Dealer.Cards) > 0 {
		dealer.Cards = []Card{g.Dealer.Cards[0]}
		dealer.Hidden = len(g.Dealer.Cards) - 1
		dealer.Points = g.Dealer.Cards[0].Points
	} else {
		dealer.Cards = append([]Card(nil), g.Dealer.Cards...)
		dealer.Points = g.Dealer.Points
	}

	return Snapshot{
		Phase:            g.Phase,
		Players:          players,
		Dealer:           dealer,
		Turn:             g.Turn,
		InsuranceOffered: g.InsuranceOffered,
	}
}
