package room

import (
	"errors"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"

	"blackjack/internal/game"
	"blackjack/internal/session"
	"blackjack/internal/utils"
	"blackjack/internal/websocket"
)

const (
	kickNoBet      = "did not place a bet"
	kickInactivity = "removed for inactivity"
)

// Config carries the per-room timing knobs.
type Config struct {
	TurnTimeout  time.Duration
	BetTimeout   time.Duration
	RevealDelay  time.Duration // per hidden dealer card in RESULTS
	ResultsDelay time.Duration // fixed display tail after the reveal
}

// Ledger receives one row per settled hand. Optional; nil disables it.
type Ledger interface {
	RecordSettlement(roomID, nick string, bet int, result game.HandResult, payout int) error
}

// actionRequest is the payload of a "your_turn" event.
type actionRequest struct {
	AllowedMoves     []game.Move `json:"allowed_moves"`
	Deadline         time.Time   `json:"deadline"`
	InsuranceOffered bool        `json:"insurance_offered,omitempty"`
}

type kickNotice struct {
	Reason string `json:"reason"`
	RoomID string `json:"room_id"`
}

// Room drives one Game against a set of live sessions: phase transitions,
// per-phase timers, authorization, disconnect/reconnect/kick and state
// fan-out. Every mutation runs to completion under mu before the next one
// is admitted; the room is the single writer of its game.
type Room struct {
	ID string

	mu       sync.Mutex
	game     *game.Game
	hub      websocket.HubInterface
	cfg      Config
	log      *charmlog.Logger
	sessions map[string]*session.Session // nick -> seated identity
	kicked   map[string]string           // nick -> pending kick reason

	// At most one timer is outstanding at any time. timerGen invalidates
	// in-flight fires after a cancel.
	timer    *time.Timer
	timerGen int

	settled   bool // settlement rows written for the current round
	destroyed bool

	onEmpty   func(roomID string)
	onRemoved func(s *session.Session) // leave or kick: balance handed back
	ledger    Ledger
}

func New(id string, g *game.Game, hub websocket.HubInterface, cfg Config, onEmpty func(string), onRemoved func(*session.Session), ledger Ledger) *Room {
	return &Room{
		ID:        id,
		game:      g,
		hub:       hub,
		cfg:       cfg,
		log:       utils.Log.With("room", shortID(id)),
		sessions:  make(map[string]*session.Session),
		kicked:    make(map[string]string),
		onEmpty:   onEmpty,
		onRemoved: onRemoved,
		ledger:    ledger,
	}
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// HandleJoin seats a new identity or rebinds a reconnecting one. A
// reconnect during a running phase immediately resends the pending action
// request to the rejoined identity only.
func (r *Room) HandleJoin(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return errors.New("room no longer exists")
	}

	nick := s.Nick
	if _, seated := r.game.PlayerByNick(nick); seated {
		// Reconnect: rebind the transport, reactivate the seat. Hands,
		// bets and the turn cursor are untouched.
		r.sessions[nick] = s
		r.game.MarkActive(nick)
		delete(r.kicked, nick)
		r.log.Info("player reconnected", "nick", nick)
	} else {
		if _, err := r.game.ConnectPlayer(nick, s.Balance()); err != nil {
			return err
		}
		r.sessions[nick] = s
		s.SetRoomID(r.ID)
		r.log.Info("player joined", "nick", nick)
	}

	r.broadcastState()
	if r.timer != nil {
		r.resendActionRequest(nick)
	} else {
		r.requestAction()
	}
	return nil
}

// HandleAction authorizes and applies one player action.
func (r *Room) HandleAction(nick string, act websocket.ActionPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	if _, ok := r.sessions[nick]; !ok {
		r.sendError(nick, "you are not seated in this room")
		return
	}

	switch r.game.Phase {
	case game.PhaseBetting:
		r.handleBet(nick, act)
	case game.PhasePlaying:
		r.handleMove(nick, act)
	default:
		r.sendError(nick, "no actions are accepted while results are shown")
	}
}

func (r *Room) handleBet(nick string, act websocket.ActionPayload) {
	if game.Move(act.Action) != game.MoveBet {
		r.sendError(nick, "only BET is accepted during the betting phase")
		return
	}
	if err := r.game.Bet(nick, act.Amount); err != nil {
		r.sendError(nick, err.Error())
		return
	}
	r.log.Info("bet placed", "nick", nick, "amount", act.Amount)
	r.broadcastState()

	if r.game.AllBetsPlaced() {
		r.stopTimer()
		r.startRound()
	}
}

func (r *Room) handleMove(nick string, act websocket.ActionPayload) {
	current, err := r.game.CurrentPlayer()
	if err != nil {
		r.log.Error("no current player for incoming action", "err", err)
		r.sendError(nick, "internal error")
		return
	}
	if current.Nick != nick {
		r.sendError(nick, "it is not your turn")
		return
	}

	move := game.Move(act.Action)

	// Insurance is a side action: it never advances the turn and leaves
	// the turn timer running.
	if move == game.MoveInsurance {
		accept := act.Accept != nil && *act.Accept
		if err := r.game.Insurance(accept); err != nil {
			r.sendError(nick, err.Error())
			return
		}
		r.log.Info("insurance decision", "nick", nick, "accepted", accept)
		r.broadcastState()
		return
	}

	if !moveAllowed(r.game.Turn.ValidMoves, move) {
		r.sendError(nick, "you can not perform this action: "+string(move))
		return
	}

	switch move {
	case game.MoveHit:
		err = r.game.Hit()
	case game.MoveStand:
		err = r.game.Stand()
	case game.MoveDouble:
		err = r.game.Double()
	case game.MoveSplit:
		err = r.game.Split()
	default:
		r.sendError(nick, "unknown action: "+string(move))
		return
	}
	if err != nil {
		r.sendError(nick, err.Error())
		return
	}

	r.log.Info("action applied", "nick", nick, "action", move)
	r.stopTimer()
	r.afterMutation()
}

// HandleLeave is a voluntary departure: the identity's balance is handed
// back to the session and the seat is released (deferred if a hand is in
// progress).
func (r *Room) HandleLeave(nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	s, ok := r.sessions[nick]
	if !ok {
		return
	}
	p, seated := r.game.PlayerByNick(nick)
	if !seated {
		return
	}

	s.SetBalance(p.Balance)
	s.SetRoomID("")
	if r.onRemoved != nil {
		r.onRemoved(s)
	}
	delete(r.sessions, nick)
	r.log.Info("player left", "nick", nick)

	if r.game.Phase == game.PhasePlaying {
		// Seat removal would disturb the live hand; stand the player
		// through and prune at the next safe phase.
		r.game.MarkInactive(nick)
		if current, err := r.game.CurrentPlayer(); err == nil && current.Nick == nick {
			r.stopTimer()
			if err := r.game.Stand(); err != nil {
				r.log.Error("auto-stand on leave failed", "nick", nick, "err", err)
			}
			r.afterMutation()
			return
		}
	} else {
		r.game.MarkInactive(nick)
		r.pruneInactive()
	}

	r.broadcastState()
	if len(r.sessions) == 0 {
		r.destroy()
	}
}

// HandleDisconnect detaches the transport but keeps the seat and hand
// state intact so a same-phase reconnect resumes exactly where it left
// off. The pending timer keeps running.
func (r *Room) HandleDisconnect(nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	if _, ok := r.sessions[nick]; !ok {
		return
	}
	r.game.MarkInactive(nick)
	r.kicked[nick] = kickInactivity
	r.log.Info("player disconnected", "nick", nick)
	r.broadcastState()
}

// requestAction dispatches on the game phase: betting requests fan out to
// everyone with a shared deadline, playing targets the turn owner, results
// runs a display timer sized by the dealer reveal. Assumes mu is held.
func (r *Room) requestAction() {
	r.pruneInactive()
	if len(r.sessions) == 0 {
		r.destroy()
		return
	}

	switch r.game.Phase {
	case game.PhaseBetting:
		deadline := time.Now().Add(r.cfg.BetTimeout)
		r.game.Turn.Deadline = deadline
		req := actionRequest{AllowedMoves: []game.Move{game.MoveBet}, Deadline: deadline}
		for nick := range r.sessions {
			if p, ok := r.game.PlayerByNick(nick); ok && p.State == game.StateActive && !p.HasBet() {
				r.hub.SendToPlayer(nick, websocket.OutgoingMessage{Event: "your_turn", Data: req})
			}
		}
		r.log.Info("waiting for bets", "deadline", deadline)
		r.startTimer(r.cfg.BetTimeout, r.onBetTimeout)

	case game.PhasePlaying:
		current, err := r.game.CurrentPlayer()
		if err != nil {
			r.log.Error("FATAL: turn cursor out of range, stalling room", "err", err)
			return
		}
		if _, ok := r.sessions[current.Nick]; !ok {
			// Roster/session desync must never happen under correct
			// bookkeeping. Stall rather than act with undefined semantics.
			r.log.Error("FATAL: current turn player has no bound session, stalling room", "nick", current.Nick)
			return
		}
		deadline := time.Now().Add(r.cfg.TurnTimeout)
		r.game.Turn.Deadline = deadline
		r.hub.SendToPlayer(current.Nick, websocket.OutgoingMessage{
			Event: "your_turn",
			Data: actionRequest{
				AllowedMoves:     r.game.Turn.ValidMoves,
				Deadline:         deadline,
				InsuranceOffered: r.game.InsuranceOffered,
			},
		})
		r.log.Info("waiting for action", "nick", current.Nick, "moves", r.game.Turn.ValidMoves)
		r.startTimer(r.cfg.TurnTimeout, r.onTurnTimeout)

	case game.PhaseResults:
		d := r.cfg.RevealDelay*time.Duration(r.hiddenDealerCards()) + r.cfg.ResultsDelay
		r.log.Info("showing results", "for", d)
		r.startTimer(d, r.onResultsTimeout)
	}
}

// hiddenDealerCards counts the cards revealed one at a time when RESULTS
// opens (everything past the up-card).
func (r *Room) hiddenDealerCards() int {
	if n := len(r.game.Dealer.Cards); n > 1 {
		return n - 1
	}
	return 0
}

// resendActionRequest re-sends the current pending request to one identity
// after a reconnect, without touching the running timer.
func (r *Room) resendActionRequest(nick string) {
	switch r.game.Phase {
	case game.PhaseBetting:
		if p, ok := r.game.PlayerByNick(nick); ok && p.State == game.StateActive && !p.HasBet() {
			r.hub.SendToPlayer(nick, websocket.OutgoingMessage{
				Event: "your_turn",
				Data:  actionRequest{AllowedMoves: []game.Move{game.MoveBet}, Deadline: r.game.Turn.Deadline},
			})
		}
	case game.PhasePlaying:
		if current, err := r.game.CurrentPlayer(); err == nil && current.Nick == nick {
			r.hub.SendToPlayer(nick, websocket.OutgoingMessage{
				Event: "your_turn",
				Data: actionRequest{
					AllowedMoves:     r.game.Turn.ValidMoves,
					Deadline:         r.game.Turn.Deadline,
					InsuranceOffered: r.game.InsuranceOffered,
				},
			})
		}
	}
}

// startRound forces the BETTING -> PLAYING transition.
func (r *Room) startRound() {
	if err := r.game.StartRound(); err != nil {
		if errors.Is(err, game.ErrNoActivePlayers) {
			// Nobody is dealt in; re-enter betting.
			r.broadcastState()
			r.requestAction()
			return
		}
		r.log.Error("failed to start round", "err", err)
		return
	}
	r.log.Info("cards dealt", "players", r.game.NumPlayers())
	r.afterMutation()
}

// afterMutation finishes an accepted mutation: settlement bookkeeping when
// the round just closed, then broadcast and the next action request.
func (r *Room) afterMutation() {
	if r.game.Phase == game.PhaseResults && !r.settled {
		r.settled = true
		r.recordSettlement()
	}
	r.broadcastState()
	r.requestAction()
}

func (r *Room) onBetTimeout(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || gen != r.timerGen || r.timer == nil {
		return
	}
	r.timer = nil

	for _, nick := range r.game.PlayersWithoutBet() {
		r.log.Warn("kicking player: no bet placed", "nick", nick)
		r.game.MarkInactive(nick)
		r.kicked[nick] = kickNoBet
	}
	r.pruneInactive()
	if len(r.sessions) == 0 {
		r.destroy()
		return
	}
	r.startRound()
}

func (r *Room) onTurnTimeout(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || gen != r.timerGen || r.timer == nil {
		return
	}
	r.timer = nil

	current, err := r.game.CurrentPlayer()
	if err != nil {
		r.log.Error("turn timeout with no current player", "err", err)
		return
	}
	r.log.Warn("turn timed out, standing player", "nick", current.Nick)
	r.game.MarkInactive(current.Nick)
	r.kicked[current.Nick] = kickInactivity
	if err := r.game.Stand(); err != nil {
		r.log.Error("auto-stand failed", "err", err)
		return
	}
	r.afterMutation()
}

func (r *Room) onResultsTimeout(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed || gen != r.timerGen || r.timer == nil {
		return
	}
	r.timer = nil
	r.settled = false

	r.game.ResetRound()
	r.pruneInactive()
	if len(r.sessions) == 0 {
		r.destroy()
		return
	}
	r.log.Info("new betting round")
	r.broadcastState()
	r.requestAction()
}

// pruneInactive physically removes inactive seats, never during PLAYING.
// Each pruned identity gets its balance back on the session and a terminal
// kick notice.
func (r *Room) pruneInactive() {
	if r.game.Phase == game.PhasePlaying {
		return
	}
	for _, p := range r.game.PruneInactive() {
		nick := p.Nick
		reason := r.kicked[nick]
		if reason == "" {
			reason = kickInactivity
		}
		delete(r.kicked, nick)

		if s, ok := r.sessions[nick]; ok {
			s.SetBalance(p.Balance)
			s.SetRoomID("")
			if r.onRemoved != nil {
				r.onRemoved(s)
			}
			delete(r.sessions, nick)
		}
		r.hub.SendToPlayer(nick, websocket.OutgoingMessage{
			Event: "kick",
			Data:  kickNotice{Reason: reason, RoomID: r.ID},
		})
		r.log.Info("pruned inactive player", "nick", nick, "reason", reason)
	}
}

// recordSettlement appends one ledger row per settled hand.
func (r *Room) recordSettlement() {
	if r.ledger == nil {
		return
	}
	for _, p := range r.game.Players {
		for _, h := range p.Hands {
			if h.Bet == 0 || h.Result == "" {
				continue
			}
			if err := r.ledger.RecordSettlement(r.ID, p.Nick, h.Bet, h.Result, payoutFor(h)); err != nil {
				r.log.Error("ledger write failed", "nick", p.Nick, "err", err)
			}
		}
	}
}

func payoutFor(h *game.Hand) int {
	switch h.Result {
	case game.ResultBlackjack:
		return int(float64(h.Bet)*2.5 + 0.5)
	case game.ResultWin:
		return 2 * h.Bet
	case game.ResultPush:
		return h.Bet
	default:
		return 0
	}
}

// broadcastState fans the current snapshot out to every identity still in
// the broadcast group (everyone not marked inactive). The snapshot is a
// deep copy taken under mu, so it can never mix two mutations.
func (r *Room) broadcastState() {
	snap := r.game.Snapshot()
	nicks := make([]string, 0, len(r.sessions))
	for nick := range r.sessions {
		if p, ok := r.game.PlayerByNick(nick); ok && p.State == game.StateInactive {
			continue
		}
		nicks = append(nicks, nick)
	}
	r.hub.BroadcastToPlayers(nicks, websocket.OutgoingMessage{Event: "game", Data: snap})
}

func (r *Room) sendError(nick, msg string) {
	r.hub.SendToPlayer(nick, websocket.OutgoingMessage{Event: "error", Data: msg})
}

// startTimer arms the room's single timer. Arming while one is pending is
// a programming error and is refused so timers cannot leak.
func (r *Room) startTimer(d time.Duration, fn func(gen int)) {
	if r.timer != nil {
		r.log.Error("BUG: timer already pending, refusing to start another")
		return
	}
	r.timerGen++
	gen := r.timerGen
	r.timer = time.AfterFunc(d, func() { fn(gen) })
}

// stopTimer cancels the pending timer. Cancelling an already fired or
// already cancelled timer is a no-op.
func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++
}

// destroy tears the room down exactly once: cancels any timer and notifies
// the owner for removal from the registry. Assumes mu is held.
func (r *Room) destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.stopTimer()
	r.log.Info("room empty, destroying")
	if r.onEmpty != nil {
		go r.onEmpty(r.ID)
	}
}

// Info is the lobby view of a room.
type Info struct {
	ID      string     `json:"id"`
	Players int        `json:"players"`
	Seats   int        `json:"seats"`
	Phase   game.Phase `json:"phase"`
}

func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{
		ID:      r.ID,
		Players: r.game.NumPlayers(),
		Seats:   r.game.MaxSeats(),
		Phase:   r.game.Phase,
	}
}

func moveAllowed(moves []game.Move, m game.Move) bool {
	for _, v := range moves {
		if v == m {
			return true
		}
	}
	return false
}
