package storage

import (
	"database/sql"

	_ "github.com/lib/pq"

	"blackjack/internal/game"
)

var DB *sql.DB

const settlementsSchema = `
CREATE TABLE IF NOT EXISTS settlements (
	id       BIGSERIAL PRIMARY KEY,
	room_id  TEXT        NOT NULL,
	nick     TEXT        NOT NULL,
	bet      INTEGER     NOT NULL,
	result   TEXT        NOT NULL,
	payout   INTEGER     NOT NULL,
	ts       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func InitPostgres(dsn string) error {
	var err error
	DB, err = sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := DB.Ping(); err != nil {
		return err
	}
	_, err = DB.Exec(settlementsSchema)
	return err
}

// PGLedger appends one row per settled hand. Write-only; nothing in the
// game path ever reads it back.
type PGLedger struct{}

func (PGLedger) RecordSettlement(roomID, nick string, bet int, result game.HandResult, payout int) error {
	_, err := DB.Exec(
		`INSERT INTO settlements (room_id, nick, bet, result, payout) VALUES ($1, $2, $3, $4, $5)`,
		roomID, nick, bet, string(result), payout,
	)
	return err
}
