package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret string
	}
	Ledger struct {
		DSN string // optional postgres settlement ledger, empty disables it
	}
	Game struct {
		NumDecks       int
		MaxSeats       int
		OpeningBalance int
		TurnTimeout    time.Duration
		BetTimeout     time.Duration
		RevealDelay    time.Duration
		ResultsDelay   time.Duration
	}
}

var C Config

func Load() {
	viper.SetConfigFile("config/config.yaml")

	viper.SetDefault("game.numdecks", 4)
	viper.SetDefault("game.maxseats", 5)
	viper.SetDefault("game.openingbalance", 1000)
	viper.SetDefault("game.turntimeout", "15s")
	viper.SetDefault("game.bettimeout", "30s")
	viper.SetDefault("game.revealdelay", "1s")
	viper.SetDefault("game.resultsdelay", "5s")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	if err := viper.Unmarshal(&C); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
}
