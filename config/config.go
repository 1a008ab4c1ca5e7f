package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	Room struct {
		TTLSeconds    int
		SweepInterval int // seconds, memory registry only
	}
}

var C Config

// Load reads config/config.yaml when present; every key has a default
// and a CARDPARLOR_* env override (e.g. CARDPARLOR_SERVER_PORT).
func Load() {
	viper.SetDefault("server.port", ":4000")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("room.ttlseconds", 3600)
	viper.SetDefault("room.sweepinterval", 60)

	viper.SetEnvPrefix("CARDPARLOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigFile("config/config.yaml")
	if err := viper.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		// absent file means defaults; anything else is worth a line
		log.Printf("config file skipped: %v", err)
	}
	if err := viper.Unmarshal(&C); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
}
