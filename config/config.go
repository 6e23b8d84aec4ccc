package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wfunc/jumpgame/match"
	"github.com/wfunc/jumpgame/world"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Arena    ArenaConfig    `mapstructure:"arena"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	Heartbeat      time.Duration `mapstructure:"heartbeat"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // memory, postgres or gorm
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type GameConfig struct {
	SoftJumpTimeout time.Duration `mapstructure:"soft_jump_timeout"`
	HardJumpTimeout time.Duration `mapstructure:"hard_jump_timeout"`
	ExitPoolTimeout time.Duration `mapstructure:"exit_pool_timeout"`
	StartCountdown  time.Duration `mapstructure:"start_countdown"`
	PoolSizeLimit   int           `mapstructure:"pool_size_limit"`
	RespawnDistance float64       `mapstructure:"respawn_distance"`
}

// ArenaConfig describes the arena created at boot. Positions stored by
// admins override these.
type ArenaConfig struct {
	ID              string          `mapstructure:"id"`
	JumpDestination *world.Position `mapstructure:"jump_destination"`
	WaitPosition    *world.Position `mapstructure:"wait_position"`
	RespawnPosition *world.Position `mapstructure:"respawn_position"`
	PoolOrigin      *world.Cell     `mapstructure:"pool_origin"`
	Liquid          []world.Region  `mapstructure:"liquid"`
}

// Settings converts the game section into match settings.
func (c *Config) Settings() match.Settings {
	return match.Settings{
		JumpDestination: c.Arena.JumpDestination,
		WaitPosition:    c.Arena.WaitPosition,
		RespawnPosition: c.Arena.RespawnPosition,
		RespawnDistance: c.Game.RespawnDistance,
		SoftJumpTimeout: c.Game.SoftJumpTimeout,
		HardJumpTimeout: c.Game.HardJumpTimeout,
		ExitPoolTimeout: c.Game.ExitPoolTimeout,
		StartCountdown:  c.Game.StartCountdown,
	}
}

func setDefaults(v *viper.Viper) {
	d := match.DefaultSettings()

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "jumpgame")

	v.SetDefault("game.soft_jump_timeout", d.SoftJumpTimeout)
	v.SetDefault("game.hard_jump_timeout", d.HardJumpTimeout)
	v.SetDefault("game.exit_pool_timeout", d.ExitPoolTimeout)
	v.SetDefault("game.start_countdown", d.StartCountdown)
	v.SetDefault("game.pool_size_limit", 1000)
	v.SetDefault("game.respawn_distance", d.RespawnDistance)

	v.SetDefault("arena.id", "default")
}

// LoadConfig reads config.yaml from path. A .env file next to it is loaded
// into the environment first; JUMPGAME_* variables override file values
// (JUMPGAME_DATABASE_DRIVER=gorm).
func LoadConfig(path string) (config *Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("jumpgame")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	return
}
