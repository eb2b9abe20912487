package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
	Debate DebateConfig `mapstructure:"debate"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DBConfig 資料庫連線設定，driver 可為 postgres 或 sqlite
type DBConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DebateConfig 辯論規則設定。服務在建構時以值的方式接收，之後不再變動。
type DebateConfig struct {
	KFactor                 float64       `mapstructure:"k_factor"`
	InitialRating           int           `mapstructure:"initial_rating"`
	InstantWinThreshold     float64       `mapstructure:"instant_win_threshold"`
	RequiredConsecutiveWins int           `mapstructure:"required_consecutive_wins"`
	MaxRounds               int           `mapstructure:"max_rounds"`
	VotingWindow            time.Duration `mapstructure:"voting_window"`
	JudgeVoteWeight         int           `mapstructure:"judge_vote_weight"`
	RegularVoteWeight       int           `mapstructure:"regular_vote_weight"`
	SweepInterval           time.Duration `mapstructure:"sweep_interval"`
	StoreTimeout            time.Duration `mapstructure:"store_timeout"`
}

// DefaultDebateConfig 回傳預設的辯論規則
func DefaultDebateConfig() DebateConfig {
	return DebateConfig{
		KFactor:                 32,
		InitialRating:           1500,
		InstantWinThreshold:     0.70,
		RequiredConsecutiveWins: 3,
		MaxRounds:               5,
		VotingWindow:            24 * time.Hour,
		JudgeVoteWeight:         10,
		RegularVoteWeight:       1,
		SweepInterval:           time.Minute,
		StoreTimeout:            5 * time.Second,
	}
}

// Validate 檢查規則之間的一致性
func (c DebateConfig) Validate() error {
	var errs []error
	if c.KFactor <= 0 {
		errs = append(errs, fmt.Errorf("k_factor must be positive, got %v", c.KFactor))
	}
	if c.InstantWinThreshold <= 0.5 || c.InstantWinThreshold > 1 {
		errs = append(errs, fmt.Errorf("instant_win_threshold must be in (0.5, 1], got %v", c.InstantWinThreshold))
	}
	if c.RequiredConsecutiveWins < 1 {
		errs = append(errs, fmt.Errorf("required_consecutive_wins must be at least 1, got %d", c.RequiredConsecutiveWins))
	}
	if c.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("max_rounds must be at least 1, got %d", c.MaxRounds))
	}
	if c.VotingWindow <= 0 {
		errs = append(errs, fmt.Errorf("voting_window must be positive, got %s", c.VotingWindow))
	}
	if c.RegularVoteWeight < 1 {
		errs = append(errs, fmt.Errorf("regular_vote_weight must be at least 1, got %d", c.RegularVoteWeight))
	}
	if c.JudgeVoteWeight <= c.RegularVoteWeight {
		errs = append(errs, fmt.Errorf("judge_vote_weight (%d) must exceed regular_vote_weight (%d)", c.JudgeVoteWeight, c.RegularVoteWeight))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("store_timeout must be positive, got %s", c.StoreTimeout))
	}
	return errors.Join(errs...)
}

// Load 讀取設定檔並套用環境變數覆寫。path 為空時依序搜尋 . 與 ./pkg/config 下的 config.yaml，
// 找不到設定檔時只使用預設值與環境變數。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEBATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./pkg/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Debate.Validate(); err != nil {
		return nil, fmt.Errorf("invalid debate config: %w", err)
	}
	if config.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultDebateConfig()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "host=localhost user=postgres password=postgres dbname=debate port=5432 sslmode=disable")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("debate.k_factor", d.KFactor)
	v.SetDefault("debate.initial_rating", d.InitialRating)
	v.SetDefault("debate.instant_win_threshold", d.InstantWinThreshold)
	v.SetDefault("debate.required_consecutive_wins", d.RequiredConsecutiveWins)
	v.SetDefault("debate.max_rounds", d.MaxRounds)
	v.SetDefault("debate.voting_window", d.VotingWindow)
	v.SetDefault("debate.judge_vote_weight", d.JudgeVoteWeight)
	v.SetDefault("debate.regular_vote_weight", d.RegularVoteWeight)
	v.SetDefault("debate.sweep_interval", d.SweepInterval)
	v.SetDefault("debate.store_timeout", d.StoreTimeout)
}
