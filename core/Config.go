package core

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"path/filepath"
	"time"

	"PongOnline/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultEnv = "local"

type Config struct {
	Env               string
	PropertiesDir     string
	HostIP            string
	HostPort          string
	TickInterval      time.Duration
	WinningScore      int
	MessageRate       float64
	MessageBurst      int
	HandshakeRate     float64
	TrustProxy        bool // 在反向代理後面時才讀 X-Forwarded-For
	DeadlockDetection bool
}

// BindFlags 註冊伺服器的命令列參數，對應到 properties 的 key
func BindFlags(flags *pflag.FlagSet) {
	flags.String("env", "", "properties/<env>.properties 的 env，預設讀 PONG_ENV")
	flags.String("config-dir", "properties", "properties 檔案所在的資料夾")
	flags.String("host", "", "監聽的 IP")
	flags.String("port", "", "監聽的 port")
	flags.Int("tick-ms", 0, "模擬每個 tick 的毫秒數")
	flags.Int("winning-score", -1, "先拿到幾分獲勝，0 表示不結束")
}

var flagKeys = map[string]string{
	"env":           "ENV",
	"config-dir":    "CONFIG_DIR",
	"host":          "HOST_IP",
	"port":          "HOST_PORT",
	"tick-ms":       "TICK_INTERVAL_MS",
	"winning-score": "WINNING_SCORE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", DefaultEnv)
	v.SetDefault("CONFIG_DIR", "properties")
	v.SetDefault("HOST_IP", "0.0.0.0")
	v.SetDefault("HOST_PORT", "8000")
	v.SetDefault("TICK_INTERVAL_MS", 33)
	v.SetDefault("WINNING_SCORE", 5)
	v.SetDefault("MESSAGE_RATE", 120)
	v.SetDefault("MESSAGE_BURST", 60)
	v.SetDefault("HANDSHAKE_RATE", 5)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("DEADLOCK_DETECTION", false)
}

// LoadConfig 優先順序：命令列參數 > PONG_ 環境變數 > properties 檔 > 預設值
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PONG")
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	env := cast.ToString(v.Get("ENV"))
	dir := cast.ToString(v.Get("CONFIG_DIR"))

	v.SetConfigFile(filepath.Join(dir, env+".properties"))
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read properties %s: %w", env, err)
		}
		logger.Log.WithFields(logrus.Fields{"env": env, "dir": dir}).Warn(logger.ConfigPropertiesMissingMsg)
	}

	cfg := &Config{
		Env:               env,
		PropertiesDir:     dir,
		HostIP:            cast.ToString(v.Get("HOST_IP")),
		HostPort:          cast.ToString(v.Get("HOST_PORT")),
		TickInterval:      time.Duration(cast.ToInt(v.Get("TICK_INTERVAL_MS"))) * time.Millisecond,
		WinningScore:      cast.ToInt(v.Get("WINNING_SCORE")),
		MessageRate:       cast.ToFloat64(v.Get("MESSAGE_RATE")),
		MessageBurst:      cast.ToInt(v.Get("MESSAGE_BURST")),
		HandshakeRate:     cast.ToFloat64(v.Get("HANDSHAKE_RATE")),
		TrustProxy:        cast.ToBool(v.Get("TRUST_PROXY")),
		DeadlockDetection: cast.ToBool(v.Get("DEADLOCK_DETECTION")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HostPort == "" {
		return errors.New("HOST_PORT is empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL_MS must be positive, got %s", c.TickInterval)
	}
	if c.WinningScore < 0 {
		return fmt.Errorf("WINNING_SCORE must not be negative, got %d", c.WinningScore)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.HostIP, c.HostPort)
}

func (c *Config) RoomSettings() RoomSettings {
	return RoomSettings{
		Canvas:       DefaultCanvas(),
		TickInterval: c.TickInterval,
		WinningScore: c.WinningScore,
	}
}
