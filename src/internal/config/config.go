package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs     LogsSettings     `mapstructure:"logs"`
	App      Application      `mapstructure:"app"`
	Database Database         `mapstructure:"database"`
	Queue    QueueConfig      `mapstructure:"queue"`
	Redis    Redis            `mapstructure:"redis"`
	Security SecuritySettings `mapstructure:"security"`
	Server   ServerSettings   `mapstructure:"server"`
	Cache    CacheConfig      `mapstructure:"cache"`
	Realtime RealtimeConfig   `mapstructure:"realtime"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name    string `mapstructure:"name"`
	Timeout int    `mapstructure:"timeout"`
	Version string `mapstructure:"version"`
}

type Database struct {
	Url         string      `mapstructure:"url"`
	DbName      string      `mapstructure:"dbname"`
	Collections Collections `mapstructure:"collections"`
	Timeout     int         `mapstructure:"timeout"`
}

type Collections struct {
	Users          string `mapstructure:"users"`
	Sessions       string `mapstructure:"sessions"`
	Projects       string `mapstructure:"projects"`
	ProjectMembers string `mapstructure:"project-members"`
	Tasks          string `mapstructure:"tasks"`
	Comments       string `mapstructure:"comments"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url               string `mapstructure:"url"`
	Exchange          string `mapstructure:"exchange"`
	ExchangeType      string `mapstructure:"exchange-type"`
	NotificationQueue string `mapstructure:"notification-queue"`
	RoutingKey        string `mapstructure:"routing-key"`
	ReconnectDelay    int    `mapstructure:"reconnect-delay"`
	Timeout           int    `mapstructure:"timeout"`
	Durable           bool   `mapstructure:"durable"`
	AutoDelete        bool   `mapstructure:"auto-delete"`
	Internal          bool   `mapstructure:"internal"`
	NoWait            bool   `mapstructure:"no-wait"`
	Exclusive         bool   `mapstructure:"exclusive"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type SecuritySettings struct {
	JwtKey             string `mapstructure:"jwt-key"`
	AccessTokenMinutes int    `mapstructure:"access-token-minutes"`
	RefreshTokenHours  int    `mapstructure:"refresh-token-hours"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

type CacheConfig struct {
	SessionExpirationMinutes int `mapstructure:"session-expiration-minutes"`
}

type RealtimeConfig struct {
	SendBufferSize       int   `mapstructure:"send-buffer-size"`
	AuthTimeoutSeconds   int   `mapstructure:"auth-timeout-seconds"`
	TypingTimeoutSeconds int   `mapstructure:"typing-timeout-seconds"`
	SweepIntervalSeconds int   `mapstructure:"sweep-interval-seconds"`
	HeartbeatSeconds     int   `mapstructure:"heartbeat-seconds"`
	MaxMessageBytes      int64 `mapstructure:"max-message-bytes"`
}

func Load() *Configuration {
	cfg := read()
	logrus.Info("Configuration loaded")

	// Override with environment variables
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey != "" {
		cfg.Security.JwtKey = jwtKey
	}

	port := os.Getenv("PORT")
	if port != "" {
		cfg.Server.Port = port
	}

	return cfg
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	var config Configuration

	err := viper.ReadInConfig()
	if err != nil {
		logrus.Panicf("Error reading config file, %s", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Panicf("Error unmarshalling config file, %s", err)
	}

	return &config
}
