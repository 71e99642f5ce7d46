package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Minio     MinioConfig     `yaml:"minio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Collector CollectorConfig `yaml:"collector"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Users     []User          `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// AnalysisConfig configures the external asynchronous document-analysis
// service (job submission, status polls, paginated results).
type AnalysisConfig struct {
	APIURL       string   `yaml:"api_url"`
	APIToken     string   `yaml:"api_token"`
	FeatureTypes []string `yaml:"feature_types"`
}

// CollectorConfig controls the poll loop and result collection for one job.
type CollectorConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxWaitSeconds      int `yaml:"max_wait_seconds"`
	MaxPages            int `yaml:"max_pages"`         // 0 = unbounded
	MaxPollFailures     int `yaml:"max_poll_failures"` // consecutive transient poll errors tolerated
}

// EntitiesConfig configures the synchronous, size-limited entity-annotation
// service consumed after text aggregation.
type EntitiesConfig struct {
	APIURL       string `yaml:"api_url"`
	APIToken     string `yaml:"api_token"`
	MaxTextBytes int    `yaml:"max_text_bytes"`
	Parallelism  int    `yaml:"parallelism"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	MaxDocuments int `yaml:"max_documents"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if len(cfg.Analysis.FeatureTypes) == 0 {
		cfg.Analysis.FeatureTypes = []string{"TEXT"}
	}
	if cfg.Collector.PollIntervalSeconds == 0 {
		cfg.Collector.PollIntervalSeconds = 5
	}
	if cfg.Collector.MaxWaitSeconds == 0 {
		cfg.Collector.MaxWaitSeconds = 300
	}
	if cfg.Entities.MaxTextBytes == 0 {
		cfg.Entities.MaxTextBytes = 20000
	}
	if cfg.Entities.Parallelism == 0 {
		cfg.Entities.Parallelism = 4
	}
	if cfg.Store.MaxDocuments == 0 {
		cfg.Store.MaxDocuments = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
