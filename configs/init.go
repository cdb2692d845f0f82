package configs

import (
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type configs struct {
	Service  ServiceConfig  `yaml:"service"`
	Logs     LogsConfig     `yaml:"logs"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	S3       S3Config       `yaml:"s3"`
	Secrets  Secrets        `yaml:"secrets"`
}

var Configs configs

func Init(ConfigPath *string) {
	var configPath string
	if ConfigPath == nil || *ConfigPath == "" {
		_, b, _, _ := runtime.Caller(0)
		BasePath := filepath.Dir(b)
		configPath = BasePath + "/file/configs.yaml"
	} else {
		configPath = *ConfigPath
	}
	load(configPath)

	InitLogger()
}

func load(ConfigsPath string) {
	yamlFile, err := os.ReadFile(ConfigsPath)
	if err != nil {
		panic("Failed to read config file: " + err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &Configs)
	if err != nil {
		panic("Failed to parse config file: " + err.Error())
	}
}

// InitForTesting fills Configs with harmless defaults and swaps the global
// logger for a no-op one. Test packages call this instead of Init.
func InitForTesting() {
	Configs = configs{}
	Configs.Service.Name = "dopple-server-test"
	Configs.Secrets.SessionSecret = "test-session-secret"
	Logger = zap.NewNop()
}
