package internal

import (
	"encoding/json"
	"log"
	"os"

	"github.com/haatos/secpipe/internal/util"
)

var Config *Configuration

type Configuration struct {
	QueueSize     int64 `json:"queue_size"`
	RetainRuns    int64 `json:"retain_runs"`
	SSETimeoutSec int64 `json:"sse_timeout_seconds"`
}

func InitializeConfiguration() {
	Config = &Configuration{
		QueueSize:     3,
		RetainRuns:    50,
		SSETimeoutSec: 3600,
	}

	configFileExists, _ := util.PathExists("config.json")
	if !configFileExists {
		b, err := json.MarshalIndent(Config, "", "    ")
		if err != nil {
			log.Fatal(err)
		}
		configFile, err := os.Create("config.json")
		if err != nil {
			log.Fatal(err)
		}
		if _, err := configFile.Write(b); err != nil {
			log.Fatal(err)
		}
	} else {
		configBytes, err := os.ReadFile("config.json")
		if err != nil {
			log.Fatal(err)
		}
		if err := json.Unmarshal(configBytes, &Config); err != nil {
			log.Fatal(err)
		}
	}
}

func UpdateConfiguration(config *Configuration) error {
	b, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		return err
	}

	configFile, err := os.Create("config.json")
	if err != nil {
		return err
	}

	if _, err := configFile.Write(b); err != nil {
		return err
	}

	Config = config

	return nil
}
