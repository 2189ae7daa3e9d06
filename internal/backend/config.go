package backend

import (
	"errors"
	"fmt"
	"strings"

	"salesdash/internal/config"
)

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		HistoryType:  HistoryType(strings.ToLower(appConfig.HistoryBackend)),
		HistorySize:  appConfig.HistorySize,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected stores have what they need.
func (c Config) Validate() error {
	switch {
	case !c.HistoryType.IsValid():
		return fmt.Errorf("invalid history backend %q: must be one of %s", c.HistoryType, supportedTypes())
	case c.HistoryType == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("sqlite history needs a database path")
	case c.EventsEnabled() && (c.AMQPExchange == "" || c.AMQPQueue == ""):
		return errors.New("dataset events need an AMQP exchange and queue")
	}
	return nil
}

func supportedTypes() string {
	names := make([]string, len(historyTypes))
	for i, t := range historyTypes {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
