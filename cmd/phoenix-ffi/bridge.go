package main

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/api"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/config"
)

// failure is returned when a result cannot be encoded.
var failure = []byte(`{"success":false}`)

var dispatcher = api.NewDispatcher(newLogger())

// newLogger follows the configuration named by PHOENIX_CONFIG. Without one
// the library stays silent.
func newLogger() *zap.Logger {
	path := os.Getenv("PHOENIX_CONFIG")
	if path == "" {
		return zap.NewNop()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return zap.NewNop()
	}
	logger, err := cfg.Logger()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func call(op string, args []byte) []byte {
	b, err := json.Marshal(dispatcher.Call(op, args))
	if err != nil {
		return failure
	}
	return b
}

func operations() []byte {
	b, err := json.Marshal(api.Operations())
	if err != nil {
		return []byte("[]")
	}
	return b
}
