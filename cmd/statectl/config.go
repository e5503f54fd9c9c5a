package main

import (
	"flag"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type config struct {
	MinAmount       uint64        `env:"STATECTL_MIN_AMOUNT" envDefault:"2000000"`
	ExplorerURL     string        `env:"STATECTL_EXPLORER_URL" envDefault:"https://preprod.cardanoscan.io/transaction/"`
	ValidatorScript string        `env:"STATECTL_VALIDATOR_SCRIPT" envDefault:"single owner mutable state"`
	KeyIndex        uint16        `env:"STATECTL_KEY_INDEX" envDefault:"0"`
	NonNegative     bool          `env:"STATECTL_NON_NEGATIVE" envDefault:"true"`
	Timeout         time.Duration `env:"STATECTL_TIMEOUT" envDefault:"30s"`
	Debug           bool          `env:"STATECTL_DEBUG"`

	initial  *big.Int
	compare  []*big.Int
	reassert int
}

// loadConfig reads environment, flags override it
func loadConfig(args []string) (*config, error) {
	cfg := &config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	fs := flag.NewFlagSet("statectl", flag.ContinueOnError)
	initial := fs.String("init", "5", "initial value of the state")
	compare := fs.String("compare", "42", "comma separated values to replace the state with, in order")
	fs.IntVar(&cfg.reassert, "reassert", 1, "number of times the value is carried forward after replacements")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")
	fs.StringVar(&cfg.ExplorerURL, "explorer", cfg.ExplorerURL, "base URL of the transaction explorer")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	var ok bool
	if cfg.initial, ok = new(big.Int).SetString(*initial, 10); !ok {
		return nil, fmt.Errorf("wrong initial value '%s'", *initial)
	}
	var err error
	if cfg.compare, err = parseValues(*compare); err != nil {
		return nil, err
	}
	if cfg.reassert < 0 {
		return nil, fmt.Errorf("reassert must not be negative")
	}
	return cfg, nil
}

func parseValues(s string) ([]*big.Int, error) {
	ret := make([]*big.Int, 0)
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, ok := new(big.Int).SetString(f, 10)
		if !ok {
			return nil, fmt.Errorf("wrong value '%s'", f)
		}
		ret = append(ret, v)
	}
	return ret, nil
}
