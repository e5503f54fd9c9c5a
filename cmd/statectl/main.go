// Command statectl runs the single-owner state protocol against the in-memory ledger:
// initializes the state of the owner, replaces it and carries it forward, printing the explorer links.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lunfardo314/easystate/client"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/state"
	"github.com/lunfardo314/easystate/ledger/txbuilder"
	"github.com/lunfardo314/easystate/ledger/utxodb"
	"github.com/lunfardo314/easystate/wallet"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "statectl: %v\n", err)
		os.Exit(2)
	}
	log := newLogger(cfg.Debug)
	defer func() { _ = log.Sync() }()

	if err = run(cfg, log, os.Stdout); err != nil {
		if ledger.IsActionable(err) {
			fmt.Fprintf(os.Stderr, "statectl: %v\n", err)
		} else {
			log.Errorf("operation failed: %v", err)
		}
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("04:05.000")
	lvl := zapcore.InfoLevel
	if debug {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	log, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		panic(err)
	}
	return log.Sugar()
}

func run(cfg *config, log *zap.SugaredLogger, out io.Writer) error {
	var policy txbuilder.ValuePolicy
	if cfg.NonNegative {
		policy = txbuilder.NonNegative
	}
	validator := ledger.NewValidator([]byte(cfg.ValidatorScript))

	u := utxodb.NewUTXODBWithLogger(log)
	u.DeployValidator(validator, state.OwnerStatePolicy(policy))

	priv, _, _ := u.GenerateKeys(cfg.KeyIndex)
	signer := wallet.NewKeyPair(priv).WithLogger(log)
	if err := u.TokensFromFaucet(signer.Address()); err != nil {
		return err
	}
	c, err := client.New(client.Config{
		Validator: validator,
		MinAmount: cfg.MinAmount,
		Policy:    policy,
	}, u, u, signer, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "owner:     %s\nvalidator: %s\n", signer.Credential().String(), validator.Address().String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	report := func(op string, r *client.Receipt) {
		fmt.Fprintf(out, "%-10s %s %s\n", op, r.State.String(), client.ExplorerLink(cfg.ExplorerURL, r.TxID))
	}
	r, err := c.Initialize(ctx, cfg.initial)
	if err != nil {
		return err
	}
	report("initialize", r)
	for _, v := range cfg.compare {
		if r, err = c.Compare(ctx, v); err != nil {
			return err
		}
		report("compare", r)
	}
	for i := 0; i < cfg.reassert; i++ {
		if r, err = c.Reassert(ctx); err != nil {
			return err
		}
		report("reassert", r)
	}
	m, err := c.State(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "current:   %s at %s\n", m.State.String(), m.Output.ID.String())
	return nil
}
