package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/record"
	"github.com/lunfardo314/easystate/ledger/resolver"
	"github.com/lunfardo314/easystate/ledger/txbuilder"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type (
	Config struct {
		// Validator locks the state outputs of all owners
		Validator *ledger.Validator
		// MinAmount is locked with the state output. Defaults to txbuilder.MinimumAmountDefault
		MinAmount uint64
		// Policy is applied to new values before building the transaction. Optional
		Policy txbuilder.ValuePolicy
		// AllowReinitialize lets Initialize create another state output for the owner who already has one,
		// breaking the uniqueness of the state
		AllowReinitialize bool
	}

	// Client runs state operations of the signer's credential
	Client struct {
		cfg       Config
		query     ledger.QueryAccess
		submitter ledger.Submitter
		signer    ledger.Signer
		log       *zap.SugaredLogger
	}

	// Receipt describes the confirmed state transaction
	Receipt struct {
		TxID     ledger.TransactionID
		OutputID ledger.OutputID
		State    *record.State
	}
)

func New(cfg Config, query ledger.QueryAccess, submitter ledger.Submitter, signer ledger.Signer, log *zap.SugaredLogger) (*Client, error) {
	if cfg.Validator == nil {
		return nil, fmt.Errorf("client: validator not specified: %w", ledger.ErrPrecondition)
	}
	if query == nil || submitter == nil || signer == nil {
		return nil, fmt.Errorf("client: ledger access and signer must be specified: %w", ledger.ErrPrecondition)
	}
	if cfg.MinAmount == 0 {
		cfg.MinAmount = txbuilder.MinimumAmountDefault
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		cfg:       cfg,
		query:     query,
		submitter: submitter,
		signer:    signer,
		log:       log.Named("client"),
	}, nil
}

func (c *Client) Owner() ledger.Credential {
	return c.signer.Credential()
}

func (c *Client) ValidatorAddress() ledger.Address {
	return c.cfg.Validator.Address()
}

// State resolves the current state output of the owner.
// Returns ledger.ErrNotFound if there is none, ledger.ErrInvariantViolation if there is more than one
func (c *Client) State(ctx context.Context) (*resolver.Match, error) {
	candidates, err := c.query.OutputsAt(ctx, c.ValidatorAddress())
	if err != nil {
		return nil, err
	}
	return resolver.FindUniqueOwnedOutput(candidates, c.Owner())
}

// fetch issues both queries concurrently
func (c *Client) fetch(ctx context.Context) (spendable, candidates []*ledger.OutputWithID, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err1 error
		spendable, err1 = c.query.SpendableOutputs(gctx, c.signer.Address())
		return err1
	})
	g.Go(func() error {
		var err1 error
		candidates, err1 = c.query.OutputsAt(gctx, c.ValidatorAddress())
		return err1
	})
	if err = g.Wait(); err != nil {
		return nil, nil, err
	}
	return spendable, candidates, nil
}

func (c *Client) params(spendable []*ledger.OutputWithID) *txbuilder.Params {
	return txbuilder.NewParams(c.Owner(), c.cfg.Validator).
		WithOwnerAddress(c.signer.Address()).
		WithAmount(c.cfg.MinAmount).
		WithSpendable(spendable).
		WithPolicy(c.cfg.Policy)
}

// Initialize creates the state output of the owner with the value
func (c *Client) Initialize(ctx context.Context, value *big.Int) (*Receipt, error) {
	spendable, candidates, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !c.cfg.AllowReinitialize {
		if m, found := resolver.FindOwnedOutput(candidates, c.Owner()); found {
			return nil, fmt.Errorf("Initialize: owner %s has state output %s: %w",
				c.Owner().String(), m.Output.ID.String(), ledger.ErrAlreadyInitialized)
		}
	}
	tx, err := txbuilder.MakeInitializeTransaction(c.params(spendable), value)
	if err != nil {
		return nil, err
	}
	c.log.Infof("initialize %s with %s", c.Owner().String(), value.String())
	return c.finalize(ctx, tx)
}

// Transition replaces the current state of the owner with the successor derived by the action
func (c *Client) Transition(ctx context.Context, action txbuilder.Action) (*Receipt, error) {
	spendable, candidates, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	current, err := resolver.FindUniqueOwnedOutput(candidates, c.Owner())
	if err != nil {
		return nil, err
	}
	tx, err := txbuilder.MakeTransitionTransaction(c.params(spendable), current.Output, current.State, action)
	if err != nil {
		return nil, err
	}
	c.log.Infof("%s of %s at %s", action.String(), current.State.String(), current.Output.ID.String())
	return c.finalize(ctx, tx)
}

// Compare replaces the value
func (c *Client) Compare(ctx context.Context, value *big.Int) (*Receipt, error) {
	return c.Transition(ctx, txbuilder.Compare{Value: value})
}

// Reassert carries the value forward unchanged
func (c *Client) Reassert(ctx context.Context) (*Receipt, error) {
	return c.Transition(ctx, txbuilder.Reassert{})
}

// finalize signs and submits. Nothing is submitted if signing fails
func (c *Client) finalize(ctx context.Context, tx *ledger.Transaction) (*Receipt, error) {
	idx := tx.OutputsAt(c.ValidatorAddress())
	if len(idx) != 1 {
		return nil, fmt.Errorf("finalize: %d state outputs: %w", len(idx), ledger.ErrInvariantViolation)
	}
	st, err := record.StateFromBytes(tx.Outputs[idx[0]].Datum)
	if err != nil {
		return nil, fmt.Errorf("finalize: %v: %w", err, ledger.ErrInvariantViolation)
	}
	stx, err := c.signer.Sign(ctx, tx)
	if err != nil {
		return nil, err
	}
	txid, err := c.submitter.Submit(ctx, stx)
	if err != nil {
		txidLocal := tx.ID()
		c.log.Warnf("submission of %s failed: %v", txidLocal.String(), err)
		return nil, fmt.Errorf("%w: %w", ledger.ErrSubmission, err)
	}
	c.log.Infof("confirmed %s: %s", txid.String(), st.String())
	return &Receipt{
		TxID:     txid,
		OutputID: ledger.NewOutputID(txid, idx[0]),
		State:    st,
	}, nil
}
