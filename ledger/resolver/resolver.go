// Package resolver locates the output carrying an owner's current state among outputs locked by the validator
package resolver

import (
	"errors"
	"fmt"

	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/easystate/ledger/record"
)

var errNoDatum = errors.New("output has no datum")

// Match is the resolved state output together with its decoded state
type Match struct {
	Output *ledger.OutputWithID
	State  *record.State
}

// Scan decodes state of each candidate in order and calls fun with it, or with the reason the candidate is not a
// valid state output. Scan stops when fun returns false
func Scan(candidates []*ledger.OutputWithID, fun func(o *ledger.OutputWithID, st *record.State, err error) bool) {
	for _, o := range candidates {
		if o == nil || o.Output == nil {
			continue
		}
		if !o.Output.HasDatum() {
			if !fun(o, nil, errNoDatum) {
				return
			}
			continue
		}
		st, err := record.StateFromBytes(o.Output.Datum)
		if !fun(o, st, err) {
			return
		}
	}
}

// FindOwnedOutput returns the first candidate whose state belongs to the owner.
// Candidates without datum or with datum which is not a valid state are skipped.
// Not found is not an error: the owner must initialize state first
func FindOwnedOutput(candidates []*ledger.OutputWithID, owner ledger.Credential) (*Match, bool) {
	var ret *Match
	Scan(candidates, func(o *ledger.OutputWithID, st *record.State, err error) bool {
		if err != nil || !st.Owner.Equal(owner) {
			return true
		}
		ret = &Match{Output: o, State: st}
		return false
	})
	return ret, ret != nil
}

// FindAllOwnedOutputs returns all matches in candidates order
func FindAllOwnedOutputs(candidates []*ledger.OutputWithID, owner ledger.Credential) []*Match {
	ret := make([]*Match, 0)
	Scan(candidates, func(o *ledger.OutputWithID, st *record.State, err error) bool {
		if err == nil && st.Owner.Equal(owner) {
			ret = append(ret, &Match{Output: o, State: st})
		}
		return true
	})
	return ret
}

// FindUniqueOwnedOutput treats more than one state output of the owner as a broken invariant
func FindUniqueOwnedOutput(candidates []*ledger.OutputWithID, owner ledger.Credential) (*Match, error) {
	matches := FindAllOwnedOutputs(candidates, owner)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("owner %s: %w", owner.String(), ledger.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("owner %s has %d state outputs: %w", owner.String(), len(matches), ledger.ErrInvariantViolation)
}
