package client

import (
	"strings"

	"github.com/lunfardo314/easystate/ledger"
)

const ExplorerURLDefault = "https://preprod.cardanoscan.io/transaction/"

// ExplorerLink is the link to the transaction page of the explorer
func ExplorerLink(base string, txid ledger.TransactionID) string {
	if base == "" {
		base = ExplorerURLDefault
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + txid.Hex()
}
