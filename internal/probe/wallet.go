package probe

import (
	"os"
	"path/filepath"
)

// WalletDir returns the fixed bittensor wallet directory for a home dir.
func WalletDir(home string) string {
	return filepath.Join(home, ".bittensor", "wallets")
}

// WalletPresent reports whether wallet material exists on disk: the wallet
// directory exists and has any contents. The check is re-evaluated on every
// run and never cached; it does not validate that the wallet is funded or
// registered.
func WalletPresent(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}
