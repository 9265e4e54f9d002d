package registry

import (
	"fmt"
	"sync"

	"github.com/ecodeclub/ekit/syncx"

	"github.com/eaglebank/ledger/shared/utils"
	"github.com/eaglebank/ledger/shared/xerrors"
)

// Registry owns account identity: the id sequence and the id → account map.
// It is built once at startup and shared by reference with every handler.
type Registry struct {
	// creation serializes nextID and insertion only; it is never held while
	// balances are touched.
	creation sync.Mutex
	nextID   uint64

	// accounts is safe for lookups that race with insertion. Entries are
	// never replaced or removed.
	accounts syncx.Map[string, *Account]
}

func New() *Registry {
	return &Registry{}
}

// OpenAccount creates an account with a zero balance and returns its id.
func (r *Registry) OpenAccount() string {
	r.creation.Lock()
	defer r.creation.Unlock()

	r.nextID++
	id := utils.FormatAccountID(r.nextID)
	r.accounts.Store(id, newAccount(id))
	return id
}

// Lookup returns the account for id or an error wrapping ErrAccountNotFound.
func (r *Registry) Lookup(id string) (*Account, error) {
	account, ok := r.accounts.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", xerrors.ErrAccountNotFound, id)
	}
	return account, nil
}

// Len returns how many accounts have been opened.
func (r *Registry) Len() int {
	r.creation.Lock()
	defer r.creation.Unlock()
	return int(r.nextID)
}
