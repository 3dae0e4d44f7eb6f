package models

// Scope is the already-authorized owner and account set a caller acts within.
type Scope struct {
	OwnerID    uint
	AccountIDs []uint
}

// Contains reports whether the account belongs to the scope.
func (s Scope) Contains(accountID uint) bool {
	for _, id := range s.AccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}
