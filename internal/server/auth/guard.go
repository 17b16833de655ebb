package auth

import "github.com/dmitrijs2005/tasktracker/internal/common"

// Authorize is the ownership rule for tasks: only the owner may read,
// update or delete. Callers must have established that the resource exists
// before calling, so a missing task surfaces as not-found, never forbidden.
func Authorize(p Principal, resourceOwnerID int64) error {
	if resourceOwnerID != p.ID {
		return common.ErrForbidden
	}
	return nil
}
