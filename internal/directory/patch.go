package directory

import "github.com/samber/lo"

// ApplyUpdate returns a copy of items with patch merged into the user matching id.
// Items without a match are returned unchanged.
func ApplyUpdate(items []User, id int64, patch Patch) []User {
	return lo.Map(items, func(u User, _ int) User {
		if u.ID != id {
			return u
		}
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.FirstName != nil {
			u.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			u.LastName = *patch.LastName
		}
		return u
	})
}

// ApplyDelete returns a copy of items without the user matching id.
func ApplyDelete(items []User, id int64) []User {
	return lo.Reject(items, func(u User, _ int) bool {
		return u.ID == id
	})
}

// FindUser looks a user up by id.
func FindUser(items []User, id int64) (User, bool) {
	return lo.Find(items, func(u User) bool {
		return u.ID == id
	})
}

// Diff returns the patch turning current into the edited values, holding only changed fields.
func Diff(current User, email, firstName, lastName string) Patch {
	var patch Patch
	if email != current.Email {
		patch.Email = &email
	}
	if firstName != current.FirstName {
		patch.FirstName = &firstName
	}
	if lastName != current.LastName {
		patch.LastName = &lastName
	}
	return patch
}
