package contracts

import "time"

// UniverseSelection is the result of a selection stage
type UniverseSelection struct {
	Date     time.Time         `json:"date"`
	Symbols  []string          `json:"symbols"`
	Excluded map[string]string `json:"excluded,omitempty"` // symbol -> reason
	// Unchanged tells the engine to keep the previous universe; Symbols is
	// empty in that case.
	Unchanged bool `json:"unchanged,omitempty"`
}

// UnchangedSelection returns the sentinel selection that keeps the previous universe
func UnchangedSelection(date time.Time) *UniverseSelection {
	return &UniverseSelection{Date: date, Unchanged: true}
}

// Contains checks if a symbol is in the selection
func (u *UniverseSelection) Contains(symbol string) bool {
	for _, s := range u.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Count returns the number of selected symbols
func (u *UniverseSelection) Count() int {
	return len(u.Symbols)
}

// IsExcluded checks if a symbol was excluded, with the recorded reason
func (u *UniverseSelection) IsExcluded(symbol string) (bool, string) {
	reason, exists := u.Excluded[symbol]
	return exists, reason
}

// SecurityChanges describes additions to and removals from the universe
type SecurityChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// IsEmpty reports whether nothing changed
func (c SecurityChanges) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}
