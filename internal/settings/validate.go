package settings

import "fmt"

// Warning is an advisory message about a risky combination of settings.
type Warning struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s.%s: %s", w.Category, w.Key, w.Message)
}

// Validate inspects the tree for known risky combinations. It never mutates
// state and never fails; missing keys are read as their zero value.
func (s *Settings) Validate() []Warning {
	var warnings []Warning
	add := func(category, key, msg string) {
		warnings = append(warnings, Warning{Category: category, Key: key, Message: msg})
	}

	if s.BoolOr(CategoryAuth, KeyRequireAuth, false) {
		public, _ := s.Strings(CategoryAuth, KeyPublicFeatures)
		if len(public) == 0 {
			add(CategoryAuth, KeyPublicFeatures, "authentication is required but no public features are declared")
		}
	}
	if timeout := s.IntOr(CategoryAuth, KeySessionTimeout, 0); timeout < 0 {
		add(CategoryAuth, KeySessionTimeout, "session timeout is negative")
	}

	if s.IntOr(CategoryChat, KeyMaxMessages, 0) < 10 {
		add(CategoryChat, KeyMaxMessages, "fewer than 10 chat messages are allowed")
	}
	if temp := s.FloatOr(CategoryChat, KeyTemperature, 0); temp < 0 || temp > 2 {
		add(CategoryChat, KeyTemperature, "temperature should be between 0 and 2")
	}

	if len(s.Categories("income")) == 0 || len(s.Categories("expense")) == 0 {
		add(CategoryFinance, KeyCategories, "income or expense categories are missing")
	}
	if s.IntOr(CategoryFinance, KeyMaxTransactions, 0) < 1 {
		add(CategoryFinance, KeyMaxTransactions, "the ledger cannot hold any transaction")
	}

	if !s.BoolOr(CategoryData, KeyUseLocalStorage, false) && !s.BoolOr(CategoryData, KeyUseRemoteStorage, false) {
		add(CategoryData, KeyUseLocalStorage, "both local and remote storage are disabled")
	}

	return warnings
}
