package settings

// Categories of the settings tree.
const (
	CategoryAuth    = "auth"
	CategoryChat    = "chat"
	CategoryFinance = "finance"
	CategoryUI      = "ui"
	CategoryData    = "data"
)

// Keys used by the application. The tree may hold more keys than these;
// only the ones code branches on are named here.
const (
	KeyMethods              = "methods"
	KeyRequireAuth          = "requireAuth"
	KeyPublicFeatures       = "publicFeatures"
	KeySessionTimeout       = "sessionTimeout"
	KeyPasswordRequirements = "passwordRequirements"

	KeyMaxMessages      = "maxMessages"
	KeyMaxMessageLength = "maxMessageLength"
	KeySaveHistory      = "saveHistory"
	KeyMaxSessions      = "maxSessions"
	KeyDefaultModel     = "defaultModel"
	KeyTemperature      = "temperature"
	KeyMaxTokens        = "maxTokens"

	KeySaveTransactions = "saveTransactions"
	KeyMaxTransactions  = "maxTransactions"
	KeyCategories       = "categories"
	KeyCurrency         = "currency"
	KeyShowInsights     = "showInsights"

	KeyUseLocalStorage  = "useLocalStorage"
	KeyUseRemoteStorage = "useRemoteStorage"
	KeyEncryptData      = "encryptData"
	KeyRetentionPeriod  = "retentionPeriod"
)

// Feature names checked against auth.publicFeatures.
const (
	FeatureLogin    = "login"
	FeatureRegister = "register"
	FeatureFinance  = "finance"
	FeatureChat     = "chat"
	FeatureSettings = "settings"
)

// Default returns the startup tree. Every call returns a fresh copy.
func Default() Tree {
	return Tree{
		CategoryAuth: {
			KeyMethods:        []string{"email", "google"},
			KeyRequireAuth:    true,
			KeyPublicFeatures: []string{FeatureLogin, FeatureRegister},
			// minutes, 0 disables expiry
			KeySessionTimeout: 60,
			KeyPasswordRequirements: map[string]any{
				"minLength":           8,
				"requireUppercase":    true,
				"requireLowercase":    true,
				"requireNumbers":      true,
				"requireSpecialChars": true,
			},
		},
		CategoryChat: {
			KeyMaxMessages:      100,
			KeyMaxMessageLength: 1000,
			KeySaveHistory:      true,
			KeyMaxSessions:      10,
			KeyDefaultModel:     "gpt-3.5-turbo",
			KeyTemperature:      0.7,
			KeyMaxTokens:        1000,
		},
		CategoryFinance: {
			KeySaveTransactions: true,
			KeyMaxTransactions:  100,
			KeyCategories: map[string]any{
				"income":  []string{"salary", "freelance", "investment", "other"},
				"expense": []string{"food", "transport", "utilities", "entertainment", "other"},
			},
			KeyCurrency:     "USD",
			KeyShowInsights: true,
		},
		CategoryUI: {
			"theme":         "dark",
			"animations":    true,
			"tooltips":      true,
			"notifications": true,
			"confirmations": true,
		},
		CategoryData: {
			KeyUseLocalStorage:  true,
			KeyUseRemoteStorage: true,
			KeyEncryptData:      false,
			// days, 0 keeps everything
			KeyRetentionPeriod: 365,
		},
	}
}
