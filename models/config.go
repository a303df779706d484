package models

// Config carries plateful runtime configuration. It is parsed from a JSON
// config file with env overrides applied in package main.
type Config struct {
	Port         string `json:"port"`
	IsDebug      bool   `json:"is_debug"`
	DatabasePath string `json:"database_path"`
	RedisAddress string `json:"redis_address"`
	JWTSecret    string `json:"jwt_secret"`

	// Spoonacular credential set. Keys are tried in order; see the
	// spoonacular package for the fallback rules.
	SpoonacularKeys []string `json:"spoonacular_keys"`
	SpoonacularURL  string   `json:"spoonacular_url"`

	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleRedirectURL  string `json:"google_redirect_url"`

	AuthRatePerMinute   int `json:"auth_rate_per_minute"`
	AuthBurst           int `json:"auth_burst"`
	RecipeRatePerMinute int `json:"recipe_rate_per_minute"`
	RecipeBurst         int `json:"recipe_burst"`

	LogSamplingTickMs  int `json:"log_sampling_tick_ms"`
	LogSamplingAfterMs int `json:"log_sampling_after_ms"`
}

// Defaults fills unset fields with sane local-development values.
func (c *Config) Defaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "plateful.db"
	}
	if c.RedisAddress == "" {
		c.RedisAddress = "localhost:6379"
	}
	if c.AuthRatePerMinute == 0 {
		c.AuthRatePerMinute = 4
	}
	if c.AuthBurst == 0 {
		c.AuthBurst = 10
	}
	if c.RecipeRatePerMinute == 0 {
		c.RecipeRatePerMinute = 200
	}
	if c.RecipeBurst == 0 {
		c.RecipeBurst = 50
	}
}
