package config

// LLMConfig represents the configuration for the LLM tier
type LLMConfig struct {
	Provider      string
	MinConfidence float64
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress string
	ReadTimeout   string
	WriteTimeout  string
}

// ScanConfig represents the scan orchestrator configuration
type ScanConfig struct {
	Cooldown        string
	DefaultLookback string
	FetchLimit      int
	Concurrency     int
}

// GmailConfig represents the Gmail OAuth application configuration
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	MaxRetries   int
}

// IMAPConfig represents the IMAP connector configuration
type IMAPConfig struct {
	Port           int
	ConnectTimeout string
	CommandTimeout string
	MaxRetries     int
	RetryBackoff   string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// CacheConfig represents the analysis cache configuration
type CacheConfig struct {
	Type             string
	TTL              string
	LLMTTL           string
	CleanupFrequency string
	SQLitePath       string
	MySQLDSN         string
}

// StoreConfig represents the persistent store configuration
type StoreConfig struct {
	Type       string
	SQLitePath string
}

// GetLLM returns the LLM tier configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:      c.GetString("llm.provider"),
		MinConfidence: c.GetFloat64("llm.min_confidence"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		ReadTimeout:   c.GetString("server.read_timeout"),
		WriteTimeout:  c.GetString("server.write_timeout"),
	}
}

// GetScan returns the scan orchestrator configuration
func (c *Config) GetScan() ScanConfig {
	return ScanConfig{
		Cooldown:        c.GetString("scan.cooldown"),
		DefaultLookback: c.GetString("scan.default_lookback"),
		FetchLimit:      c.GetInt("scan.fetch_limit"),
		Concurrency:     c.GetInt("scan.concurrency"),
	}
}

// GetGmail returns the Gmail OAuth application configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		ClientID:     c.GetString("gmail.client_id"),
		ClientSecret: c.GetString("gmail.client_secret"),
		RedirectURL:  c.GetString("gmail.redirect_url"),
		MaxRetries:   c.GetInt("gmail.max_retries"),
	}
}

// GetIMAP returns the IMAP connector configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Port:           c.GetInt("imap.port"),
		ConnectTimeout: c.GetString("imap.connect_timeout"),
		CommandTimeout: c.GetString("imap.command_timeout"),
		MaxRetries:     c.GetInt("imap.max_retries"),
		RetryBackoff:   c.GetString("imap.retry_backoff"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetCache returns the analysis cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		TTL:              c.GetString("cache.ttl"),
		LLMTTL:           c.GetString("cache.llm_ttl"),
		CleanupFrequency: c.GetString("cache.cleanup_frequency"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}
}

// GetStore returns the persistent store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
	}
}
