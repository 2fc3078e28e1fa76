package config

// RetryConfig tunes the retry executor shared by all capabilities.
type RetryConfig struct {
	BaseDelayMS int `yaml:"base_delay_ms" koanf:"base_delay_ms"`
	MaxRetries  int `yaml:"max_retries" koanf:"max_retries"`
}

// CacheTTLConfig sets the freshness window per data classification,
// in minutes. Zero disables caching for that classification.
type CacheTTLConfig struct {
	DiagnosticMinutes    int `yaml:"diagnostic_minutes" koanf:"diagnostic_minutes"`
	PricingMinutes       int `yaml:"pricing_minutes" koanf:"pricing_minutes"`
	SpecificationMinutes int `yaml:"specification_minutes" koanf:"specification_minutes"`
	ProcedureMinutes     int `yaml:"procedure_minutes" koanf:"procedure_minutes"`
}

// CapabilityConfig overrides a single capability's refinement policy.
// Zero values keep the capability's registered defaults.
type CapabilityConfig struct {
	ConfidenceThreshold   int `yaml:"confidence_threshold" koanf:"confidence_threshold"`
	MaxRefinementAttempts int `yaml:"max_refinement_attempts" koanf:"max_refinement_attempts"`
	AttemptTimeoutMS      int `yaml:"attempt_timeout_ms" koanf:"attempt_timeout_ms"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// LLMConfig configures the optional LLM-backed symptom provider and the
// embedding model behind the procedure knowledge base. The endpoint is
// OpenAI-compatible; BaseURL supports self-hosted gateways.
type LLMConfig struct {
	Enabled        bool   `yaml:"enabled" koanf:"enabled"`
	BaseURL        string `yaml:"base_url" koanf:"base_url"`
	Model          string `yaml:"model" koanf:"model"`
	EmbeddingModel string `yaml:"embedding_model" koanf:"embedding_model"`
	RPM            int    `yaml:"rpm" koanf:"rpm"`
}

// Config is the top-level gearbox configuration, corresponding to
// .gearbox.yml.
type Config struct {
	DataDir        string                      `yaml:"data_dir" koanf:"data_dir"`
	ProceduresFile string                      `yaml:"procedures_file" koanf:"procedures_file"`
	Server         ServerConfig                `yaml:"server" koanf:"server"`
	Retry          RetryConfig                 `yaml:"retry" koanf:"retry"`
	CacheTTL       CacheTTLConfig              `yaml:"cache_ttl" koanf:"cache_ttl"`
	Capabilities   map[string]CapabilityConfig `yaml:"capabilities" koanf:"capabilities"`
	LLM            LLMConfig                   `yaml:"llm" koanf:"llm"`
}
