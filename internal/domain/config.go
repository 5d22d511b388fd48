package domain

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings (serve mode)
	Server ServerConfig `json:"server"`

	// Pipeline and detection policy
	Pipeline PipelineConfig `json:"pipeline"`
	Detector DetectorConfig `json:"detector"`
	Risk     RiskConfig     `json:"risk"`

	// Component configurations
	Cache    CacheConfig    `json:"cache"`
	EventBus EventBusConfig `json:"eventBus"`
	Audit    AuditConfig    `json:"audit"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// PipelineConfig holds normalization policy.
type PipelineConfig struct {
	// KeepSubBrands keeps delivery sub-brands (e.g. "Uber Eats") distinct
	// from their parent brand instead of folding them together. The
	// grouping is a business choice, not a correctness property.
	KeepSubBrands bool `json:"keepSubBrands"`
}

// DetectorConfig holds the anomaly detection policy constants. The dollar
// figures are ordered severity tiers adaptive to dataset scale, not
// load-bearing values; tune them per deployment.
type DetectorConfig struct {
	// ZScoreThreshold is the base |z| threshold T for the statistical
	// outlier signal: |z| >= T MEDIUM, >= 1.5T HIGH, >= 2T CRITICAL.
	ZScoreThreshold float64 `json:"zScoreThreshold"`

	// Large-amount tiers. Retail tiers apply by default; enterprise tiers
	// apply when the batch average exceeds EnterpriseAvgAmount.
	RetailTiers         AmountTiers `json:"retailTiers"`
	EnterpriseTiers     AmountTiers `json:"enterpriseTiers"`
	EnterpriseAvgAmount float64     `json:"enterpriseAvgAmount"`

	// Velocity signal: flag windows of at least VelocityMinCluster
	// transactions within VelocityWindowHours whose summed amount exceeds
	// VelocityFactor times the batch mean. Disabled below MinBatchSize.
	VelocityWindowHours int     `json:"velocityWindowHours"`
	VelocityFactor      float64 `json:"velocityFactor"`
	VelocityMinCluster  int     `json:"velocityMinCluster"`
	MinBatchSize        int     `json:"minBatchSize"`

	// Diversity signal: flag a day whose distinct-merchant count is at
	// least DiversityFactor times the median day and at least
	// DiversityMinMerchants. Needs two distinct days to engage.
	DiversityFactor       float64 `json:"diversityFactor"`
	DiversityMinMerchants int     `json:"diversityMinMerchants"`
}

// AmountTiers maps absolute amounts to severity tiers, ordered
// medium < high < critical.
type AmountTiers struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// RiskConfig holds the risk scoring policy.
type RiskConfig struct {
	// Score = AnomalyRate*RateWeight + per-severity weighted counts,
	// clamped to [0,100].
	RateWeight     float64 `json:"rateWeight"`
	CriticalWeight float64 `json:"criticalWeight"`
	HighWeight     float64 `json:"highWeight"`
	MediumWeight   float64 `json:"mediumWeight"`
	LowWeight      float64 `json:"lowWeight"`

	// Level breakpoints on the score, monotonic and non-overlapping:
	// >= HighAt HIGH, >= MediumAt MEDIUM, >= LowAt LOW, else MINIMAL.
	HighAt   float64 `json:"highAt"`
	MediumAt float64 `json:"mediumAt"`
	LowAt    float64 `json:"lowAt"`

	// HighRateAt is the anomaly-rate threshold above which the rate itself
	// is listed as a risk factor.
	HighRateAt float64 `json:"highRateAt"`
}

// CacheConfig holds analysis-cache settings.
type CacheConfig struct {
	MaxSize    int `json:"maxSize"`
	TTLSeconds int `json:"ttlSeconds"`
}

// EventBusConfig holds event bus settings.
type EventBusConfig struct {
	BufferSize int `json:"bufferSize"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Pipeline: PipelineConfig{
			KeepSubBrands: false,
		},
		Detector: DetectorConfig{
			ZScoreThreshold:       3.0,
			RetailTiers:           AmountTiers{Medium: 1000, High: 2000, Critical: 5000},
			EnterpriseTiers:       AmountTiers{Medium: 100000, High: 200000, Critical: 500000},
			EnterpriseAvgAmount:   50000,
			VelocityWindowHours:   4,
			VelocityFactor:        3.0,
			VelocityMinCluster:    3,
			MinBatchSize:          5,
			DiversityFactor:       3.0,
			DiversityMinMerchants: 5,
		},
		Risk: RiskConfig{
			RateWeight:     50,
			CriticalWeight: 15,
			HighWeight:     10,
			MediumWeight:   5,
			LowWeight:      2,
			HighAt:         75,
			MediumAt:       40,
			LowAt:          10,
			HighRateAt:     0.1,
		},
		Cache: CacheConfig{
			MaxSize:    1000,
			TTLSeconds: 3600,
		},
		EventBus: EventBusConfig{
			BufferSize: 1000,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    "logs/audit.log",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}
