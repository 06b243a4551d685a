package config

type ArchiveConfig struct {
	General     GeneralConfig     `yaml:"repo"`
	Archive     BucketConfig      `yaml:"archive"`
	Paths       PathsConfig       `yaml:"paths"`
	Compression CompressionConfig `yaml:"compression"`
	DataStore   DatastoreConfig   `yaml:"datastore"`
	Events      EventsConfig      `yaml:"events"`
	Scribes     ScribesConfig     `yaml:"scribes"`
	Indexes     []IndexConfig     `yaml:"indexes,flow"`
	Templates   TemplatesConfig   `yaml:"templates"`
	Workers     WorkersConfig     `yaml:"workers"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Sentry      SentryConfig      `yaml:"sentry"`
	Redis       RedisConfig       `yaml:"redis"`
}

type GeneralConfig struct {
	BindAddress  string `yaml:"bindAddress"`
	Port         int    `yaml:"port"`
	LogDirectory string `yaml:"logDirectory"`
	LogColors    bool   `yaml:"logColors"`
	JsonLogs     bool   `yaml:"jsonLogs"`
	LogLevel     string `yaml:"logLevel"`
	AdminToken   string `yaml:"adminToken"`
}

type BucketConfig struct {
	Bucket string `yaml:"bucket"`
}

type PathsConfig struct {
	ArchetypePrefix string `yaml:"archetypePrefix"`
	SourcePrefix    string `yaml:"sourcePrefix"`
	IndexPrefix     string `yaml:"indexPrefix"`
}

type CompressionConfig struct {
	Enabled bool `yaml:"enabled"`
	Level   int  `yaml:"level"`
}

type DatastoreConfig struct {
	Type    string            `yaml:"type"`
	Options map[string]string `yaml:"opts,flow"`
}

type EventsConfig struct {
	Sources     []string `yaml:"sources,flow"`
	Cascade     bool     `yaml:"cascade"`
	MaxCascade  int      `yaml:"maxCascadeDepth"`
	ListenMinio bool     `yaml:"listenMinio"`
	DropStale   bool     `yaml:"dropStaleEvents"`
}

type ScribesConfig struct {
	Markdown      ScribeConfig `yaml:"markdown"`
	Yaml          ScribeConfig `yaml:"yaml"`
	JsonArchetype ScribeConfig `yaml:"jsonArchetype"`
	HtmlRender    ScribeConfig `yaml:"htmlRender"`
}

type ScribeConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Suffixes []string `yaml:"suffixes,flow"`
	Prefixes []string `yaml:"prefixes,flow"`
	Patterns []string `yaml:"patterns,flow"`
}

type IndexConfig struct {
	Name      string   `yaml:"name"`
	ItemTypes []string `yaml:"itemTypes,flow"`
}

type TemplatesConfig struct {
	CacheMinutes int `yaml:"cacheMinutes"`
}

type WorkersConfig struct {
	NumWorkers int `yaml:"numWorkers"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bindAddress"`
	Port        int    `yaml:"port"`
}

type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dsn         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

type RedisConfig struct {
	Enabled         bool               `yaml:"enabled"`
	Shards          []RedisShardConfig `yaml:"shards,flow"`
	DbNum           int                `yaml:"databaseNumber"`
	LockTimeoutSecs int                `yaml:"lockTimeoutSeconds"`
	ChangesChannel  string             `yaml:"changesChannel"`
}

type RedisShardConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"addr"`
}
