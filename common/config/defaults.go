package config

const DefaultIndexName = "index"

func NewDefaultConfig() ArchiveConfig {
	return ArchiveConfig{
		General: GeneralConfig{
			BindAddress:  "127.0.0.1",
			Port:         8000,
			LogDirectory: "logs",
			LogColors:    false,
			JsonLogs:     false,
			LogLevel:     "info",
		},
		Archive: BucketConfig{
			Bucket: "bluebucket",
		},
		Paths: PathsConfig{
			ArchetypePrefix: "_A/",
			SourcePrefix:    "_A/Source/",
			IndexPrefix:     "_I/",
		},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   9,
		},
		DataStore: DatastoreConfig{
			Type: "file",
			Options: map[string]string{
				"path": "./archive",
			},
		},
		Events: EventsConfig{
			Sources:     []string{"aws:s3", "minio:s3"},
			Cascade:     true,
			MaxCascade:  4,
			ListenMinio: false,
			DropStale:   true,
		},
		Scribes: ScribesConfig{
			Markdown: ScribeConfig{
				Enabled:  true,
				Suffixes: []string{".markdown", ".md", ".mdown"},
			},
			Yaml: ScribeConfig{
				Enabled:  true,
				Suffixes: []string{".yaml", ".yml"},
			},
			JsonArchetype: ScribeConfig{
				Enabled:  true,
				Suffixes: []string{".json"},
			},
			HtmlRender: ScribeConfig{
				Enabled:  true,
				Suffixes: []string{".json"},
			},
		},
		Indexes: []IndexConfig{
			{Name: DefaultIndexName},
		},
		Templates: TemplatesConfig{
			CacheMinutes: 5,
		},
		Workers: WorkersConfig{
			NumWorkers: 4,
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1",
			Port:        9000,
		},
		Sentry: SentryConfig{
			Enabled:     false,
			Environment: "",
			Debug:       false,
		},
		Redis: RedisConfig{
			Enabled:         false,
			Shards:          []RedisShardConfig{},
			DbNum:           0,
			LockTimeoutSecs: 30,
			ChangesChannel:  "bluebucket:changes",
		},
	}
}
