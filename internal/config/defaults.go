package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/termquery/data/db/dictionary.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/termquery/data/indices/bleve"
	}
	// Watch defaults to true when a model file is configured.
	if cfg.Dictionary.ModelPath != "" && cfg.Dictionary.Watch == nil {
		t := true
		cfg.Dictionary.Watch = &t
	}
}
