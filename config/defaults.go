package config

import "github.com/jsphweid/scoredex/constants"

const (
	defaultConfigPath     = "~/.config/scoredex/config.toml"
	defaultDataDir        = "~/.local/share/scoredex"
	defaultBind           = "127.0.0.1:7480"
	defaultRecordTimeout  = 120
	defaultPollInterval   = 5
	defaultQuietSeconds   = 2
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultBackupCount    = 1
	maxBackupGenerations  = 20
	maxRecordTimeoutHours = 24
)

// Default returns a Config populated with the built-in defaults. Paths left
// empty are derived from other settings during normalization.
func Default() Config {
	return Config{
		Corpus: Corpus{
			Extensions:       append([]string(nil), constants.DefaultExtensions...),
			VariantDelimiter: constants.VariantDelimiter,
		},
		Catalog: Catalog{
			Path:              defaultDataDir + "/" + constants.CatalogFilename,
			BackupGenerations: defaultBackupCount,
		},
		Pipeline: Pipeline{
			RecordTimeoutSeconds: defaultRecordTimeout,
			Incremental:          true,
		},
		Serve: Serve{
			Bind:           defaultBind,
			AllowedOrigins: []string{"*"},
		},
		Watch: Watch{
			PollIntervalSeconds: defaultPollInterval,
			QuietSeconds:        defaultQuietSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
