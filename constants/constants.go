package constants

const (
	// Env variable names

	ENV_JOBS    = "GENMETA_JOBS"    // default parallel extraction jobs for indeximages
	ENV_LOG     = "GENMETA_LOG"     // log level: debug / info / warn / error
	ENV_MAXSIZE = "GENMETA_MAXSIZE" // max image file size (bytes) passed to the decoder

	// Default parallel jobs of the indexer extraction pass
	DEFAULT_JOBS = 4

	// Images larger than this are skipped by the indexer (the decoder reads the
	// whole file into memory)
	DEFAULT_MAXSIZE = 64 * 1024 * 1024

	TIME_FORMAT = "2006-01-02T15:04:05Z"

	DATE_FORMAT = "2006-01-02"

	FORMAT_JSON = "json"
	FORMAT_YAML = "yaml"
	FORMAT_TOML = "toml"
	FORMAT_CSV  = "csv"
)

const HELP_TEMPLATE_FLAG = `The Go text template string. If the value starts with "@", ` +
	`it (the rest part after @) is treated as a filename, ` +
	`which contents will be used as template. ` +
	`All sprout functions are supported, see https://github.com/go-sprout/sprout`
