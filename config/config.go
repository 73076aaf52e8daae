package config

import (
	"os"

	"github.com/sagan/genmeta/constants"
	"github.com/sagan/genmeta/util"
)

// GetDefaultJobs returns the default parallelism of the indexer extraction pass.
// It checks the GENMETA_JOBS environment variable first, then falls back to constants.DEFAULT_JOBS.
func GetDefaultJobs() int {
	jobs := util.ParseInt(os.Getenv(constants.ENV_JOBS), constants.DEFAULT_JOBS)
	if jobs < 1 {
		jobs = 1
	}
	return jobs
}

// GetDefaultMaxSize returns the max image file size (bytes) the indexer will read.
// It checks the GENMETA_MAXSIZE environment variable first, then falls back to constants.DEFAULT_MAXSIZE.
func GetDefaultMaxSize() int64 {
	return util.ParseInt(os.Getenv(constants.ENV_MAXSIZE), int64(constants.DEFAULT_MAXSIZE))
}

// GetLogLevel returns the log level name from GENMETA_LOG env, empty if not set.
func GetLogLevel() string {
	return os.Getenv(constants.ENV_LOG)
}
