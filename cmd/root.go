package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sagan/genmeta/config"
	"github.com/sagan/genmeta/version"
)

var flagVerbose bool

var RootCmd = &cobra.Command{
	Use:   "genmeta",
	Short: "genmeta " + version.Version,
	Long: `genmeta ` + version.Version + `.
A CLI tool for extracting and indexing AI image generation metadata
(InvokeAI / Automatic1111 / ComfyUI) embedded in PNG and JPEG files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			log.SetLevel(log.DebugLevel)
		} else if levelName := config.GetLogLevel(); levelName != "" {
			if level, err := log.ParseLevel(levelName); err == nil {
				log.SetLevel(level)
			}
		}
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose (debug) logging")
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
