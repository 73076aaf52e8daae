package indeximages

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/sagan/genmeta/cmd"
	"github.com/sagan/genmeta/config"
	"github.com/sagan/genmeta/constants"
	"github.com/sagan/genmeta/util"
)

var (
	flagForce      bool
	flagNoHash     bool
	flagParseMedia bool
	flagRaw        bool
	flagDataUrl    bool
	flagJobs       int
	flagMaxSize    int64
	flagFormat     string
	flagPrefix     string
	flagOutput     string
	flagIncludes   []string
	flagExtensions []string
)

var indexImagesCmd = &cobra.Command{
	Use:   "indeximages {dir}",
	Short: "Index AI generated images in a directory",
	Long: `Index AI generated images in a directory.

It recursively scans {dir} for image files (png / jpg / jpeg by default),
extracts the embedded AI generation metadata of each (InvokeAI /
Automatic1111 / ComfyUI), and outputs one record per image with the
normalized fields:
  path,name,dir_path,base,ext,size,mtime,format,prompt,negative_prompt,
  models,loras,scheduler,board,cfg_scale,steps,seed,width,height,dimensions

Images without supported metadata are still indexed (empty format and
default field values); unreadable files are skipped with a warning and
never abort the batch.

InvokeAI board ids are mapped to stable "My Board {n}" labels. Labels are
assigned in walk order by a single-threaded pass, so repeated runs over the
same directory produce identical output even with --jobs > 1.

The default output is csv (columns sorted alphabetically); use --format json
for a JSON array. Use --includes to restrict csv columns.`,
	Args: cobra.ExactArgs(1),
	RunE: indexImages,
}

func init() {
	cmd.RootCmd.AddCommand(indexImagesCmd)
	indexImagesCmd.Flags().BoolVarP(&flagForce, "force", "", false, "Force overwriting without confirmation")
	indexImagesCmd.Flags().BoolVarP(&flagNoHash, "no-hash", "n", false,
		"Do not calculate file sha256 hash (faster). The output will omit the hash field")
	indexImagesCmd.Flags().BoolVarP(&flagParseMedia, "parse-media", "M", false,
		"Probe actual pixel dimensions when the embedded metadata carries no size")
	indexImagesCmd.Flags().BoolVarP(&flagRaw, "raw", "", false,
		"Include the serialized raw metadata variant in the raw_metadata field")
	indexImagesCmd.Flags().BoolVarP(&flagDataUrl, "data-url", "", false,
		"Include raw file contents as data URL in the data_url field. "+
			"Warning: this may generate very large output")
	indexImagesCmd.Flags().IntVarP(&flagJobs, "jobs", "j", config.GetDefaultJobs(),
		"Parallel metadata extraction jobs")
	indexImagesCmd.Flags().Int64VarP(&flagMaxSize, "max-size", "", config.GetDefaultMaxSize(),
		"Skip files larger than this size (bytes). 0 == unlimited")
	indexImagesCmd.Flags().StringVarP(&flagFormat, "format", "", constants.FORMAT_CSV,
		"Output format: csv / json")
	indexImagesCmd.Flags().StringVarP(&flagPrefix, "prefix", "", "", "Output csv column names prefix")
	indexImagesCmd.Flags().StringVarP(&flagOutput, "output", "o", "-", `Output file path. Use "-" for stdout`)
	indexImagesCmd.Flags().StringSliceVarP(&flagIncludes, "includes", "I", nil,
		"Csv columns (json tag names) to output, comma-separated. Default: all")
	indexImagesCmd.Flags().StringSliceVarP(&flagExtensions, "extensions", "", DefaultExtensions,
		"Only index files of these extensions (no dot), comma-separated")
}

func indexImages(cmd *cobra.Command, args []string) (err error) {
	if flagOutput != "-" {
		if exists, err := util.FileExists(flagOutput); err != nil || (exists && !flagForce) {
			return fmt.Errorf("output file %q exists or can't access, err=%w", flagOutput, err)
		}
	}
	extensions := util.UniqueSlice(util.FilterSlice(flagExtensions, func(ext string) bool { return ext != "" }))
	images, err := doIndex(args[0], &indexOptions{
		extensions: extensions,
		jobs:       flagJobs,
		maxSize:    flagMaxSize,
		hash:       !flagNoHash,
		parseMedia: flagParseMedia,
		fillRaw:    flagRaw,
		fillData:   flagDataUrl,
	})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch flagFormat {
	case constants.FORMAT_CSV:
		var includes []string
		if flagIncludes != nil {
			includes = flagIncludes
		}
		if err = images.SaveCsv(&buf, flagPrefix, includes); err != nil {
			return err
		}
	case constants.FORMAT_JSON:
		data, err := util.Marshal(constants.FORMAT_JSON, images)
		if err != nil {
			return err
		}
		buf.Write(data)
	default:
		return fmt.Errorf("unsupported output format %q", flagFormat)
	}

	if flagOutput == "-" {
		_, err = os.Stdout.Write(buf.Bytes())
	} else {
		err = atomic.WriteFile(flagOutput, strings.NewReader(buf.String()))
	}
	return err
}
