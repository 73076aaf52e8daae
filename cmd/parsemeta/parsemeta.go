package parsemeta

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/sagan/genmeta/cmd"
	"github.com/sagan/genmeta/constants"
	"github.com/sagan/genmeta/features/metadata"
	"github.com/sagan/genmeta/util"
	"github.com/sagan/genmeta/util/helper"
)

var parseMetaCmd = &cobra.Command{
	Use:   "parsemeta {filename | -}...",
	Short: "Parse AI generation metadata from image files",
	Long: `Parse AI generation metadata from image files.

It extracts the generation metadata embedded by InvokeAI / Automatic1111 /
ComfyUI in PNG tEXt chunks or JPEG EXIF fields, and outputs the normalized
parameters (prompt, negative prompt, models, loras, scheduler, board,
cfg scale, steps, seed, dimensions) along with the detected format.

Filename args support globs ("*.png"). If a filename is "-", read from stdin.
Files without supported metadata are reported with "format": "" and empty fields.

By default it outputs a JSON array of records to stdout.
Use --format to output yaml / toml instead.
Use --raw to include the raw (un-normalized) metadata variant per record.
Use --template to format each record; the template can access ".file",
".format" and all normalized fields (".prompt", ".models", ...).
Use --output to write to a file.

Examples:
  genmeta parsemeta image.png
  genmeta parsemeta "outputs/*.png" -o index.json
  genmeta parsemeta image.png -t "{{.prompt}} ({{.scheduler}}, {{.steps}} steps)"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: doParseMeta,
}

var (
	flagForce    bool
	flagRaw      bool
	flagFormat   string
	flagTemplate string
	flagOutput   string
)

func init() {
	parseMetaCmd.Flags().BoolVarP(&flagForce, "force", "", false, "Override existing file")
	parseMetaCmd.Flags().BoolVarP(&flagRaw, "raw", "", false, "Include raw metadata variant in output records")
	parseMetaCmd.Flags().StringVarP(&flagFormat, "format", "", constants.FORMAT_JSON, `Output format: json / yaml / toml`)
	parseMetaCmd.Flags().StringVarP(&flagTemplate, "template", "t", "", `Template to format each record. `+
		constants.HELP_TEMPLATE_FLAG)
	parseMetaCmd.Flags().StringVarP(&flagOutput, "output", "o", "-", `Output file path. Use "-" for stdout`)
	cmd.RootCmd.AddCommand(parseMetaCmd)
}

func doParseMeta(cmd *cobra.Command, args []string) (err error) {
	if flagOutput != "-" {
		if exists, err := util.FileExists(flagOutput); err != nil || (exists && !flagForce) {
			return fmt.Errorf("output file %q exists or can't access, err=%w", flagOutput, err)
		}
	}
	filenames := helper.ParseFilenameArgs(args...)

	records := make([]map[string]any, 0, len(filenames))
	boards := metadata.NewBoardResolver()
	for _, filename := range filenames {
		var buf []byte
		if filename == "-" {
			buf, err = io.ReadAll(os.Stdin)
		} else {
			buf, err = os.ReadFile(filename)
		}
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", filename, err)
		}
		records = append(records, parseOne(buf, filename, boards))
	}

	var output string
	if flagTemplate != "" {
		tmpl, err := helper.GetTemplate(flagTemplate, false)
		if err != nil {
			return fmt.Errorf("invalid template: %w", err)
		}
		var lines []string
		for _, record := range records {
			line, err := helper.ExecTemplate(tmpl, record)
			if err != nil {
				return fmt.Errorf("template execute error: %w", err)
			}
			lines = append(lines, line)
		}
		output = strings.Join(lines, "\n") + "\n"
	} else {
		data, err := util.Marshal(flagFormat, records)
		if err != nil {
			return err
		}
		output = string(data)
	}
	if flagOutput == "-" {
		_, err = os.Stdout.WriteString(output)
	} else {
		err = atomic.WriteFile(flagOutput, strings.NewReader(output))
	}
	return err
}

// parseOne builds one output record. Files without supported metadata still
// yield a record (empty format, default fields) instead of an error.
func parseOne(buf []byte, filename string, boards *metadata.BoardResolver) map[string]any {
	record := map[string]any{
		"file":   filename,
		"format": "",
	}
	meta := metadata.Parse(buf, filename)
	var fields metadata.GenerationFields
	if meta != nil {
		record["format"] = string(meta.Format)
		fields = meta.Fields(boards)
		if flagRaw {
			record["raw"] = meta
		}
	} else {
		fields = (&metadata.ImageMetadata{Format: metadata.FormatUnknown}).Fields(boards)
	}
	record["prompt"] = fields.Prompt
	record["negativePrompt"] = fields.NegativePrompt
	record["models"] = fields.Models
	record["loras"] = fields.Loras
	record["scheduler"] = fields.Scheduler
	record["board"] = fields.Board
	record["cfgScale"] = fields.CfgScale
	record["steps"] = fields.Steps
	if fields.Seed != nil {
		record["seed"] = *fields.Seed
	}
	record["dimensions"] = fields.Dimensions()
	return record
}
