package indeximages

import (
	"encoding/csv"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/sync/errgroup"

	"github.com/sagan/genmeta/constants"
	"github.com/sagan/genmeta/features/mediainfo"
	"github.com/sagan/genmeta/features/metadata"
	"github.com/sagan/genmeta/util"
)

// IgnoreFilenames and IgnoreFilenameSuffixes are used to skip certain files during indexing.
// These are common temporary or system-generated files that are never images worth indexing.

var IgnoreFilenames = []string{
	".DS_Store",   // macOS directory metadata
	"Thumbs.db",   // Windows thumbnail cache
	"desktop.ini", // Windows folder customization
}

var IgnoreFilenameSuffixes = []string{
	".partial",     // rclone transfer temporary file
	".crdownload",  // Chrome partial download
	".part",        // Firefox partial download
	".tmp",         // Temporary file
	".aria2",       // aria2 downloading file
	".!qB",         // qBittorrent downloading file
}

// Image extensions indexed by default.
var DefaultExtensions = []string{"png", "jpg", "jpeg"}

// IndexedImage is one record of the image index: file identity plus the full
// set of normalized generation fields, and optionally the serialized raw
// metadata variant.
type IndexedImage struct {
	Path           string    `json:"path"`     // full relative path, "foo/bar/baz.png"
	Name           string    `json:"name"`     // filename, "baz.png"
	DirPath        string    `json:"dir_path"` // parent dir relative path, empty if file is in root path
	Base           string    `json:"base"`     // "baz"
	Ext            string    `json:"ext"`      // ".png"
	Size           int64     `json:"size"`
	Mtime          time.Time `json:"mtime"`
	Sha256         string    `json:"sha256,omitempty"` // hex string (lower case)
	Format         string    `json:"format"`           // "invokeai" / "a1111" / "comfyui" / "" (none)
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt"`
	Models         []string  `json:"models"`
	Loras          []string  `json:"loras"`
	Scheduler      string    `json:"scheduler"`
	Board          string    `json:"board"`
	CfgScale       float64   `json:"cfg_scale"`
	Steps          int       `json:"steps"`
	Seed           *int64    `json:"seed,omitempty"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Dimensions     string    `json:"dimensions"`
	RawMetadata    string    `json:"raw_metadata,omitempty"` // serialized raw variant
	DataUrl        string    `json:"data_url,omitempty"`     // raw file contents data url

	boardRef metadata.BoardRef
}

type ImageList []*IndexedImage

type indexOptions struct {
	extensions []string
	jobs       int
	maxSize    int64
	hash       bool
	parseMedia bool
	fillRaw    bool
	fillData   bool
}

// doIndex builds the image index of dir. Extraction runs in parallel
// (opts.jobs workers); board naming happens afterwards in a single-threaded
// pass over the deterministic walk order, so that assigned board labels do not
// depend on goroutine scheduling and repeated runs yield identical output.
func doIndex(dir string, opts *indexOptions) (ImageList, error) {
	paths, err := collectFiles(dir, opts.extensions)
	if err != nil {
		return nil, err
	}

	images := make(ImageList, len(paths))
	var group errgroup.Group
	group.SetLimit(max(opts.jobs, 1))
	for i, relPath := range paths {
		group.Go(func() error {
			img, err := indexOne(dir, relPath, opts)
			if err != nil {
				// A bad file never aborts the batch.
				log.Warnf("skipping %s: %v", relPath, err)
				return nil
			}
			images[i] = img
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	images = util.FilterSlice(images, func(img *IndexedImage) bool { return img != nil })

	// Single-threaded naming pass, in walk order, so assigned labels never
	// depend on goroutine scheduling.
	boards := metadata.NewBoardResolver()
	for _, img := range images {
		if img.boardRef.ID != "" {
			img.Board = boards.Resolve(img.boardRef.ID)
		}
	}
	return images, nil
}

// collectFiles walks dir recursively and returns relative paths of candidate
// image files in deterministic (lexical) order.
func collectFiles(dir string, extensions []string) (paths []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && shouldIgnore(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIgnore(d.Name()) {
			return nil
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name())), ".")
		if !slices.Contains(extensions, ext) {
			return nil
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(relPath))
		return nil
	})
	return paths, err
}

func shouldIgnore(filename string) bool {
	if strings.HasPrefix(filename, ".") {
		return true
	}
	if slices.Contains(IgnoreFilenames, filename) {
		return true
	}
	return slices.ContainsFunc(IgnoreFilenameSuffixes, func(suffix string) bool {
		return strings.HasSuffix(filename, suffix)
	})
}

// indexOne reads and extracts a single file. The returned record is complete
// except for resolver-assigned board labels (boardRef carries the raw id).
func indexOne(dir, relPath string, opts *indexOptions) (*IndexedImage, error) {
	fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	if opts.maxSize > 0 && info.Size() > opts.maxSize {
		log.Warnf("skipping %s: size %d exceeds limit %d", relPath, info.Size(), opts.maxSize)
		return nil, nil
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(relPath)
	ext := filepath.Ext(name)
	dirPath := filepath.ToSlash(filepath.Dir(relPath))
	if dirPath == "." {
		dirPath = ""
	}
	img := &IndexedImage{
		Path:    relPath,
		Name:    name,
		DirPath: dirPath,
		Base:    strings.TrimSuffix(name, ext),
		Ext:     ext,
		Size:    info.Size(),
		Mtime:   info.ModTime(),
	}
	if opts.hash {
		img.Sha256 = util.Sha256sum(data)
	}
	if opts.fillData {
		img.DataUrl = dataurl.EncodeBytes(data)
	}

	meta := metadata.Parse(data, relPath)
	fields := (&metadata.ImageMetadata{Format: metadata.FormatUnknown}).Fields(nil)
	if meta != nil {
		img.Format = string(meta.Format)
		fields = meta.Fields(nil)
		img.boardRef = meta.BoardRef()
		if opts.fillRaw {
			img.RawMetadata = serializeRaw(meta)
		}
	}
	img.Prompt = fields.Prompt
	img.NegativePrompt = fields.NegativePrompt
	img.Models = fields.Models
	img.Loras = fields.Loras
	img.Scheduler = fields.Scheduler
	img.Board = fields.Board
	img.CfgScale = fields.CfgScale
	img.Steps = fields.Steps
	img.Seed = fields.Seed
	img.Width = fields.Width
	img.Height = fields.Height

	if (img.Width == 0 || img.Height == 0) && opts.parseMedia {
		if info, err := mediainfo.ParseImageInfo(data); err == nil {
			img.Width = info.Width
			img.Height = info.Height
		} else {
			log.Debugf("%s: no decodable image dimensions: %v", relPath, err)
		}
	}
	img.Dimensions = dimensionsString(img.Width, img.Height)
	return img, nil
}

func dimensionsString(width, height int) string {
	if width > 0 && height > 0 {
		return strconv.Itoa(width) + "x" + strconv.Itoa(height)
	}
	return ""
}

// serializeRaw serializes the raw metadata variant. When the full structure
// cannot be serialized, a reduced record of plainly-serializable primitive
// fields is produced instead of failing the record.
func serializeRaw(meta *metadata.ImageMetadata) string {
	if s := util.ToJson(meta); s != "" {
		return s
	}
	return util.ToJson(map[string]any{
		"format":     string(meta.Format),
		"parameters": meta.Parameters,
	})
}

// columnDef holds instructions on how to extract and name a CSV column.
type columnDef struct {
	HeaderName string
	StructIdx  []int
}

// SaveCsv writes the image list as RFC-compliant CSV. Notes:
//  1. Use struct field json tag as output csv column name.
//  2. The first row is header (column names), sorted alphabetically.
//  3. If "prefix" arg is not empty (e.g. "img"), use it as column names prefix, e.g. "img_path".
//  4. Output time.Time columns in "YYYY-MM-DDTHH:mm:ssZ" format.
//  5. "includes" arg is the list of columns (json tag name) to save; nil = all columns.
//  6. Slice columns (models / loras) are joined with "; ".
func (il ImageList) SaveCsv(writer io.Writer, prefix string, includes []string) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	valType := reflect.TypeOf(IndexedImage{})
	var columns []columnDef
	for i := 0; i < valType.NumField(); i++ {
		field := valType.Field(i)
		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		if includes != nil && !slices.Contains(includes, tag) {
			continue
		}
		colName := tag
		if prefix != "" {
			colName = prefix + "_" + colName
		}
		columns = append(columns, columnDef{HeaderName: colName, StructIdx: field.Index})
	}
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].HeaderName < columns[j].HeaderName
	})

	headerRow := make([]string, len(columns))
	for i, col := range columns {
		headerRow[i] = col.HeaderName
	}
	if err := w.Write(headerRow); err != nil {
		return err
	}

	for _, img := range il {
		if img == nil {
			continue
		}
		record := make([]string, len(columns))
		rVal := reflect.ValueOf(*img)
		for i, col := range columns {
			record[i] = formatValue(rVal.FieldByIndex(col.StructIdx))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// formatValue converts struct fields to csv cell strings.
func formatValue(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Pointer:
		if v.IsNil() {
			return ""
		}
		return formatValue(v.Elem())
	case reflect.Slice:
		if ss, ok := v.Interface().([]string); ok {
			return strings.Join(ss, "; ")
		}
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			if t.Equal(time.Time{}) {
				return ""
			}
			return t.UTC().Format(constants.TIME_FORMAT)
		}
	}
	return ""
}
