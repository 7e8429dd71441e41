// Package frames lists, orders and decodes the image files of a multispeckle
// acquisition.
//
// Frame files are ordered by the first decimal number in their name, so
// "img_2.bmp" sorts before "img_10.bmp". Supported formats are BMP, PNG,
// TIFF, GIF and JPEG.
package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	// Registered image decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/sgostarter/i/l"

	"github.com/cwbudde/algo-speckle/dls/grid"
)

var (
	ErrNoFrames   = errors.New("frames: no frame files found")
	ErrUnnumbered = errors.New("frames: file name holds no frame number")
	ErrDecode     = errors.New("frames: decode failed")
)

var frameNumber = regexp.MustCompile(`\d+`)

var extensions = map[string]bool{
	".bmp":  true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".gif":  true,
	".jpg":  true,
	".jpeg": true,
}

// Supported reports whether name has a decodable image extension.
func Supported(name string) bool {
	return extensions[strings.ToLower(path.Ext(name))]
}

// Number extracts the first decimal number in the base name of file.
func Number(file string) (int, error) {
	m := frameNumber.FindString(path.Base(file))
	if m == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnnumbered, file)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrUnnumbered, file, err)
	}
	return n, nil
}

// List returns the supported image files in dir ordered by frame number.
// Files with equal numbers keep lexical order.
func List(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		name string
		n    int
	}
	var files []numbered
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		n, err := Number(e.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, numbered{name: path.Join(dir, e.Name()), n: n})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoFrames, dir)
	}

	// ReadDir returns entries sorted by name.
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].n < files[j].n
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.name
	}
	return out, nil
}

// Decode reads one image file and converts it to a frame.
func Decode(fsys fs.FS, name string) (grid.Frame, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return grid.Frame{}, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return grid.Frame{}, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	frame, err := grid.FromImage(img)
	if err != nil {
		return grid.Frame{}, fmt.Errorf("frames: %s (%s): %w", name, format, err)
	}
	return frame, nil
}

// Loader streams the frames of one acquisition directory.
type Loader struct {
	fsys   fs.FS
	dir    string
	logger l.Wrapper
}

// NewLoader returns a loader for dir in fsys. A nil logger discards output.
func NewLoader(fsys fs.FS, dir string, logger l.Wrapper) *Loader {
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}
	return &Loader{
		fsys:   fsys,
		dir:    dir,
		logger: logger.WithFields(l.StringField(l.ClsKey, "frames.Loader"), l.StringField("dir", dir)),
	}
}

// Files lists the frame files in order.
func (ld *Loader) Files() ([]string, error) {
	return List(ld.fsys, ld.dir)
}

// Each decodes every frame in order and calls fn with its zero-based index.
// It stops at the first error, including cancellation of ctx between frames.
func (ld *Loader) Each(ctx context.Context, fn func(index int, name string, f grid.Frame) error) (int, error) {
	files, err := ld.Files()
	if err != nil {
		ld.logger.WithFields(l.ErrorField(err)).Error("list frames failed")
		return 0, err
	}
	ld.logger.WithFields(l.IntField("files", len(files))).Info("found frames")

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		frame, err := Decode(ld.fsys, name)
		if err != nil {
			ld.logger.WithFields(l.ErrorField(err), l.StringField("file", name)).Error("decode frame failed")
			return i, err
		}
		ld.logger.WithFields(l.IntField("index", i+1), l.StringField("file", name)).Debug("read frame")
		if err := fn(i, name, frame); err != nil {
			return i, fmt.Errorf("frames: %s: %w", name, err)
		}
	}
	return len(files), nil
}

// Feed adds every frame to x and returns the number of frames added.
func (ld *Loader) Feed(ctx context.Context, x *grid.Extractor) (int, error) {
	return ld.Each(ctx, func(_ int, _ string, f grid.Frame) error {
		_, err := x.Add(f)
		return err
	})
}
