// Package archive builds the downloadable ZIP for a photo selection: photo
// entries in input order, comment sidecars in commented mode, and error
// placeholders for photos that could not be fetched.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/proofpick/proofpick/pkg/models"
)

// Download modes. Selected includes liked photos; commented includes photos
// with a non-empty trimmed comment.
const (
	ModeSelected  = "selected"
	ModeCommented = "commented"
)

// ValidMode reports whether mode names a supported download filter.
func ValidMode(mode string) bool {
	return mode == ModeSelected || mode == ModeCommented
}

// FilterPhotos returns the photos matching the download mode, preserving
// input order. Unknown modes yield nil.
func FilterPhotos(photos []models.Photo, mode string) []models.Photo {
	var out []models.Photo
	for _, p := range photos {
		switch mode {
		case ModeSelected:
			if p.Selected {
				out = append(out, p)
			}
		case ModeCommented:
			if strings.TrimSpace(p.Comment) != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// Filename builds the archive download name from the project title and mode:
// whitespace runs collapse to single underscores, e.g.
// "Amit  weds   Riya" + "selected" -> "Amit_weds_Riya_selected.zip".
func Filename(title, mode string) string {
	return whitespaceRuns.ReplaceAllString(strings.TrimSpace(title), "_") + "_" + mode + ".zip"
}

// Entry names. Photos are numbered 1-indexed in input order; the .jpg
// extension is nominal, content is not re-encoded or validated.
func PhotoEntryName(i int) string   { return fmt.Sprintf("Photo_%d.jpg", i) }
func CommentEntryName(i int) string { return fmt.Sprintf("Photo_%d_Comment.txt", i) }
func ErrorEntryName(i int) string   { return fmt.Sprintf("ERROR_Photo_%d.jpg.txt", i) }

// Builder streams entries into a ZIP in strict input order. Compression is
// maximal: the Deflate compressor is replaced with klauspost flate at
// BestCompression.
type Builder struct {
	zw *zip.Writer
}

// NewBuilder wraps w in a ZIP writer. The caller must Close the builder to
// write the trailer; a Close failure invalidates the whole archive.
func NewBuilder(w io.Writer) *Builder {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return &Builder{zw: zw}
}

// AddPhoto streams the resolved photo bytes as Photo_<index>.jpg.
func (b *Builder) AddPhoto(index int, r io.Reader) error {
	w, err := b.zw.Create(PhotoEntryName(index))
	if err != nil {
		return fmt.Errorf("create photo entry %d: %w", index, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write photo entry %d: %w", index, err)
	}
	return nil
}

// AddComment appends the raw comment text as Photo_<index>_Comment.txt,
// immediately after the photo it belongs to.
func (b *Builder) AddComment(index int, comment string) error {
	return b.addText(CommentEntryName(index), comment)
}

// AddError appends an error placeholder instead of the photo entry.
func (b *Builder) AddError(index int, message string) error {
	return b.addText(ErrorEntryName(index), message)
}

func (b *Builder) addText(name, text string) error {
	w, err := b.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// Close finalizes the archive trailer.
func (b *Builder) Close() error {
	if err := b.zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
