/*Package archive reads back frames written by the pipeline.

Scan reads the headers of every FITS file in a directory.  Index keeps the
same summaries in a sqlite database so that large datasets can be listed
without opening every file.
*/
package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ciboulette/astrolab/imgrec"
)

// SectorProtocol is the object name prefix of survey sector frames
const SectorProtocol = "SECTO"

// Entry summarizes one frame
type Entry struct {
	Path     string  `json:"path"`
	Object   string  `json:"object"`
	FrameID  int     `json:"frameid"`
	DataType string  `json:"datatype"`
	Filter   string  `json:"filter"`
	DateObs  string  `json:"dateObs"`
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`

	// Phase is "raw" for frames that never had WCS merged in, in which case
	// RA and Dec are zero
	Phase string `json:"phase"`
}

// FromHeader builds an Entry from a frame header
func FromHeader(path string, hdr *imgrec.Header) (Entry, error) {
	var (
		e   = Entry{Path: path, Phase: imgrec.PhaseRaw.String()}
		err error
	)
	if e.Object, err = hdr.String("OBJECT"); err != nil {
		return e, err
	}
	if e.FrameID, err = hdr.Int("FRAMEID"); err != nil {
		return e, err
	}
	if e.DataType, err = hdr.String("DATATYPE"); err != nil {
		return e, err
	}
	e.Filter, _ = hdr.String("FILTER")
	e.DateObs, _ = hdr.String("DATE-OBS")
	if done, _ := hdr.Bool("AUGMENTD"); !done {
		return e, nil
	}
	e.Phase = imgrec.PhaseAugmented.String()
	if e.RA, err = hdr.Float("CRVAL1"); err != nil {
		return e, err
	}
	e.Dec, err = hdr.Float("CRVAL2")
	return e, err
}

func isFITS(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".fits", ".fit", ".fts":
		return true
	}
	return false
}

// Scan reads every FITS file in dir, sorted by name.  Files that are not
// frames written by the pipeline are skipped.
func Scan(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, f := range files {
		if f.IsDir() || !isFITS(f.Name()) {
			continue
		}
		path := filepath.Join(dir, f.Name())
		hdr, err := imgrec.ReadHeader(path)
		if err != nil {
			continue
		}
		e, err := FromHeader(path, hdr)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// IsSector is true if the object name before its first R is SECTO
func IsSector(object string) bool {
	return strings.SplitN(object, "R", 2)[0] == SectorProtocol
}

// Sectors keeps the entries of survey sector frames
func Sectors(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if IsSector(e.Object) {
			out = append(out, e)
		}
	}
	return out
}
