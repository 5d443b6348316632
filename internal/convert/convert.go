// Package convert rewrites a legacy binary XGBoost model as a JSON model.
package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abhisek/heartrisk/internal/xgb"
)

// Default artifact names, relative to the working directory.
const (
	DefaultSource = "xgb_model.bin"
	DefaultDest   = "xgb_model.json"
)

// ErrInputMissing reports that the source model does not exist.
var ErrInputMissing = errors.New("binary model not found")

// Stage is a step of a conversion.
type Stage int

const (
	StageLoading Stage = iota
	StageSaving
	StageDone
)

// Progress describes the step a conversion has reached.
type Progress struct {
	Stage Stage
	Path  string
}

func (p Progress) String() string {
	switch p.Stage {
	case StageLoading:
		return "Loading binary model from " + p.Path
	case StageSaving:
		return "Saving JSON model to " + p.Path
	default:
		return "Done."
	}
}

// Convert reads the legacy binary model at src and writes it as JSON to
// dst. The output appears only once fully written; on any failure dst is
// left as it was. progress may be nil.
func Convert(src, dst string, progress func(Progress)) error {
	report := func(p Progress) {
		if progress != nil {
			progress(p)
		}
	}

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w at %s", ErrInputMissing, src)
		}
		return fmt.Errorf("stat %s: %w", src, err)
	}

	report(Progress{Stage: StageLoading, Path: src})
	m, err := readLegacy(src)
	if err != nil {
		return err
	}

	report(Progress{Stage: StageSaving, Path: dst})
	if err := writeJSON(dst, m); err != nil {
		return err
	}

	report(Progress{Stage: StageDone})
	return nil
}

func readLegacy(path string) (*xgb.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := xgb.ReadLegacy(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

// writeJSON encodes m to a temp file beside path and renames it into place.
func writeJSON(path string, m *xgb.Model) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = xgb.EncodeJSON(tmp, m); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
