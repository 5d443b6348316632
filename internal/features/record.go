// Package features assembles the single-row input the risk model scores.
//
// The column set and order below are the model's training schema. Nothing
// here can detect drift between the two: a reordered or renamed column
// produces wrong scores, not errors.
package features

import "fmt"

// Column names in the order the model was trained with.
const (
	ColThall    = "thall"
	ColCaa      = "caa"
	ColCp       = "cp"
	ColOldpeak  = "oldpeak"
	ColExng     = "exng"
	ColChol     = "chol"
	ColThalachh = "thalachh"
)

var columns = [...]string{ColThall, ColCaa, ColCp, ColOldpeak, ColExng, ColChol, ColThalachh}

// NumColumns is the width of a feature row.
const NumColumns = len(columns)

// Columns returns the model's column names in order.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns[:])
	return out
}

// Record is one patient's feature row. Field order matches Columns and
// is also the key order of its JSON encoding.
type Record struct {
	Thall    int     `json:"thall"`
	Caa      int     `json:"caa"`
	Cp       int     `json:"cp"`
	Oldpeak  float64 `json:"oldpeak"`
	Exng     int     `json:"exng"`
	Chol     int     `json:"chol"`
	Thalachh int     `json:"thalachh"`
}

// Assemble builds a Record from decoded inputs. It performs no range checks;
// the input layer owns those.
func Assemble(thall, caa, cp int, oldpeak float64, exng, chol, thalachh int) Record {
	return Record{
		Thall:    thall,
		Caa:      caa,
		Cp:       cp,
		Oldpeak:  oldpeak,
		Exng:     exng,
		Chol:     chol,
		Thalachh: thalachh,
	}
}

// Vector returns the record as an inference row in column order.
func (r Record) Vector() []float64 {
	return []float64{
		float64(r.Thall),
		float64(r.Caa),
		float64(r.Cp),
		r.Oldpeak,
		float64(r.Exng),
		float64(r.Chol),
		float64(r.Thalachh),
	}
}

// Get returns the value of the named column.
func (r Record) Get(column string) (float64, error) {
	v := r.Vector()
	for i, c := range columns {
		if c == column {
			return v[i], nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", column)
}

// String renders the record as "name=value" pairs in column order.
func (r Record) String() string {
	return fmt.Sprintf("thall=%d caa=%d cp=%d oldpeak=%g exng=%d chol=%d thalachh=%d",
		r.Thall, r.Caa, r.Cp, r.Oldpeak, r.Exng, r.Chol, r.Thalachh)
}
