package gmm

import (
	"fmt"
	"path"

	"github.com/jvlmdr/go-file/fileutil"
	"gonum.org/v1/gonum/mat"
)

// paramDict is the serialized form of a mixture: weights, means and full
// covariance matrices under fixed keys.
type paramDict struct {
	Weights []float64     `json:"weights"`
	Means   [][]float64   `json:"means"`
	Covs    [][][]float64 `json:"covariances"`
}

// SaveWeights writes the mixture parameters to fname.
// The format is chosen by extension (.json or .gob); any other extension
// is rejected.
func SaveWeights(fname string, m *Model) error {
	switch ext := path.Ext(fname); ext {
	case ".json", ".gob":
		return fileutil.SaveExt(fname, toDict(m))
	default:
		return fmt.Errorf("unsupported weights format %q (want .json or .gob)", ext)
	}
}

// LoadWeights reads mixture parameters saved by SaveWeights.
// Unknown extensions are rejected before touching the file.
func LoadWeights(fname string) (*Model, error) {
	switch ext := path.Ext(fname); ext {
	case ".json", ".gob":
	default:
		return nil, fmt.Errorf("unsupported weights format %q (want .json or .gob)", ext)
	}
	var dict paramDict
	if err := fileutil.LoadExt(fname, &dict); err != nil {
		return nil, err
	}
	m, err := fromDict(&dict)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", fname, err)
	}
	return m, nil
}

func toDict(m *Model) *paramDict {
	d := m.Dim()
	dict := &paramDict{
		Weights: append([]float64(nil), m.Weights...),
		Means:   make([][]float64, m.K()),
		Covs:    make([][][]float64, m.K()),
	}
	for k := range m.Means {
		dict.Means[k] = append([]float64(nil), m.Means[k]...)
		rows := make([][]float64, d)
		for i := 0; i < d; i++ {
			rows[i] = make([]float64, d)
			for j := 0; j < d; j++ {
				rows[i][j] = m.Covs[k].At(i, j)
			}
		}
		dict.Covs[k] = rows
	}
	return dict
}

func fromDict(dict *paramDict) (*Model, error) {
	k := len(dict.Weights)
	if len(dict.Means) != k || len(dict.Covs) != k {
		return nil, fmt.Errorf("component counts differ: %d weights, %d means, %d covariances",
			k, len(dict.Means), len(dict.Covs))
	}
	m := &Model{
		Weights: append([]float64(nil), dict.Weights...),
		Means:   make([][]float64, k),
		Covs:    make([]*mat.SymDense, k),
	}
	var d int
	if k > 0 {
		d = len(dict.Means[0])
	}
	for c := 0; c < k; c++ {
		if len(dict.Means[c]) != d {
			return nil, fmt.Errorf("mean %d has dimension %d, want %d", c, len(dict.Means[c]), d)
		}
		m.Means[c] = append([]float64(nil), dict.Means[c]...)
		cov := mat.NewSymDense(d, nil)
		if len(dict.Covs[c]) != d {
			return nil, fmt.Errorf("covariance %d has %d rows, want %d", c, len(dict.Covs[c]), d)
		}
		for i := 0; i < d; i++ {
			if len(dict.Covs[c][i]) != d {
				return nil, fmt.Errorf("covariance %d row %d has %d columns, want %d",
					c, i, len(dict.Covs[c][i]), d)
			}
			for j := i; j < d; j++ {
				cov.SetSym(i, j, dict.Covs[c][i][j])
			}
		}
		m.Covs[c] = cov
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
