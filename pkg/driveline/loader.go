package driveline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/trackprogress/pkg/geom"
)

var ErrMalformedFile = errors.New("malformed driveline file")

// fileFormat is the on-disk representation of a driveline.
// Each point is given as [x, y] or [x, y, z].
type fileFormat struct {
	Name  string      `yaml:"name"`
	Left  [][]float64 `yaml:"left"`
	Right [][]float64 `yaml:"right"`
}

// Load reads a driveline in YAML format from r.
// A name contained in the file is used unless opts set one.
func Load(r io.Reader, opts ...Option) (*Driveline, error) {
	var f fileFormat
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	left, err := toPoints(f.Left, "left")
	if err != nil {
		return nil, err
	}
	right, err := toPoints(f.Right, "right")
	if err != nil {
		return nil, err
	}
	return New(left, right, append([]Option{WithName(f.Name)}, opts...)...)
}

func LoadFile(path string, opts ...Option) (*Driveline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts...)
}

func toPoints(raw [][]float64, which string) ([]geom.Vec3, error) {
	ret := make([]geom.Vec3, len(raw))
	for i, p := range raw {
		v, ok := geom.FromSlice(p)
		if !ok {
			return nil, fmt.Errorf("%w: %s point %d has %d components",
				ErrMalformedFile, which, i, len(p))
		}
		ret[i] = v
	}
	return ret, nil
}
