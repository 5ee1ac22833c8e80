// Package catalog holds the stage declarations the editor offers.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/meikuraledutech/blockpipe"
	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var defaultStages []byte

var ErrDuplicateStage = errors.New("catalog: duplicate stage")

// Catalog is an ordered, name-indexed set of stage declarations.
type Catalog struct {
	stages []blockpipe.StageDef
	byName map[string]int
}

var _ blockpipe.Catalog = (*Catalog)(nil)

type file struct {
	Stages []blockpipe.StageDef `yaml:"stages"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultStages))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded stages: %v", err))
	}
	return c
}

// Load reads a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(f.Stages...)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// New builds a catalog from explicit declarations.
func New(defs ...blockpipe.StageDef) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.New("catalog: stage without a name")
		}
		if _, ok := c.byName[d.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStage, d.Name)
		}
		if d.Component == "" {
			d.Component = d.Name
		}
		c.byName[d.Name] = len(c.stages)
		c.stages = append(c.stages, d)
	}
	return c, nil
}

// Lookup finds a stage by name.
func (c *Catalog) Lookup(name string) (blockpipe.StageDef, bool) {
	i, ok := c.byName[name]
	if !ok {
		return blockpipe.StageDef{}, false
	}
	return c.stages[i], true
}

// Stages lists the declarations in file order.
func (c *Catalog) Stages() []blockpipe.StageDef {
	return append([]blockpipe.StageDef(nil), c.stages...)
}
