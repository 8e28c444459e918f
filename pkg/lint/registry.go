package lint

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
)

// Registry errors.
var (
	ErrDuplicateAnalyzer = errors.New("duplicate analyzer")
	ErrUnknownAnalyzer   = errors.New("unknown analyzer")
)

// Analyzer inspects one parsed file. Implementations must not retain or
// mutate the tree.
type Analyzer interface {
	Name() string
	Description() string
	Analyze(tree *pysyntax.Tree) []Diagnostic
}

// Registry holds analyzers in registration order.
type Registry struct {
	analyzers []Analyzer
	byName    map[string]Analyzer
}

// NewRegistry creates a registry from the given analyzers.
func NewRegistry(analyzers ...Analyzer) (*Registry, error) {
	r := &Registry{byName: make(map[string]Analyzer, len(analyzers))}

	for _, a := range analyzers {
		err := r.Register(a)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// DefaultRegistry returns the import-order and annotation analyzers, in that
// order, configured with the given local packages.
func DefaultRegistry(localPackages []string) *Registry {
	r := &Registry{byName: make(map[string]Analyzer, 2)}

	r.mustRegister(NewImportOrderAnalyzer(localPackages))
	r.mustRegister(NewAnnotationAnalyzer())

	return r
}

// Register appends an analyzer. Names must be unique.
func (r *Registry) Register(a Analyzer) error {
	name := a.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, name)
	}

	r.analyzers = append(r.analyzers, a)
	r.byName[name] = a

	return nil
}

func (r *Registry) mustRegister(a Analyzer) {
	err := r.Register(a)
	if err != nil {
		panic(err)
	}
}

// Get returns the analyzer with the given name.
func (r *Registry) Get(name string) (Analyzer, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAnalyzer, name)
	}

	return a, nil
}

// Names returns analyzer names in run order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		names = append(names, a.Name())
	}

	return names
}

// Analyzers returns the analyzers in run order.
func (r *Registry) Analyzers() []Analyzer {
	return slices.Clone(r.analyzers)
}

// Select returns a registry restricted to the named analyzers, keeping the
// original run order. An empty selection keeps everything.
func (r *Registry) Select(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}

	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
	}

	selected := &Registry{byName: make(map[string]Analyzer, len(names))}

	for _, a := range r.analyzers {
		if slices.Contains(names, a.Name()) {
			selected.mustRegister(a)
		}
	}

	return selected, nil
}

// Run applies every analyzer to the tree and concatenates the results in
// analyzer order.
func (r *Registry) Run(tree *pysyntax.Tree) []Diagnostic {
	var diags []Diagnostic

	for _, a := range r.analyzers {
		diags = append(diags, a.Analyze(tree)...)
	}

	return diags
}
