package asset

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

// EnvDir is the environment variable naming a directory of codec binaries.
// It takes precedence over the built-in search directories when set.
const EnvDir = "SQUOOSH_WASM_DIR"

// Resolver maps a logical binary name to its bytes. Resolve returns an error
// when the strategy cannot produce the asset; the caller moves on to the next
// strategy in its chain.
type Resolver interface {
	// Name identifies the strategy in diagnostics, e.g. "dir:wasm".
	Name() string
	Resolve(name string) ([]byte, error)
}

// DefaultResolvers returns the standard resolution chain.
func DefaultResolvers() []Resolver {
	return []Resolver{
		Env(EnvDir),
		Dir("wasm"),
		Dir(filepath.Join("assets", "wasm")),
	}
}

// Locate walks resolvers in order and returns the bytes and strategy name of
// the first success. On total failure it returns a not-found error listing
// every attempted candidate.
func Locate(name string, resolvers []Resolver) ([]byte, string, error) {
	var attempts []string
	for _, r := range resolvers {
		data, err := r.Resolve(name)
		if err == nil {
			return data, r.Name(), nil
		}
		attempts = append(attempts, fmt.Sprintf("%s/%s", r.Name(), name))
	}
	return nil, "", errors.New(errors.PhaseResolve, errors.KindNotFound).
		Path(name).
		Detail("no resolver produced %q, attempted: %v", name, attempts).
		Build()
}

// LocateFirst tries each candidate name in preference order, each over the
// full resolver chain, and returns the first hit. Build variants (threaded,
// baseline) are expressed as candidate names; a variant is used completely
// or not at all.
func LocateFirst(names []string, resolvers []Resolver) (data []byte, name string, err error) {
	var attempts []string
	for _, n := range names {
		for _, r := range resolvers {
			d, rerr := r.Resolve(n)
			if rerr == nil {
				return d, n, nil
			}
			attempts = append(attempts, fmt.Sprintf("%s/%s", r.Name(), n))
		}
	}
	return nil, "", errors.New(errors.PhaseResolve, errors.KindNotFound).
		Detail("no resolver produced any of %v, attempted: %v", names, attempts).
		Build()
}

type dirResolver struct {
	dir string
}

// Dir resolves names against a filesystem directory, accepting either the
// plain file or a gzipped sibling with a .gz suffix.
func Dir(dir string) Resolver {
	return &dirResolver{dir: dir}
}

func (d *dirResolver) Name() string {
	return "dir:" + d.dir
}

func (d *dirResolver) Resolve(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if err == nil {
		return maybeGunzip(data)
	}
	data, gzErr := os.ReadFile(filepath.Join(d.dir, name+".gz"))
	if gzErr == nil {
		return maybeGunzip(data)
	}
	return nil, err
}

type envResolver struct {
	variable string
}

// Env resolves names against the directory named by an environment variable.
// It fails for every name while the variable is unset.
func Env(variable string) Resolver {
	return &envResolver{variable: variable}
}

func (e *envResolver) Name() string {
	return "env:" + e.variable
}

func (e *envResolver) Resolve(name string) ([]byte, error) {
	dir := os.Getenv(e.variable)
	if dir == "" {
		return nil, errors.NotFound(errors.PhaseResolve, "environment variable", e.variable)
	}
	return Dir(dir).Resolve(name)
}

type fsResolver struct {
	fsys fs.FS
	root string
}

// FS resolves names against an fs.FS, typically an embedded filesystem.
// root may be empty when binaries sit at the FS root.
func FS(fsys fs.FS, root string) Resolver {
	return &fsResolver{fsys: fsys, root: root}
}

func (f *fsResolver) Name() string {
	if f.root == "" {
		return "fs"
	}
	return "fs:" + f.root
}

func (f *fsResolver) Resolve(name string) ([]byte, error) {
	path := name
	if f.root != "" {
		path = f.root + "/" + name
	}
	data, err := fs.ReadFile(f.fsys, path)
	if err == nil {
		return maybeGunzip(data)
	}
	gz, gzErr := fs.ReadFile(f.fsys, path+".gz")
	if gzErr == nil {
		return maybeGunzip(gz)
	}
	return nil, err
}

type fixedResolver struct {
	name   string
	assets map[string][]byte
}

// Fixed resolves names from an in-memory map. Used in tests and by callers
// that fetch binaries themselves.
func Fixed(name string, assets map[string][]byte) Resolver {
	return &fixedResolver{name: name, assets: assets}
}

func (f *fixedResolver) Name() string {
	return f.name
}

func (f *fixedResolver) Resolve(name string) ([]byte, error) {
	data, ok := f.assets[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "asset", name)
	}
	return maybeGunzip(data)
}

// maybeGunzip decompresses data when it starts with the gzip magic bytes and
// returns it untouched otherwise.
func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResolve, errors.KindInvalidInput, err, "corrupt gzip asset")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResolve, errors.KindInvalidInput, err, "corrupt gzip asset")
	}
	return out, nil
}
