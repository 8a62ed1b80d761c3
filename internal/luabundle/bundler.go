// SPDX-License-Identifier: MPL-2.0

package luabundle

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// RootModuleName is the table key of the entry module.
	RootModuleName = "__root"

	// defaultCacheSize bounds the number of parsed modules remembered
	// between Bundle calls.
	defaultCacheSize = 512
)

type (
	// Module is one file included in a bundle.
	Module struct {
		// Name is the table key the module is registered under.
		Name string
		// Path is the canonical (absolute, symlink-free) source path.
		Path string
		// Aliases are other require names that resolved to the same file.
		Aliases []string
		// Requires lists the literal module names the file requires, in
		// source order, without duplicates.
		Requires []string
		// Externals lists required names left to the host interpreter.
		Externals []string

		source []byte
	}

	// Result is a successful bundle.
	Result struct {
		// Source is the bundled Lua program.
		Source []byte
		// Modules are the included modules in registration order; the entry
		// module comes last.
		Modules []Module
		// Warnings are the non-literal requires tolerated under PolicyWarn.
		Warnings []DynamicReference
		// Dialect is the interpreter flavour the bundle was scanned for.
		Dialect Dialect
	}

	// Bundler builds bundles. It keeps a bounded cache of parsed modules so
	// repeated builds (watch mode) only re-parse files whose content changed.
	// A Bundler is not safe for concurrent use.
	Bundler struct {
		cache  *lru.Cache[string, scanEntry]
		logger *log.Logger
	}

	// BundlerOption configures a Bundler.
	BundlerOption func(*Bundler)

	scanEntry struct {
		digest [sha256.Size]byte
		refs   []reference
	}

	// session holds the state of one Bundle call.
	session struct {
		b         *Bundler
		opts      Options
		baseDir   string
		externals map[string]bool
		byName    map[string]*Module
		byPath    map[string]*Module
		discovery []*Module
		graph     *moduleGraph
		warnings  []DynamicReference
	}
)

// WithLogger sets the logger for debug output.
func WithLogger(logger *log.Logger) BundlerOption {
	return func(b *Bundler) {
		b.logger = logger
	}
}

// WithCacheSize sets the parse cache capacity.
func WithCacheSize(size int) BundlerOption {
	return func(b *Bundler) {
		if size <= 0 {
			size = defaultCacheSize
		}
		cache, err := lru.New[string, scanEntry](size)
		if err == nil {
			b.cache = cache
		}
	}
}

// New creates a Bundler.
func New(opts ...BundlerOption) *Bundler {
	b := &Bundler{}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		// lru.New only fails for non-positive sizes.
		b.cache, _ = lru.New[string, scanEntry](defaultCacheSize)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}
	return b
}

// Bundle inlines entryFile and every module it statically requires.
func (b *Bundler) Bundle(entryFile string, opts Options) (*Result, error) {
	if err := opts.Dialect.Validate(); err != nil {
		return nil, err
	}

	entryPath, err := canonicalPath(entryFile)
	if err != nil {
		return nil, &EntryNotFoundError{Path: entryFile, Err: err}
	}
	info, err := os.Stat(entryPath)
	if err != nil {
		return nil, &EntryNotFoundError{Path: entryFile, Err: err}
	}
	if info.IsDir() {
		return nil, &EntryNotFoundError{Path: entryFile, Err: errors.New("is a directory")}
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(entryFile)
	}
	if baseDir, err = filepath.Abs(baseDir); err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	// Module paths are symlink-free, so the base must be too for
	// displayPath to produce relative names.
	if resolved, evalErr := filepath.EvalSymlinks(baseDir); evalErr == nil {
		baseDir = resolved
	}

	s := &session{
		b:         b,
		opts:      opts,
		baseDir:   baseDir,
		externals: make(map[string]bool, len(opts.Externals)),
		byName:    make(map[string]*Module),
		byPath:    make(map[string]*Module),
		graph:     newModuleGraph(),
	}
	for _, name := range opts.Externals {
		s.externals[name] = true
	}

	root := s.add(RootModuleName, entryPath)
	if err := s.visit(root); err != nil {
		return nil, err
	}

	modules := s.ordered()
	src, err := emit(modules, s.displayPath(entryPath))
	if err != nil {
		return nil, err
	}

	result := &Result{
		Source:   src,
		Modules:  make([]Module, 0, len(modules)),
		Warnings: s.warnings,
		Dialect:  opts.Dialect.orDefault(),
	}
	for _, m := range modules {
		result.Modules = append(result.Modules, *m)
	}
	return result, nil
}

// add registers a newly discovered file under name.
func (s *session) add(name, path string) *Module {
	m := &Module{Name: name, Path: path}
	s.byName[name] = m
	s.byPath[path] = m
	s.discovery = append(s.discovery, m)
	s.graph.addNode(name)
	return m
}

// visit loads m, then follows its requires depth-first in source order.
func (s *session) visit(m *Module) error {
	src, refs, err := s.b.scan(m.Path, s.displayPath(m.Path))
	if err != nil {
		return err
	}
	m.source = src

	for _, ref := range refs {
		if !ref.literal {
			dyn := DynamicReference{
				Module: s.moduleLabel(m),
				File:   s.displayPath(m.Path),
				Line:   ref.line,
				Expr:   ref.expr,
			}
			if s.opts.Policy == PolicyAbort {
				return &DynamicReferenceError{Ref: dyn}
			}
			s.b.logger.Warn("non-literal require", "module", dyn.Module, "file", dyn.File, "line", dyn.Line, "expr", dyn.Expr)
			s.warnings = append(s.warnings, dyn)
			continue
		}

		if s.externals[ref.name] {
			if !slices.Contains(m.Externals, ref.name) {
				m.Externals = append(m.Externals, ref.name)
			}
			continue
		}
		if !slices.Contains(m.Requires, ref.name) {
			m.Requires = append(m.Requires, ref.name)
		}

		dep, isNew, err := s.resolve(ref, m)
		if err != nil {
			return err
		}
		s.graph.addEdge(dep.Name, m.Name)
		if isNew {
			if err := s.visit(dep); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve maps a literal require name to a module, registering new files
// and aliases as it goes.
func (s *session) resolve(ref reference, from *Module) (*Module, bool, error) {
	if m, ok := s.byName[ref.name]; ok {
		return m, false, nil
	}

	path, tried := s.search(ref.name)
	if path == "" {
		return nil, false, &UnresolvedModuleError{
			Name:  ref.name,
			From:  s.displayPath(from.Path),
			Line:  ref.line,
			Tried: tried,
		}
	}

	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("resolve module %q: %w", ref.name, err)
	}
	if m, ok := s.byPath[canonical]; ok {
		m.Aliases = append(m.Aliases, ref.name)
		s.byName[ref.name] = m
		return m, false, nil
	}
	return s.add(ref.name, canonical), true, nil
}

// search tries each template in order and returns the first existing file
// together with the candidates it tried.
func (s *session) search(name string) (string, []string) {
	substituted := strings.ReplaceAll(name, ".", string(filepath.Separator))
	tried := make([]string, 0, len(s.opts.SearchPaths))
	for _, template := range s.opts.SearchPaths {
		candidate := filepath.FromSlash(strings.ReplaceAll(template, "?", substituted))
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(s.baseDir, candidate)
		}
		tried = append(tried, s.displayPath(candidate))
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, tried
		}
	}
	return "", tried
}

// ordered returns modules dependency-first. Require cycles are legal in Lua
// when the requires run lazily, so a cycle falls back to discovery order,
// which the runtime shim serves just as well.
func (s *session) ordered() []*Module {
	names, err := s.graph.order()
	if err != nil {
		s.b.logger.Warn("falling back to discovery order", "reason", err)
		rest := make([]*Module, 0, len(s.discovery))
		rest = append(rest, s.discovery[1:]...)
		return append(rest, s.discovery[0])
	}
	modules := make([]*Module, 0, len(names))
	for _, name := range names {
		modules = append(modules, s.byName[name])
	}
	return modules
}

func (s *session) moduleLabel(m *Module) string {
	if m.Name == RootModuleName {
		return strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
	}
	return m.Name
}

// displayPath renders path relative to the base directory with forward
// slashes, so messages and bundle headers do not depend on the checkout
// location.
func (s *session) displayPath(path string) string {
	if rel, err := filepath.Rel(s.baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// scan reads a module and returns its source and require calls, consulting
// the parse cache by content digest.
func (b *Bundler) scan(path, display string) ([]byte, []reference, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read module %s: %w", display, err)
	}
	src := stripShebang(raw)
	digest := sha256.Sum256(src)

	if cached, ok := b.cache.Get(path); ok && cached.digest == digest {
		return src, cached.refs, nil
	}

	chunk, err := parseChunk(src, display)
	if err != nil {
		return nil, nil, err
	}
	refs := findRequires(chunk)
	b.cache.Add(path, scanEntry{digest: digest, refs: refs})
	b.logger.Debug("scanned module", "file", display, "requires", len(refs))
	return src, refs, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
