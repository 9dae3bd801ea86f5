// Package loader finds class files by name in directories and zip archives
// (jar and jmod) and decodes them with the classfile package.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// ErrClassNotFound is returned when no loader in the chain has the class.
var ErrClassNotFound = errors.New("class not found")

// jmodMagic prefixes the zip data of a .jmod file.
var jmodMagic = []byte{'J', 'M', 0x01, 0x00}

// ClassLoader loads .class files by internal class name, e.g. "java/lang/Object".
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

type classCache struct {
	mu      sync.RWMutex
	classes map[string]*classfile.ClassFile
}

func (c *classCache) get(name string) (*classfile.ClassFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cf, ok := c.classes[name]
	return cf, ok
}

func (c *classCache) put(name string, cf *classfile.ClassFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.classes == nil {
		c.classes = make(map[string]*classfile.ClassFile)
	}
	c.classes[name] = cf
}

// ArchiveLoader loads classes from a jar or a JDK jmod file.
type ArchiveLoader struct {
	path    string
	conf    *Config
	dec     *decoder
	entries map[string]*zip.File
	cache   classCache
}

// NewArchiveLoader opens the archive at path and indexes its .class entries.
func NewArchiveLoader(path string, conf *Config) (*ArchiveLoader, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", path, err)
	}

	prefix := ""
	if bytes.HasPrefix(data, jmodMagic) {
		data = data[len(jmodMagic):]
		prefix = "classes/"
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: opening zip %s: %w", path, err)
	}

	l := &ArchiveLoader{
		path:    path,
		conf:    conf,
		dec:     newDecoder(conf),
		entries: make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f.Name, prefix), ".class")
		l.entries[name] = f
	}
	conf.Logger.Debug("archive opened", zap.String("path", path), zap.Int("classes", len(l.entries)))
	return l, nil
}

// Names returns the class names in the archive, sorted.
func (l *ArchiveLoader) Names() []string {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *ArchiveLoader) read(name string) ([]byte, error) {
	f, ok := l.entries[name]
	if !ok {
		return nil, fmt.Errorf("archive: %s in %s: %w", name, l.path, ErrClassNotFound)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", f.Name, err)
	}
	return data, nil
}

// Sources reads every class in the archive, in Names order.
func (l *ArchiveLoader) Sources() ([]Source, error) {
	names := l.Names()
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		data, err := l.read(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{Name: name, Data: data})
	}
	return sources, nil
}

func (l *ArchiveLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := l.cache.get(name); ok {
		return cf, nil
	}
	data, err := l.read(name)
	if err != nil {
		return nil, err
	}
	r, err := l.dec.decode(Source{Name: name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("archive: parsing %s: %w", name, err)
	}
	l.cache.put(name, r.Class)
	return r.Class, nil
}

// DirLoader loads user classes from a classpath directory, delegating to the
// parent first when one is set.
type DirLoader struct {
	ClassPath string
	Parent    ClassLoader

	conf  *Config
	dec   *decoder
	cache classCache
}

// NewDirLoader creates a DirLoader. parent may be nil.
func NewDirLoader(classPath string, parent ClassLoader, conf *Config) (*DirLoader, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &DirLoader{
		ClassPath: classPath,
		Parent:    parent,
		conf:      conf,
		dec:       newDecoder(conf),
	}, nil
}

func (l *DirLoader) LoadClass(name string) (*classfile.ClassFile, error) {
	if cf, ok := l.cache.get(name); ok {
		return cf, nil
	}
	if l.Parent != nil {
		cf, err := l.Parent.LoadClass(name)
		if err == nil {
			return cf, nil
		}
		if !errors.Is(err, ErrClassNotFound) {
			return nil, err
		}
	}

	rel := filepath.FromSlash(name) + ".class"
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("dir: %s: outside class path: %w", name, ErrClassNotFound)
	}
	path := filepath.Join(l.ClassPath, rel)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dir: %s: %w", name, ErrClassNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("dir: reading %s: %w", path, err)
	}
	r, err := l.dec.decode(Source{Name: name, Data: data})
	if err != nil {
		return nil, fmt.Errorf("dir: parsing %s: %w", name, err)
	}
	l.cache.put(name, r.Class)
	return r.Class, nil
}

// Sources reads every .class file below ClassPath. Names are slash-separated
// paths relative to ClassPath without the extension.
func (l *DirLoader) Sources() ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(l.ClassPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(l.ClassPath, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sources = append(sources, Source{
			Name: strings.TrimSuffix(filepath.ToSlash(rel), ".class"),
			Data: data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dir: walking %s: %w", l.ClassPath, err)
	}
	return sources, nil
}
