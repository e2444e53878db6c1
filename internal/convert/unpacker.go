package convert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"linux-datamosh/internal/utils"
)

var ErrNotInPackage = errors.New("convert: entry not in package")

type FileEntry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Package is an opened Wallpaper Engine scene.pkg archive.
type Package struct {
	Version string
	Entries []FileEntry

	r         io.ReaderAt
	closer    io.Closer
	dataStart int64
}

func readPkgString(r io.Reader) (string, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func OpenPkg(pkgPath string) (*Package, error) {
	utils.Debug("Unpacker: Opening package %s", pkgPath)
	f, err := os.Open(pkgPath)
	if err != nil {
		return nil, err
	}
	pkg, err := ReadPkg(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", pkgPath, err)
	}
	pkg.closer = f
	return pkg, nil
}

// ReadPkg parses the package header from r. File data is read lazily.
func ReadPkg(r io.ReadSeeker) (*Package, error) {
	version, err := readPkgString(r)
	if err != nil {
		return nil, fmt.Errorf("convert: package version: %w", err)
	}
	utils.Debug("Unpacker: Package Version: %s", version)

	var fileCount uint32
	if err := binary.Read(r, binary.LittleEndian, &fileCount); err != nil {
		return nil, fmt.Errorf("convert: package file count: %w", err)
	}
	utils.Debug("Unpacker: File Count: %d", fileCount)

	entries := make([]FileEntry, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		name, err := readPkgString(r)
		if err != nil {
			return nil, fmt.Errorf("convert: package entry %d: %w", i, err)
		}
		var offset, size uint32
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return nil, fmt.Errorf("convert: package entry %s: %w", name, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("convert: package entry %s: %w", name, err)
		}
		entries = append(entries, FileEntry{Name: name, Offset: offset, Size: size})
	}

	dataStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	ra, ok := r.(io.ReaderAt)
	if !ok {
		return nil, fmt.Errorf("convert: package reader %T cannot read at offsets", r)
	}

	return &Package{
		Version:   version,
		Entries:   entries,
		r:         ra,
		dataStart: dataStart,
	}, nil
}

// Find returns the entry called name. Matching ignores a leading "./" and
// falls back to the first entry whose base name matches.
func (p *Package) Find(name string) (FileEntry, bool) {
	clean := strings.TrimPrefix(path.Clean(name), "./")
	for _, e := range p.Entries {
		if e.Name == clean {
			return e, true
		}
	}
	base := path.Base(clean)
	for _, e := range p.Entries {
		if path.Base(e.Name) == base {
			return e, true
		}
	}
	return FileEntry{}, false
}

// Open returns a reader over the entry called name.
func (p *Package) Open(name string) (*io.SectionReader, error) {
	e, ok := p.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInPackage, name)
	}
	return io.NewSectionReader(p.r, p.dataStart+int64(e.Offset), int64(e.Size)), nil
}

func (p *Package) ReadFile(name string) ([]byte, error) {
	sr, err := p.Open(name)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(sr)
}

// FirstWithSuffix returns the first entry whose name ends in suffix.
func (p *Package) FirstWithSuffix(suffix string) (FileEntry, bool) {
	for _, e := range p.Entries {
		if strings.HasSuffix(e.Name, suffix) {
			return e, true
		}
	}
	return FileEntry{}, false
}

func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
