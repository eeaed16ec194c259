// Package identity extracts what a manifest needs to know about a binary:
// its four-part file version and, when the binary is inlined, the COM classes
// and interfaces its type library exposes.
package identity

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/go-git/go-billy/v5"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
)

// VersionReader returns the file version of a binary as major.minor.build.private.
type VersionReader interface {
	FileVersion(path string) (string, error)
}

// PEVersionReader reads the VS_FIXEDFILEINFO block of a PE image's version
// resource.
type PEVersionReader struct {
	FS billy.Basic
}

const (
	resourceDirectoryEntry = 2  // IMAGE_DIRECTORY_ENTRY_RESOURCE
	resourceTypeVersion    = 16 // RT_VERSION
	fixedFileInfoSignature = 0xFEEF04BD
	fixedFileInfoSize      = 52
	subdirectoryFlag       = 0x80000000
	maxResourceDepth       = 3
)

var versionInfoKey = "VS_VERSION_INFO"

// FileVersion implements VersionReader.
func (r PEVersionReader) FileVersion(path string) (string, error) {
	f, err := r.FS.Open(path)
	if err != nil {
		return "", errs.Wrap(err, errs.KindInputFileMissing, "cannot open binary").WithPath(path)
	}
	defer f.Close()

	v, err := ReadFileVersion(f)
	if err != nil {
		return "", errs.Wrap(err, errs.KindVersionInfoUnavailable, "binary carries no version resource").WithPath(path)
	}
	return v, nil
}

// ReadFileVersion parses a PE image and formats the file version stored in
// its RT_VERSION resource.
func ReadFileVersion(ra io.ReaderAt) (string, error) {
	f, err := pe.NewFile(ra)
	if err != nil {
		return "", fmt.Errorf("not a PE image: %w", err)
	}
	defer f.Close()

	sec, base := resourceSection(f)
	if sec == nil {
		return "", errors.New("no resource section")
	}
	data, err := sec.Data()
	if err != nil {
		return "", fmt.Errorf("cannot read resource section: %w", err)
	}
	off := base - sec.VirtualAddress

	rva, size, err := findVersionResource(data, off)
	if err != nil {
		return "", err
	}
	start := rva - sec.VirtualAddress
	if rva < sec.VirtualAddress || uint64(start)+uint64(size) > uint64(len(data)) {
		return "", errors.New("version resource lies outside the resource section")
	}
	ms, ls, err := parseFixedFileInfo(data[start : start+size])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d.%d", ms>>16, ms&0xFFFF, ls>>16, ls&0xFFFF), nil
}

// resourceSection returns the section holding the resource directory and the
// directory's RVA. Images without an optional header fall back to .rsrc.
func resourceSection(f *pe.File) (*pe.Section, uint32) {
	var rva uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > resourceDirectoryEntry {
			rva = oh.DataDirectory[resourceDirectoryEntry].VirtualAddress
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > resourceDirectoryEntry {
			rva = oh.DataDirectory[resourceDirectoryEntry].VirtualAddress
		}
	}
	if rva != 0 {
		for _, s := range f.Sections {
			if rva >= s.VirtualAddress && rva < s.VirtualAddress+max(s.VirtualSize, s.Size) {
				return s, rva
			}
		}
	}
	if s := f.Section(".rsrc"); s != nil {
		return s, s.VirtualAddress
	}
	return nil, 0
}

// findVersionResource walks the type/name/language directory levels starting
// at off and returns the RVA and size of the first RT_VERSION data entry.
func findVersionResource(data []byte, off uint32) (uint32, uint32, error) {
	root := off
	dir := off
	for depth := 0; depth < maxResourceDepth; depth++ {
		if uint64(dir)+16 > uint64(len(data)) {
			return 0, 0, errors.New("truncated resource directory")
		}
		named := binary.LittleEndian.Uint16(data[dir+12:])
		ids := binary.LittleEndian.Uint16(data[dir+14:])
		count := uint32(named) + uint32(ids)

		next, found := uint32(0), false
		for i := uint32(0); i < count; i++ {
			e := dir + 16 + i*8
			if uint64(e)+8 > uint64(len(data)) {
				return 0, 0, errors.New("truncated resource directory entry")
			}
			name := binary.LittleEndian.Uint32(data[e:])
			target := binary.LittleEndian.Uint32(data[e+4:])
			if depth == 0 && name != resourceTypeVersion {
				continue
			}
			next, found = target, true
			break
		}
		if !found {
			return 0, 0, errors.New("no RT_VERSION resource")
		}
		if depth < maxResourceDepth-1 {
			if next&subdirectoryFlag == 0 {
				return 0, 0, errors.New("malformed resource tree")
			}
			dir = root + next&^subdirectoryFlag
			continue
		}
		if next&subdirectoryFlag != 0 {
			return 0, 0, errors.New("malformed resource tree")
		}
		entry := root + next
		if uint64(entry)+16 > uint64(len(data)) {
			return 0, 0, errors.New("truncated resource data entry")
		}
		return binary.LittleEndian.Uint32(data[entry:]), binary.LittleEndian.Uint32(data[entry+4:]), nil
	}
	return 0, 0, errors.New("no RT_VERSION resource")
}

// parseFixedFileInfo reads FileVersionMS and FileVersionLS from a
// VS_VERSIONINFO block.
func parseFixedFileInfo(block []byte) (uint32, uint32, error) {
	keyStart := 6
	keyBytes := encodeUTF16(versionInfoKey)
	if len(block) < keyStart+len(keyBytes) || !bytes.Equal(block[keyStart:keyStart+len(keyBytes)], keyBytes) {
		return 0, 0, errors.New("version resource lacks the VS_VERSION_INFO key")
	}
	valueLen := int(binary.LittleEndian.Uint16(block[2:]))
	if valueLen < fixedFileInfoSize {
		return 0, 0, errors.New("version resource has no fixed file info")
	}
	off := align4(keyStart + len(keyBytes) + 2)
	if len(block) < off+fixedFileInfoSize {
		return 0, 0, errors.New("truncated fixed file info")
	}
	info := block[off:]
	if binary.LittleEndian.Uint32(info) != fixedFileInfoSignature {
		return 0, 0, errors.New("bad fixed file info signature")
	}
	return binary.LittleEndian.Uint32(info[8:]), binary.LittleEndian.Uint32(info[12:]), nil
}

func encodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return b
}

func align4(n int) int { return (n + 3) &^ 3 }
