// Package model defines the data structures that flow through one manifest
// generation run.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ComponentType is the kind of component a project descriptor builds.
type ComponentType int

const (
	ComponentUnknown ComponentType = iota
	Executable                     // Type=Exe
	ActiveXLibrary                 // Type=OleDll
	ActiveXControl                 // Type=Control
)

func (t ComponentType) String() string {
	switch t {
	case Executable:
		return "Exe"
	case ActiveXLibrary:
		return "OleDll"
	case ActiveXControl:
		return "Control"
	default:
		return "unknown"
	}
}

// IsActiveX reports whether the component is a library or control, i.e. a
// component that exposes COM classes of its own.
func (t ComponentType) IsActiveX() bool {
	return t == ActiveXLibrary || t == ActiveXControl
}

// ProjectDescriptor is the parsed form of one project file.
type ProjectDescriptor struct {
	ComponentType   ComponentType
	MajorVersion    int
	MinorVersion    int
	RevisionVersion int
	Description     string
	OutputFileName  string   // ExeName32
	OutputDirectory string   // Path32, as written
	ReferenceTokens []string // raw Reference= values, file order
	ObjectTokens    []string // raw Object= values, file order
}

// Version returns the four-part assembly version major.minor.0.revision.
func (p *ProjectDescriptor) Version() string {
	return fmt.Sprintf("%d.%d.0.%d", p.MajorVersion, p.MinorVersion, p.RevisionVersion)
}

// AssemblyName returns the output file name without its extension.
func (p *ProjectDescriptor) AssemblyName() string {
	return BaseNameWithoutExt(p.OutputFileName)
}

// ReferenceKind distinguishes Reference= lines from Object= lines; the two
// are resolved with different version policies.
type ReferenceKind int

const (
	TypeLibReference ReferenceKind = iota // Reference=
	ObjectReference                       // Object=
)

func (k ReferenceKind) String() string {
	if k == ObjectReference {
		return "object"
	}
	return "reference"
}

// ComponentReference is the identity extracted from one raw token.
type ComponentReference struct {
	Kind               ReferenceKind
	TypeLibraryID      string // braced GUID as it appeared in the token
	TypeLibraryVersion string // hex major.minor, e.g. "FF.10"
	Token              string
}

// Fixed identity attributes of every win32 assembly this tool writes.
const (
	ProcessorArchitecture = "X86"
	AssemblyType          = "win32"
)

// AssemblyIdentity identifies an assembly in assemblyIdentity elements.
type AssemblyIdentity struct {
	Name           string
	Version        string // four-part dotted
	PublicKeyToken string // optional
}

// ResolutionOutcome describes what a resolved reference contributes.
type ResolutionOutcome int

const (
	// ResolvedBinary is a loadable binary: a dependency or an inlined file.
	ResolvedBinary ResolutionOutcome = iota
	// ResolvedTypeLibOnly is a standalone .tlb: no dependency, typelib only.
	ResolvedTypeLibOnly
	// Excluded is a platform-ubiquitous library that is never side-by-sided.
	Excluded
)

func (o ResolutionOutcome) String() string {
	switch o {
	case ResolvedBinary:
		return "binary"
	case ResolvedTypeLibOnly:
		return "typelib"
	default:
		return "excluded"
	}
}

// ResolvedComponent is a reference resolved against the component directory.
type ResolvedComponent struct {
	Outcome   ResolutionOutcome
	Reference ComponentReference
	FilePath  string // canonical; empty when Excluded
}

// CanonicalPath normalizes a file path written in either Windows or host
// notation: separators are converted, relative paths are resolved against
// baseDir (or the working directory when baseDir is empty) and the result is
// cleaned. A path starting with a separator is rooted on the current drive
// and never joined under baseDir.
func CanonicalPath(path, baseDir string) (string, error) {
	if path == "" {
		return "", nil
	}
	p := filepath.FromSlash(strings.ReplaceAll(path, `\`, "/"))
	if !filepath.IsAbs(p) && !hasDriveLetter(p) {
		if baseDir != "" && !strings.HasPrefix(p, string(filepath.Separator)) {
			p = filepath.Join(baseDir, p)
		}
		if !filepath.IsAbs(p) && !hasDriveLetter(p) {
			abs, err := filepath.Abs(p)
			if err != nil {
				return "", fmt.Errorf("cannot make %q absolute: %w", path, err)
			}
			p = abs
		}
	}
	return filepath.Clean(p), nil
}

// PathKey returns a normalized map key for a canonical path: lowercase, with
// forward slashes, so that paths differing only in case or separator collapse
// to the same key.
func PathKey(path string) string {
	return strings.ToLower(filepath.ToSlash(path))
}

// BaseName returns the last element of a path written in either notation.
func BaseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(filepath.FromSlash(strings.ReplaceAll(path, `\`, "/")))
}

// BaseNameWithoutExt returns BaseName without its final extension.
func BaseNameWithoutExt(path string) string {
	base := BaseName(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}
