package model

// EntryKind selects which element a ManifestEntry renders as.
type EntryKind int

const (
	// DependencyEntry renders as dependency/dependentAssembly/assemblyIdentity.
	DependencyEntry EntryKind = iota
	// FileEntry renders as file with typelib and comClass children.
	FileEntry
)

func (k EntryKind) String() string {
	if k == FileEntry {
		return "file"
	}
	return "dependency"
}

// ManifestEntry is one element of the manifest body, in discovery order.
type ManifestEntry struct {
	Kind EntryKind

	// Dependency entries carry either a resolved identity or a caller
	// supplied assemblyIdentity element that is written verbatim.
	Identity    *AssemblyIdentity
	RawIdentity string

	// File entries.
	FileName string // base name written in the name attribute
	FilePath string // canonical path the entry was built from
	TypeLib  *TypeLibRecord
	Classes  []ComClassRecord
}

// DependencySet is the output of the dependency set builder: the ordered
// entries plus the interfaces collected across all of them.
type DependencySet struct {
	Entries    []ManifestEntry
	Interfaces *InterfaceSet
}

// NewDependencySet returns an empty set.
func NewDependencySet() *DependencySet {
	return &DependencySet{Interfaces: NewInterfaceSet()}
}
