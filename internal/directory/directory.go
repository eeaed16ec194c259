// Package directory defines the two external collaborators of manifest
// generation, the Component Directory and the Type Library Introspector, and
// provides implementations backed by the Windows registry and by an HCL
// catalog file.
package directory

// TypeLibVersion is one registered version of a type library.
type TypeLibVersion struct {
	Version string // hex major.minor as registered, e.g. "2.0", "1.a"
	Path    string // win32 file path; empty when the version has none
}

// ClassRegistration is what the directory knows about a COM class. Empty
// fields mean the value is not registered.
type ClassRegistration struct {
	ThreadingModel           string
	ProgID                   string
	VersionIndependentProgID string
	// MiscStatus holds raw flag values per misc-status context (0..4).
	MiscStatus map[int]uint32
}

// ComponentDirectory maps type libraries, classes and interfaces to their
// registrations. Lookups of absent entries return zero values, not errors;
// errors are reserved for failures of the directory itself.
type ComponentDirectory interface {
	// TypeLibPath returns the win32 path registered for an exact version.
	TypeLibPath(typeLibID, hexVersion string) (string, error)
	// TypeLibVersions enumerates all registered versions of a type library
	// in directory order.
	TypeLibVersions(typeLibID string) ([]TypeLibVersion, error)
	// Class returns the registration of a COM class.
	Class(classID string) (ClassRegistration, error)
	// CurrentVersion returns the CurVer ProgID registered for progID.
	CurrentVersion(progID string) (string, error)
	// ProxyStub returns the ProxyStubClsid32 registered for an interface.
	ProxyStub(interfaceID string) (string, error)
}

// TypeLibrary is the introspected content of a binary's type library.
type TypeLibrary struct {
	ID           string
	MajorVersion int
	MinorVersion int
	Flags        uint16 // LIBFLAGS
	Classes      []CoClass
}

// CoClass is a class exposed by a type library.
type CoClass struct {
	ID               string
	Flags            uint16 // TYPEFLAGS
	DefaultInterface *InterfaceInfo
}

// InterfaceInfo names an interface.
type InterfaceInfo struct {
	Name string
	ID   string
}

// Introspector reads the type library embedded in (or stored as) a file.
type Introspector interface {
	Inspect(path string) (*TypeLibrary, error)
}

var (
	_ ComponentDirectory = (*Catalog)(nil)
	_ Introspector       = (*Catalog)(nil)
)
