package model

import "strings"

// InterfaceRecord describes an interface that needs a
// comInterfaceExternalProxyStub element.
type InterfaceRecord struct {
	Name        string
	InterfaceID string
}

// InterfaceSet is an insertion-ordered set of interfaces keyed by interface
// id. The first record added for an id wins.
type InterfaceSet struct {
	records []InterfaceRecord
	index   map[string]int
}

// NewInterfaceSet returns an empty set.
func NewInterfaceSet() *InterfaceSet {
	return &InterfaceSet{index: map[string]int{}}
}

// Add records r unless an interface with the same id is already present. It
// reports whether r was added.
func (s *InterfaceSet) Add(r InterfaceRecord) bool {
	key := GUIDKey(r.InterfaceID)
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.records)
	s.records = append(s.records, r)
	return true
}

// Len returns the number of distinct interfaces.
func (s *InterfaceSet) Len() int { return len(s.records) }

// Records returns a copy of the records in insertion order.
func (s *InterfaceSet) Records() []InterfaceRecord {
	out := make([]InterfaceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// GUIDKey normalizes a GUID for comparisons: upper case, braces kept as given.
func GUIDKey(guid string) string {
	return strings.ToUpper(strings.TrimSpace(guid))
}

// MiscStatusContext numbers the OLE misc-status aspects a class can register
// flags for. The names double as manifest attribute names.
type MiscStatusContext int

const (
	MiscStatusDefault MiscStatusContext = iota
	MiscStatusContent
	MiscStatusThumbnail
	MiscStatusIcon
	MiscStatusDocPrint
)

// MiscStatusContexts lists every context in emission order.
var MiscStatusContexts = []MiscStatusContext{
	MiscStatusDefault,
	MiscStatusContent,
	MiscStatusThumbnail,
	MiscStatusIcon,
	MiscStatusDocPrint,
}

// AttributeName returns the comClass attribute carrying this context's flags.
func (c MiscStatusContext) AttributeName() string {
	switch c {
	case MiscStatusContent:
		return "miscStatusContent"
	case MiscStatusThumbnail:
		return "miscStatusThumbnail"
	case MiscStatusIcon:
		return "miscStatusIcon"
	case MiscStatusDocPrint:
		return "miscStatusDocPrint"
	default:
		return "miscStatus"
	}
}

// MiscStatusFlags is one context's formatted flag set, e.g.
// "recomposeOnResize,insideOut".
type MiscStatusFlags struct {
	Context MiscStatusContext
	Flags   string
}

// ComClassRecord is one comClass element. When CurrentVersionProgID is set it
// becomes the progid attribute and ProgID moves to a nested progid element.
type ComClassRecord struct {
	ClassID              string
	TypeLibraryID        string
	ProgID               string // version-independent ProgID, else plain ProgID
	CurrentVersionProgID string // CurVer of ProgID, if registered
	ThreadingModel       string
	MiscStatus           []MiscStatusFlags // non-zero contexts, context order
	DefaultInterface     *InterfaceRecord
}

// TypeLibRecord is one typelib element.
type TypeLibRecord struct {
	TypeLibraryID string
	Version       string // decimal major.minor
	Flags         string // formatted LIBFLAGS
}
