package directory

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// Catalog is an offline snapshot of a component directory together with the
// type library contents of the files it registers. It is written in HCL:
//
//	typelib "{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}" {
//	  version "2.0" {
//	    win32 = "${system}/MSCOMCTL.OCX"
//	  }
//	}
//
//	class "{C74190B6-8589-11D1-B16A-00C0F0283628}" {
//	  threading_model            = "Apartment"
//	  progid                     = "MSComctlLib.TreeCtrl.2"
//	  version_independent_progid = "MSComctlLib.TreeCtrl"
//	  misc_status                = { default = 132497 }
//	}
//
//	progid "MSComctlLib.TreeCtrl" {
//	  cur_ver = "MSComctlLib.TreeCtrl.2"
//	}
//
//	interface "{C74190B5-8589-11D1-B16A-00C0F0283628}" {
//	  proxy_stub_clsid32 = "{00020424-0000-0000-C000-000000000046}"
//	}
//
//	library {
//	  path  = "${system}/MSCOMCTL.OCX"
//	  tlbid = "{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}"
//	  major = 2
//	  minor = 0
//	  flags = 10
//	  coclass "{C74190B6-8589-11D1-B16A-00C0F0283628}" {
//	    flags = 2
//	    default_interface {
//	      name = "ITreeView"
//	      iid  = "{C74190B5-8589-11D1-B16A-00C0F0283628}"
//	    }
//	  }
//	}
//
// Attribute values may reference the variables passed to ParseCatalog and
// catalog_dir, the directory holding the catalog. Relative paths are
// resolved against catalog_dir.
type Catalog struct {
	typeLibs   map[string][]TypeLibVersion
	classes    map[string]ClassRegistration
	progIDs    map[string]string
	interfaces map[string]string
	libraries  map[string]*TypeLibrary
}

type catalogFile struct {
	TypeLibs   []*typeLibBlock   `hcl:"typelib,block"`
	Classes    []*classBlock     `hcl:"class,block"`
	ProgIDs    []*progIDBlock    `hcl:"progid,block"`
	Interfaces []*interfaceBlock `hcl:"interface,block"`
	Libraries  []*libraryBlock   `hcl:"library,block"`
}

type typeLibBlock struct {
	ID       string                 `hcl:"id,label"`
	Versions []*typeLibVersionBlock `hcl:"version,block"`
}

type typeLibVersionBlock struct {
	Version string `hcl:"version,label"`
	Win32   string `hcl:"win32,optional"`
}

type classBlock struct {
	ID                       string         `hcl:"id,label"`
	ThreadingModel           string         `hcl:"threading_model,optional"`
	ProgID                   string         `hcl:"progid,optional"`
	VersionIndependentProgID string         `hcl:"version_independent_progid,optional"`
	MiscStatus               map[string]int `hcl:"misc_status,optional"`
}

type progIDBlock struct {
	ProgID string `hcl:"progid,label"`
	CurVer string `hcl:"cur_ver"`
}

type interfaceBlock struct {
	ID        string `hcl:"id,label"`
	ProxyStub string `hcl:"proxy_stub_clsid32,optional"`
}

type libraryBlock struct {
	Path      string          `hcl:"path"`
	TypeLib   string          `hcl:"tlbid"`
	Major     int             `hcl:"major"`
	Minor     int             `hcl:"minor"`
	Flags     int             `hcl:"flags,optional"`
	CoClasses []*coClassBlock `hcl:"coclass,block"`
}

type coClassBlock struct {
	ID               string                 `hcl:"id,label"`
	Flags            int                    `hcl:"flags,optional"`
	DefaultInterface *defaultInterfaceBlock `hcl:"default_interface,block"`
}

type defaultInterfaceBlock struct {
	Name string `hcl:"name"`
	IID  string `hcl:"iid"`
}

// miscStatusKeys maps catalog keys to misc-status context numbers.
var miscStatusKeys = map[string]int{
	"default":   0,
	"content":   1,
	"thumbnail": 2,
	"icon":      3,
	"docprint":  4,
}

// LoadCatalog reads and parses the catalog at path.
func LoadCatalog(fsys billy.Basic, path string, vars map[string]string) (*Catalog, error) {
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog %s: %w", path, err)
	}
	return ParseCatalog(src, path, vars)
}

// ParseCatalog parses catalog source. filename is used in diagnostics and
// to derive catalog_dir.
func ParseCatalog(src []byte, filename string, vars map[string]string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filename, diags)
	}

	catalogDir := filepath.Dir(filepath.FromSlash(filename))
	variables := map[string]cty.Value{
		"catalog_dir": cty.StringVal(filepath.ToSlash(catalogDir)),
	}
	for k, v := range vars {
		variables[k] = cty.StringVal(v)
	}
	evalCtx := &hcl.EvalContext{Variables: variables}

	var parsed catalogFile
	diags = gohcl.DecodeBody(file.Body, evalCtx, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", filename, diags)
	}

	return newCatalog(&parsed, catalogDir)
}

func newCatalog(f *catalogFile, catalogDir string) (*Catalog, error) {
	c := &Catalog{
		typeLibs:   map[string][]TypeLibVersion{},
		classes:    map[string]ClassRegistration{},
		progIDs:    map[string]string{},
		interfaces: map[string]string{},
		libraries:  map[string]*TypeLibrary{},
	}

	for _, tl := range f.TypeLibs {
		key := model.GUIDKey(tl.ID)
		for _, v := range tl.Versions {
			path, err := model.CanonicalPath(v.Win32, catalogDir)
			if err != nil {
				return nil, err
			}
			c.typeLibs[key] = append(c.typeLibs[key], TypeLibVersion{Version: v.Version, Path: path})
		}
	}

	for _, cl := range f.Classes {
		key := model.GUIDKey(cl.ID)
		if _, dup := c.classes[key]; dup {
			return nil, fmt.Errorf("duplicate class block %q", cl.ID)
		}
		reg := ClassRegistration{
			ThreadingModel:           cl.ThreadingModel,
			ProgID:                   cl.ProgID,
			VersionIndependentProgID: cl.VersionIndependentProgID,
		}
		for name, flags := range cl.MiscStatus {
			ctx, ok := miscStatusKeys[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("class %q: unknown misc_status context %q", cl.ID, name)
			}
			if reg.MiscStatus == nil {
				reg.MiscStatus = map[int]uint32{}
			}
			reg.MiscStatus[ctx] = uint32(flags)
		}
		c.classes[key] = reg
	}

	for _, p := range f.ProgIDs {
		key := strings.ToLower(p.ProgID)
		if _, dup := c.progIDs[key]; dup {
			return nil, fmt.Errorf("duplicate progid block %q", p.ProgID)
		}
		c.progIDs[key] = p.CurVer
	}

	for _, i := range f.Interfaces {
		key := model.GUIDKey(i.ID)
		if _, dup := c.interfaces[key]; dup {
			return nil, fmt.Errorf("duplicate interface block %q", i.ID)
		}
		c.interfaces[key] = i.ProxyStub
	}

	for _, l := range f.Libraries {
		path, err := model.CanonicalPath(l.Path, catalogDir)
		if err != nil {
			return nil, err
		}
		key := model.PathKey(path)
		if _, dup := c.libraries[key]; dup {
			return nil, fmt.Errorf("duplicate library block for %q", l.Path)
		}
		lib := &TypeLibrary{
			ID:           l.TypeLib,
			MajorVersion: l.Major,
			MinorVersion: l.Minor,
			Flags:        uint16(l.Flags),
		}
		for _, cc := range l.CoClasses {
			class := CoClass{ID: cc.ID, Flags: uint16(cc.Flags)}
			if cc.DefaultInterface != nil {
				class.DefaultInterface = &InterfaceInfo{Name: cc.DefaultInterface.Name, ID: cc.DefaultInterface.IID}
			}
			lib.Classes = append(lib.Classes, class)
		}
		c.libraries[key] = lib
	}

	return c, nil
}

// TypeLibPath implements ComponentDirectory. Versions compare case-insensitively,
// as registry key names do.
func (c *Catalog) TypeLibPath(typeLibID, hexVersion string) (string, error) {
	for _, v := range c.typeLibs[model.GUIDKey(typeLibID)] {
		if strings.EqualFold(v.Version, hexVersion) {
			return v.Path, nil
		}
	}
	return "", nil
}

// TypeLibVersions implements ComponentDirectory.
func (c *Catalog) TypeLibVersions(typeLibID string) ([]TypeLibVersion, error) {
	versions := c.typeLibs[model.GUIDKey(typeLibID)]
	out := make([]TypeLibVersion, len(versions))
	copy(out, versions)
	return out, nil
}

// Class implements ComponentDirectory.
func (c *Catalog) Class(classID string) (ClassRegistration, error) {
	return c.classes[model.GUIDKey(classID)], nil
}

// CurrentVersion implements ComponentDirectory.
func (c *Catalog) CurrentVersion(progID string) (string, error) {
	return c.progIDs[strings.ToLower(progID)], nil
}

// ProxyStub implements ComponentDirectory.
func (c *Catalog) ProxyStub(interfaceID string) (string, error) {
	return c.interfaces[model.GUIDKey(interfaceID)], nil
}

// Inspect implements Introspector.
func (c *Catalog) Inspect(path string) (*TypeLibrary, error) {
	canonical, err := model.CanonicalPath(path, "")
	if err != nil {
		return nil, err
	}
	lib, ok := c.libraries[model.PathKey(canonical)]
	if !ok {
		return nil, fmt.Errorf("no type library recorded for %s", path)
	}
	cp := *lib
	cp.Classes = append([]CoClass(nil), lib.Classes...)
	return &cp, nil
}
