// Package testutil holds the fixture world shared by package tests: an
// in-memory filesystem with project files and binaries, an HCL catalog that
// registers them, and a fake version reader.
package testutil

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// GUIDs used throughout the fixtures.
const (
	StdOleLib      = "{00020430-0000-0000-C000-000000000046}"
	ComCtlLib      = "{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}"
	CommonLib      = "{12345678-1111-2222-3333-444444444444}"
	CommonAliasLib = "{33333333-1111-2222-3333-444444444444}"
	TypesLib       = "{22222222-1111-2222-3333-444444444444}"
	WidgetsLib     = "{12345678-AAAA-BBBB-CCCC-DDDDDDDDDDDD}"
	GridLib        = "{44444444-AAAA-BBBB-CCCC-DDDDDDDDDDDD}"

	TreeCtrlClass = "{C74190B6-8589-11D1-B16A-00C0F0283628}"
	CommonClass   = "{A0000001-0000-0000-0000-000000000001}"
	WidgetClass   = "{B0000001-0000-0000-0000-000000000001}"
	HiddenClass   = "{B0000002-0000-0000-0000-000000000002}"
	RemoteClass   = "{B0000003-0000-0000-0000-000000000003}"
	GridClass     = "{C0000001-0000-0000-0000-000000000001}"

	ITreeView   = "{C74190B5-8589-11D1-B16A-00C0F0283628}"
	ICommonObj  = "{A1000001-0000-0000-0000-000000000001}"
	IWidget     = "{B1000001-0000-0000-0000-000000000001}"
	IRemote     = "{B1000003-0000-0000-0000-000000000003}"
	UniversalPS = "{00020424-0000-0000-C000-000000000046}"
)

// CatalogSource registers every fixture binary. ${system} is /sys.
const CatalogSource = `
typelib "{00020430-0000-0000-C000-000000000046}" {
  version "2.0" {
    win32 = "${system}/stdole2.tlb"
  }
}

typelib "{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}" {
  version "2.0" {
    win32 = "${system}/MSCOMCTL.OCX"
  }
}

typelib "{12345678-1111-2222-3333-444444444444}" {
  version "1.0" {
    win32 = "/lib/old/Common.dll"
  }
  version "1.3" {
    win32 = "/lib/Common.dll"
  }
}

typelib "{33333333-1111-2222-3333-444444444444}" {
  version "1.0" {
    win32 = "/LIB/common.DLL"
  }
}

typelib "{22222222-1111-2222-3333-444444444444}" {
  version "1.0" {
    win32 = "/lib/Types.tlb"
  }
}

typelib "{12345678-AAAA-BBBB-CCCC-DDDDDDDDDDDD}" {
  version "1.0" {
    win32 = "/lib/Widgets.ocx"
  }
  version "1.1" {
    win32 = "/lib/Widgets11.ocx"
  }
}

class "{C74190B6-8589-11D1-B16A-00C0F0283628}" {
  threading_model            = "Apartment"
  progid                     = "MSComctlLib.TreeCtrl.2"
  version_independent_progid = "MSComctlLib.TreeCtrl"
  misc_status                = { default = 132497 }
}

progid "MSComctlLib.TreeCtrl" {
  cur_ver = "MSComctlLib.TreeCtrl.2"
}

class "{A0000001-0000-0000-0000-000000000001}" {
  threading_model = "Apartment"
  progid          = "Common.CommonObj"
}

class "{B0000001-0000-0000-0000-000000000001}" {
  threading_model = "Apartment"
  progid          = "Widgets.Widget"
  misc_status = {
    default = 132497
    icon    = 131473
  }
}

class "{B0000002-0000-0000-0000-000000000002}" {
  threading_model = "Both"
  progid          = "Widgets.Hidden"
}

class "{B0000003-0000-0000-0000-000000000003}" {
  progid = "Widgets.Remote"
}

class "{C0000001-0000-0000-0000-000000000001}" {
  threading_model = "Apartment"
  progid          = "Grid.GridCtrl"
}

interface "{C74190B5-8589-11D1-B16A-00C0F0283628}" {
  proxy_stub_clsid32 = "{00020424-0000-0000-C000-000000000046}"
}

interface "{B1000001-0000-0000-0000-000000000001}" {
  proxy_stub_clsid32 = "{00020424-0000-0000-C000-000000000046}"
}

library {
  path  = "${system}/MSCOMCTL.OCX"
  tlbid = "{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}"
  major = 2
  minor = 0
  flags = 10
  coclass "{C74190B6-8589-11D1-B16A-00C0F0283628}" {
    flags = 34
    default_interface {
      name = "ITreeView"
      iid  = "{C74190B5-8589-11D1-B16A-00C0F0283628}"
    }
  }
}

library {
  path  = "/lib/Common.dll"
  tlbid = "{12345678-1111-2222-3333-444444444444}"
  major = 1
  minor = 3
  flags = 8
  coclass "{A0000001-0000-0000-0000-000000000001}" {
    flags = 2
    default_interface {
      name = "_CommonObj"
      iid  = "{A1000001-0000-0000-0000-000000000001}"
    }
  }
}

library {
  path  = "/lib/Types.tlb"
  tlbid = "{22222222-1111-2222-3333-444444444444}"
  major = 1
  minor = 0
}

library {
  path  = "/lib/Widgets.ocx"
  tlbid = "{12345678-AAAA-BBBB-CCCC-DDDDDDDDDDDD}"
  major = 1
  minor = 0
  flags = 10
  coclass "{B0000001-0000-0000-0000-000000000001}" {
    flags = 34
    default_interface {
      name = "_Widget"
      iid  = "{B1000001-0000-0000-0000-000000000001}"
    }
  }
  coclass "{B0000002-0000-0000-0000-000000000002}" {
    flags = 18
  }
  coclass "{B0000003-0000-0000-0000-000000000003}" {
    flags = 2
    default_interface {
      name = "_Remote"
      iid  = "{B1000003-0000-0000-0000-000000000003}"
    }
  }
}

library {
  path  = "/bin/Grid.ocx"
  tlbid = "{44444444-AAAA-BBBB-CCCC-DDDDDDDDDDDD}"
  major = 4
  minor = 12
  flags = 10
  coclass "{C0000001-0000-0000-0000-000000000001}" {
    flags = 34
    default_interface {
      name = "_Widget"
      iid  = "{B1000001-0000-0000-0000-000000000001}"
    }
  }
}
`

// Reference and object lines used by the fixture projects.
var (
	StdOleReference = `*\G` + StdOleLib + `#2.0#0#C:\Windows\SysWOW64\stdole2.tlb#OLE Automation`
	CommonReference = `*\G` + CommonLib + `#1.0#0#..\lib\Common.dll#Common Library`
	CommonAliasRef  = `*\G` + CommonAliasLib + `#1.0#0#..\LIB\common.DLL#Common Alias`
	TypesReference  = `*\G` + TypesLib + `#1.0#0#..\lib\Types.tlb#Shared Types`
	ComCtlObject    = ComCtlLib + `#2.0#0; MSCOMCTL.OCX`
	WidgetsObject   = WidgetsLib + `#1.0#0; Widgets.ocx`
)

// FileVersions are the version resources of the fixture binaries.
var FileVersions = map[string]string{
	"/sys/MSCOMCTL.OCX": "6.1.98.39",
	"/lib/Common.dll":   "2.5.0.7",
	"/lib/Widgets.ocx":  "3.0.0.12",
	"/bin/Grid.ocx":     "4.12.0.205",
}

// SkipOnWindows skips tests whose fixture paths are rooted POSIX paths.
func SkipOnWindows(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixture paths are POSIX paths")
	}
}

// NewCatalog parses CatalogSource with ${system} bound to /sys.
func NewCatalog(t testing.TB) *directory.Catalog {
	t.Helper()
	c, err := directory.ParseCatalog([]byte(CatalogSource), "/registry/catalog.hcl", map[string]string{"system": "/sys"})
	require.NoError(t, err)
	return c
}

// NewFS returns an in-memory filesystem holding every fixture binary plus
// the given extra files.
func NewFS(t testing.TB, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for _, p := range []string{"/sys/stdole2.tlb", "/sys/MSCOMCTL.OCX", "/lib/Common.dll", "/lib/old/Common.dll", "/lib/Types.tlb", "/lib/Widgets.ocx", "/bin/Grid.ocx"} {
		require.NoError(t, util.WriteFile(fsys, p, []byte("MZ"), 0o644))
	}
	for p, content := range files {
		require.NoError(t, util.WriteFile(fsys, p, []byte(content), 0o644))
	}
	return fsys
}

// Project renders a descriptor with the given type, output and lines.
func Project(typ, exeName, path32, description string, refs, objects []string) string {
	s := "Type=" + typ + "\r\n"
	for _, r := range refs {
		s += "Reference=" + r + "\r\n"
	}
	for _, o := range objects {
		s += "Object=" + o + "\r\n"
	}
	s += "MajorVer=4\r\nMinorVer=12\r\nRevisionVer=205\r\n"
	s += `ExeName32="` + exeName + "\"\r\n"
	if path32 != "" {
		s += `Path32="` + path32 + "\"\r\n"
	}
	s += `Description="` + description + "\"\r\n"
	return s
}

// Versions is a fake version reader keyed by canonical path.
type Versions map[string]string

// FileVersion returns the recorded version or an error.
func (v Versions) FileVersion(path string) (string, error) {
	if s, ok := v[model.PathKey(path)]; ok {
		return s, nil
	}
	return "", fmt.Errorf("no version resource in %s", path)
}

// NewVersions returns a Versions fake holding FileVersions.
func NewVersions() Versions {
	v := Versions{}
	for p, s := range FileVersions {
		v[model.PathKey(p)] = s
	}
	return v
}
