package model

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectDescriptorVersion(t *testing.T) {
	p := &ProjectDescriptor{MajorVersion: 1, MinorVersion: 2, RevisionVersion: 3, OutputFileName: "App.exe"}
	assert.Equal(t, "1.2.0.3", p.Version())
	assert.Equal(t, "App", p.AssemblyName())

	p.OutputFileName = "App"
	assert.Equal(t, "App", p.AssemblyName())
}

func TestCanonicalPathCollapsesEquivalentSpellings(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix path fixtures")
	}
	a, err := CanonicalPath(`/proj/bin/../lib/Widget.ocx`, "")
	require.NoError(t, err)
	b, err := CanonicalPath(`..\lib\WIDGET.OCX`, "/proj/src")
	require.NoError(t, err)

	assert.Equal(t, filepath.FromSlash("/proj/lib/Widget.ocx"), a)
	assert.Equal(t, PathKey(a), PathKey(b))
}

func TestCanonicalPathRootedWithoutDrive(t *testing.T) {
	want, err := filepath.Abs(filepath.FromSlash("/bin/Grid.ocx"))
	require.NoError(t, err)

	got, err := CanonicalPath(`\bin\Grid.ocx`, filepath.FromSlash("/src"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = CanonicalPath(`/bin/Grid.ocx`, filepath.FromSlash("/src"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCanonicalPathEmpty(t *testing.T) {
	p, err := CanonicalPath("", "/x")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestBaseNameHandlesBackslashes(t *testing.T) {
	assert.Equal(t, "MSCOMCTL.OCX", BaseName(`C:\Windows\SysWOW64\MSCOMCTL.OCX`))
	assert.Equal(t, "MSCOMCTL", BaseNameWithoutExt(`C:\Windows\SysWOW64\MSCOMCTL.OCX`))
	assert.Equal(t, "", BaseName(""))
}

func TestInterfaceSetFirstOccurrenceWins(t *testing.T) {
	s := NewInterfaceSet()
	assert.True(t, s.Add(InterfaceRecord{Name: "_Widget", InterfaceID: "{AAAAAAAA-0000-0000-0000-000000000001}"}))
	assert.True(t, s.Add(InterfaceRecord{Name: "_Gadget", InterfaceID: "{AAAAAAAA-0000-0000-0000-000000000002}"}))
	assert.False(t, s.Add(InterfaceRecord{Name: "_Other", InterfaceID: "{aaaaaaaa-0000-0000-0000-000000000001}"}))

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "_Widget", recs[0].Name)
	assert.Equal(t, "_Gadget", recs[1].Name)
}

func TestMiscStatusAttributeNames(t *testing.T) {
	var names []string
	for _, c := range MiscStatusContexts {
		names = append(names, c.AttributeName())
	}
	assert.Equal(t, []string{"miscStatus", "miscStatusContent", "miscStatusThumbnail", "miscStatusIcon", "miscStatusDocPrint"}, names)
}
