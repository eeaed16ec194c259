package identity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/model"
	"github.com/StinkyLord/sxsmanifest/internal/testutil"
)

func TestFormatFlags(t *testing.T) {
	assert.Equal(t, "recomposeOnResize,cantLinkInside,insideOut,activateWhenVisible,invisibleAtRuntime,setClientSiteFirst",
		FormatMiscStatus(132497))
	assert.Equal(t, "Static", FormatMiscStatus(0x8))
	assert.Equal(t, "supportsMultiLevelUndo", FormatMiscStatus(0x200000))
	assert.Equal(t, "0", FormatMiscStatus(0))
	assert.Equal(t, "4194305", FormatMiscStatus(0x400001))

	assert.Equal(t, "control,hasDiskImage", FormatLibFlags(10))
	assert.Equal(t, "restricted,control,hidden,hasDiskImage", FormatLibFlags(15))
	assert.Equal(t, "0", FormatLibFlags(0))
	assert.Equal(t, "16", FormatLibFlags(16))
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	testutil.SkipOnWindows(t)
	c := testutil.NewCatalog(t)
	return NewExtractor(c, c, testutil.NewVersions(), nil)
}

func TestIdentity(t *testing.T) {
	e := newTestExtractor(t)

	id, err := e.Identity("/lib/Common.dll")
	require.NoError(t, err)
	assert.Equal(t, model.AssemblyIdentity{Name: "Common", Version: "2.5.0.7"}, id)

	_, err = e.Identity("/lib/Types.tlb")
	require.Error(t, err)
	assert.Equal(t, errs.KindVersionInfoUnavailable, errs.KindOf(err))
}

func TestFileEntry(t *testing.T) {
	e := newTestExtractor(t)
	interfaces := model.NewInterfaceSet()

	entry, err := e.FileEntry("/lib/Widgets.ocx", interfaces)
	require.NoError(t, err)

	assert.Equal(t, model.FileEntry, entry.Kind)
	assert.Equal(t, "Widgets.ocx", entry.FileName)
	assert.Equal(t, &model.TypeLibRecord{
		TypeLibraryID: testutil.WidgetsLib,
		Version:       "1.0",
		Flags:         "control,hasDiskImage",
	}, entry.TypeLib)

	want := []model.ComClassRecord{
		{
			ClassID:        testutil.WidgetClass,
			TypeLibraryID:  testutil.WidgetsLib,
			ProgID:         "Widgets.Widget",
			ThreadingModel: "Apartment",
			MiscStatus: []model.MiscStatusFlags{
				{Context: model.MiscStatusDefault, Flags: "recomposeOnResize,cantLinkInside,insideOut,activateWhenVisible,invisibleAtRuntime,setClientSiteFirst"},
				{Context: model.MiscStatusIcon, Flags: "recomposeOnResize,cantLinkInside,insideOut,activateWhenVisible,setClientSiteFirst"},
			},
			DefaultInterface: &model.InterfaceRecord{Name: "_Widget", InterfaceID: testutil.IWidget},
		},
		{
			// hidden: no progid
			ClassID:        testutil.HiddenClass,
			TypeLibraryID:  testutil.WidgetsLib,
			ThreadingModel: "Both",
		},
	}
	if diff := cmp.Diff(want, entry.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}

	// The out-of-process class is not emitted but its interface is recorded.
	assert.Equal(t, []model.InterfaceRecord{
		{Name: "_Widget", InterfaceID: testutil.IWidget},
		{Name: "_Remote", InterfaceID: testutil.IRemote},
	}, interfaces.Records())
}

func TestFileEntrySharedInterface(t *testing.T) {
	e := newTestExtractor(t)
	interfaces := model.NewInterfaceSet()

	_, err := e.FileEntry("/lib/Widgets.ocx", interfaces)
	require.NoError(t, err)
	grid, err := e.FileEntry("/bin/Grid.ocx", interfaces)
	require.NoError(t, err)

	assert.Equal(t, 2, interfaces.Len())
	require.Len(t, grid.Classes, 1)
	assert.Equal(t, "Grid.GridCtrl", grid.Classes[0].ProgID)
	assert.Equal(t, "4.12", grid.TypeLib.Version)
}

func TestFileEntryCurrentVersion(t *testing.T) {
	e := newTestExtractor(t)

	entry, err := e.FileEntry("/sys/MSCOMCTL.OCX", model.NewInterfaceSet())
	require.NoError(t, err)
	require.Len(t, entry.Classes, 1)

	c := entry.Classes[0]
	assert.Equal(t, "MSComctlLib.TreeCtrl", c.ProgID)
	assert.Equal(t, "MSComctlLib.TreeCtrl.2", c.CurrentVersionProgID)
}

func TestTypeLibEntry(t *testing.T) {
	e := newTestExtractor(t)

	entry, err := e.TypeLibEntry("/lib/Types.tlb")
	require.NoError(t, err)
	assert.Equal(t, "Types.tlb", entry.FileName)
	assert.Equal(t, "0", entry.TypeLib.Flags)
	assert.Empty(t, entry.Classes)
}

func TestIntrospectionUnavailable(t *testing.T) {
	testutil.SkipOnWindows(t)
	c := testutil.NewCatalog(t)

	_, err := NewExtractor(c, nil, testutil.NewVersions(), nil).FileEntry("/lib/Widgets.ocx", model.NewInterfaceSet())
	require.Error(t, err)
	assert.Equal(t, errs.KindTypeLibraryUnavailable, errs.KindOf(err))
	assert.Contains(t, err.Error(), "installed and registered")

	_, err = NewExtractor(c, c, testutil.NewVersions(), nil).FileEntry("/lib/Unknown.dll", model.NewInterfaceSet())
	require.Error(t, err)
	assert.Equal(t, errs.KindTypeLibraryUnavailable, errs.KindOf(err))
}
