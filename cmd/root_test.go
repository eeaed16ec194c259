package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sxsmanifest/internal/config"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/testutil"
)

const (
	ccLine      = `<assemblyIdentity name="Microsoft.Windows.Common-Controls" processorArchitecture="X86" type="win32" version="6.0.0.0" publicKeyToken="6595b64144ccf1df"/>`
	widgetsLine = `<assemblyIdentity name="Widgets" processorArchitecture="X86" type="win32" version="3.0.0.0"/>`
)

func fixtureFS(t *testing.T) billy.Filesystem {
	t.Helper()
	return testutil.NewFS(t, map[string]string{
		"/registry/catalog.hcl": testutil.CatalogSource,
		"/src/App.vbp": testutil.Project("Exe", "App.exe", "", "Demo app",
			[]string{testutil.CommonReference}, []string{testutil.WidgetsObject}),
		"/src/App.vbp.man": "// pinned\r\n" + ccLine + "\r\n",
		"/src/extra.dep":   widgetsLine + "\n" + ccLine + "\n",
		"/src/Grid.vbp": testutil.Project("Control", "Grid.ocx", `..\bin`, "Grid control",
			[]string{testutil.CommonReference}, nil),
		"/src/controls.txt": "Grid.vbp\n\n// shared\n/lib/Widgets.ocx\n",
	})
}

// execute runs the CLI against fsys and returns stdout and stderr.
func execute(t *testing.T, fsys billy.Filesystem, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{SystemDir: "/sys", LogLevel: "info", LogFormat: "text"}
	}
	root := newRootCmd(&app{
		fs:       fsys,
		env:      func() *config.Config { return cfg },
		versions: testutil.NewVersions(),
	})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestProjectCommand(t *testing.T) {
	testutil.SkipOnWindows(t)
	fsys := fixtureFS(t)

	out, logs, err := execute(t, fsys, nil, "project", "/src/Grid.vbp", "--catalog", "/registry/catalog.hcl")
	require.NoError(t, err)
	assert.Contains(t, out, `<assemblyIdentity name="Grid" processorArchitecture="X86" type="win32" version="4.12.0.205">`)
	assert.Contains(t, out, `<file name="Grid.ocx">`)
	assert.Contains(t, logs, "Manifest generated")
	assert.NotContains(t, logs, "<assembly")
}

func TestProjectCommandUnionsOverrides(t *testing.T) {
	testutil.SkipOnWindows(t)
	fsys := fixtureFS(t)

	out, _, err := execute(t, fsys, nil,
		"project", "/src/App.vbp", "--dep", "/src/extra.dep", "--v6cc", "--catalog", "/registry/catalog.hcl")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "Microsoft.Windows.Common-Controls"))
	assert.Equal(t, 1, strings.Count(out, `name="Widgets"`))
	assert.NotContains(t, out, `name="Common"`)
	assert.Less(t, strings.Index(out, "Common-Controls"), strings.Index(out, `name="Widgets"`))
}

func TestAssemblyCommandWritesFiles(t *testing.T) {
	testutil.SkipOnWindows(t)
	fsys := fixtureFS(t)

	out, _, err := execute(t, fsys, &config.Config{CatalogPath: "/registry/catalog.hcl", SystemDir: "/sys"},
		"assembly", "/src/controls.txt", "--name", "Controls", "--version", "1.0.0.0",
		"--out", "/out/Controls.manifest", "--report", "/out/Controls.json")
	require.NoError(t, err)
	assert.Empty(t, out)

	manifest, err := util.ReadFile(fsys, "/out/Controls.manifest")
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `<file name="Grid.ocx">`)
	assert.Contains(t, string(manifest), `<file name="Widgets.ocx">`)

	data, err := util.ReadFile(fsys, "/out/Controls.json")
	require.NoError(t, err)
	var report struct {
		Name    string `json:"name"`
		Entries []struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "Controls", report.Name)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, "Widgets.ocx", report.Entries[1].Name)
}

func TestIdentitiesCommand(t *testing.T) {
	testutil.SkipOnWindows(t)
	fsys := fixtureFS(t)

	out, _, err := execute(t, fsys, nil, "identities", "/src/extra.dep",
		"--name", "Pins", "--version", "1.0.0.0", "--desc", "Pinned", "--catalog", "/registry/catalog.hcl")
	require.NoError(t, err)
	assert.Contains(t, out, "<description>Pinned</description>")
	assert.Contains(t, out, widgetsLine)
}

func TestCommandErrors(t *testing.T) {
	testutil.SkipOnWindows(t)
	fsys := fixtureFS(t)

	_, _, err := execute(t, fsys, nil, "project", "/src/Gone.vbp", "--catalog", "/registry/catalog.hcl")
	assert.Equal(t, errs.KindInputFileMissing, errs.KindOf(err))

	_, _, err = execute(t, fsys, nil, "project", "/src/App.vbp", "--catalog", "/registry/missing.hcl")
	assert.Equal(t, errs.KindInvalidOptions, errs.KindOf(err))

	_, _, err = execute(t, fsys, nil, "assembly", "/src/controls.txt", "--version", "1.0.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestRegistryUnavailableOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("the registry exists on windows")
	}
	_, _, err := execute(t, fixtureFS(t), nil, "project", "/src/App.vbp")
	assert.Equal(t, errs.KindInvalidOptions, errs.KindOf(err))
}

func TestHelpNamesCatalogRequirementForInlining(t *testing.T) {
	root := newRootCmd(&app{env: func() *config.Config { return &config.Config{} }})
	assert.Contains(t, root.Long, "Describing classes inline needs a catalog")
	assert.Contains(t, root.Long, "TYPE_LIBRARY_UNAVAILABLE")

	project, _, err := root.Find([]string{"project"})
	require.NoError(t, err)
	assert.Contains(t, project.Long, "need a --catalog")
}

func TestFormatError(t *testing.T) {
	err := errs.New(errs.KindInputFileMissing, "input file does not exist").WithPath("/src/Gone.vbp")
	assert.Equal(t, "INPUT_FILE_MISSING: input file does not exist: /src/Gone.vbp", formatError(err))
	assert.Equal(t, "boom", formatError(errors.New("boom")))
}
