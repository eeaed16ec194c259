package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/StinkyLord/sxsmanifest/internal/descriptor"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/generator"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// identityFlags name the assembly when the input does not.
type identityFlags struct {
	name        string
	version     string
	description string
}

func (f *identityFlags) register(cmd *cobra.Command, named bool) {
	if named {
		cmd.Flags().StringVar(&f.name, "name", "", "Assembly name")
		cmd.Flags().StringVar(&f.version, "version", "", "Assembly version, major.minor.build.revision")
		_ = cmd.MarkFlagRequired("name")
		_ = cmd.MarkFlagRequired("version")
	}
	cmd.Flags().StringVar(&f.description, "desc", "", "Assembly description")
}

func newProjectCmd(a *app) *cobra.Command {
	var (
		v6cc   bool
		inline bool
		dep    string
	)
	cmd := &cobra.Command{
		Use:   "project <file.vbp>",
		Short: "Generate the manifest of the component a project builds",
		Long: `Generate the manifest of the component a project file builds.

References and objects become dependentAssembly elements, or file elements
with --inline. Libraries and controls always describe their own classes.
Inline descriptions need a --catalog, since the registry cannot introspect
type libraries.

A sibling <file.vbp>.man and the --dep file may list assemblyIdentity
elements, one per line, that are written instead of resolving references.

Examples:
  sxsmanifest project App.vbp --out App.exe.manifest
  sxsmanifest project Grid.vbp --inline --catalog components.hcl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := a.projectOverrides(args[0], dep)
			if err != nil {
				return err
			}
			return a.run(cmd, generator.Options{
				Mode:                generator.ModeProject,
				ProjectFile:         args[0],
				Inline:              inline,
				CommonControls6:     v6cc,
				DependencyOverrides: overrides,
			})
		},
	}
	cmd.Flags().BoolVar(&v6cc, "v6cc", false, "Depend on the version 6 common controls (executables only)")
	cmd.Flags().BoolVar(&inline, "inline", false, "Describe referenced components inline instead of as dependencies")
	cmd.Flags().StringVar(&dep, "dep", "", "File of assemblyIdentity elements to depend on instead of the project's references")
	return cmd
}

func newBinaryCmd(a *app) *cobra.Command {
	var id identityFlags
	cmd := &cobra.Command{
		Use:   "binary <file>",
		Short: "Generate the manifest of an existing DLL or OCX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, generator.Options{
				Mode:        generator.ModeBinary,
				BinaryFile:  args[0],
				Description: id.description,
			})
		},
	}
	id.register(cmd, false)
	return cmd
}

func newAssemblyCmd(a *app) *cobra.Command {
	var (
		id     identityFlags
		inline bool
	)
	cmd := &cobra.Command{
		Use:   "assembly <listfile>",
		Short: "Generate the manifest of a multi-file assembly",
		Long: `Generate the manifest of an assembly made of several files.

The list file names one member per line: project files (.vbp) of libraries
or controls, or binaries (.dll, .ocx). Relative names are resolved against
the list file's directory. Blank lines and lines starting with // are
ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listPath, err := model.CanonicalPath(args[0], "")
			if err != nil {
				return errs.Wrap(err, errs.KindInputFileMissing, "bad list file path").WithPath(args[0])
			}
			files, err := descriptor.ReadList(a.fs, listPath)
			if err != nil {
				return err
			}
			return a.run(cmd, generator.Options{
				Mode:            generator.ModeFileSet,
				Files:           files,
				BaseDir:         filepath.Dir(listPath),
				AssemblyName:    id.name,
				AssemblyVersion: id.version,
				Description:     id.description,
				Inline:          inline,
			})
		},
	}
	id.register(cmd, true)
	cmd.Flags().BoolVar(&inline, "inline", false, "Describe members' references inline instead of as dependencies")
	return cmd
}

func newIdentitiesCmd(a *app) *cobra.Command {
	var id identityFlags
	cmd := &cobra.Command{
		Use:   "identities <depfile>",
		Short: "Generate a manifest that only depends on the listed assemblies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := descriptor.ReadList(a.fs, args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, generator.Options{
				Mode:                generator.ModeIdentities,
				AssemblyName:        id.name,
				AssemblyVersion:     id.version,
				Description:         id.description,
				DependencyOverrides: lines,
			})
		},
	}
	id.register(cmd, true)
	return cmd
}

// projectOverrides unions the project's sibling .man file, when present, with
// the --dep file.
func (a *app) projectOverrides(projectFile, depFile string) ([]string, error) {
	var lists [][]string

	sibling := projectFile + ".man"
	if _, err := a.fs.Stat(sibling); err == nil {
		l, err := descriptor.ReadList(a.fs, sibling)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	if depFile != "" {
		l, err := descriptor.ReadList(a.fs, depFile)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return descriptor.Union(lists...), nil
}
