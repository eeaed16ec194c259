package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/StinkyLord/sxsmanifest/internal/config"
	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/generator"
	"github.com/StinkyLord/sxsmanifest/internal/identity"
	"github.com/StinkyLord/sxsmanifest/internal/output"
)

const toolVersion = "1.0.0"

// globalFlags are the persistent flags shared by every subcommand. Empty
// values fall back to the environment.
type globalFlags struct {
	out       string
	report    string
	catalog   string
	systemDir string
	logLevel  string
	logFormat string
}

// app carries what every subcommand needs: the filesystem all inputs are
// read from and outputs written to, and the parsed persistent flags.
type app struct {
	fs       billy.Basic
	flags    globalFlags
	env      func() *config.Config
	versions identity.VersionReader // nil reads version resources from fs
}

// NewRootCmd builds the command tree over fsys. env supplies defaults for
// flags left unset.
func NewRootCmd(fsys billy.Basic, env func() *config.Config) *cobra.Command {
	return newRootCmd(&app{fs: fsys, env: env})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sxsmanifest",
		Short: "Side-by-side assembly manifest generator",
		Long: `sxsmanifest writes the side-by-side assembly manifest of a COM component
so that it can run registration-free.

Sources:
  • project     a project file: its references, objects and, for libraries
                and controls, its own classes
  • binary      an existing DLL or OCX, described inline
  • assembly    a list of projects and binaries merged into one assembly
  • identities  a list of pinned assemblyIdentity elements

Components are looked up in the system registry, or in an HCL catalog given
with --catalog (or SXSMANIFEST_CATALOG).

Describing classes inline needs a catalog: the registry cannot introspect
type libraries. Without one, binary and assembly runs, --inline, and
projects of libraries or controls fail with TYPE_LIBRARY_UNAVAILABLE.`,
		Version:       toolVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.out, "out", "o", "", "Manifest output file (default stdout)")
	pf.StringVar(&a.flags.report, "report", "", "Also write a JSON report of the manifest entries to this file")
	pf.StringVar(&a.flags.catalog, "catalog", "", "HCL component catalog to use instead of the system registry")
	pf.StringVar(&a.flags.systemDir, "system-dir", "", "Value of ${system} in the catalog")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "Log format: text, json")

	root.AddCommand(
		newProjectCmd(a),
		newBinaryCmd(a),
		newAssemblyCmd(a),
		newIdentitiesCmd(a),
	)
	return root
}

func Execute() {
	root := NewRootCmd(osfs.Default, config.Load)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders err as "KIND: message" when it carries a kind.
func formatError(err error) string {
	if kind := errs.KindOf(err); kind != "" {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	return err.Error()
}

// run completes opts with the component directory and logger selected by the
// flags, generates the manifest and writes the outputs.
func (a *app) run(cmd *cobra.Command, opts generator.Options) error {
	cfg := a.env()
	logger := config.NewLogger(firstNonEmpty(a.flags.logLevel, cfg.LogLevel), firstNonEmpty(a.flags.logFormat, cfg.LogFormat), cmd.ErrOrStderr())

	dir, introspector, err := a.directory(cfg, logger)
	if err != nil {
		return err
	}
	opts.FS = a.fs
	opts.Directory = dir
	opts.Introspector = introspector
	opts.VersionReader = a.versions
	opts.Logger = logger

	res, err := generator.Run(opts)
	if err != nil {
		return err
	}

	if err := output.Write(a.fs, cmd.OutOrStdout(), a.flags.out, res.Manifest); err != nil {
		return err
	}
	if a.flags.out != "" && a.flags.out != "-" {
		logger.Info("Manifest written", "path", a.flags.out)
	}

	if a.flags.report == "" {
		return nil
	}
	report, err := output.BuildReport(res.Document, dir)
	if err != nil {
		return err
	}
	data, err := output.MarshalReport(report)
	if err != nil {
		return err
	}
	return output.Write(a.fs, cmd.OutOrStdout(), a.flags.report, data)
}

// directory opens the catalog when one is configured and the system registry
// otherwise. The registry provides no type library introspection.
func (a *app) directory(cfg *config.Config, logger *slog.Logger) (directory.ComponentDirectory, directory.Introspector, error) {
	if path := firstNonEmpty(a.flags.catalog, cfg.CatalogPath); path != "" {
		vars := map[string]string{"system": firstNonEmpty(a.flags.systemDir, cfg.SystemDir)}
		c, err := directory.LoadCatalog(a.fs, path, vars)
		if err != nil {
			return nil, nil, errs.Wrap(err, errs.KindInvalidOptions, "cannot load component catalog").WithPath(path)
		}
		logger.Debug("Using component catalog", "path", path)
		return c, c, nil
	}

	r, err := directory.NewRegistry()
	if err != nil {
		return nil, nil, errs.Wrap(err, errs.KindInvalidOptions, "no component directory")
	}
	logger.Debug("Using system registry")
	return r, nil, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
