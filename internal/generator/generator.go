// Package generator is the single entry point of manifest generation. A run
// is configured with one Options value, reads its inputs through the injected
// filesystem and component directory, and either returns the complete
// manifest or fails without output.
package generator

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/StinkyLord/sxsmanifest/internal/builder"
	"github.com/StinkyLord/sxsmanifest/internal/descriptor"
	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/identity"
	"github.com/StinkyLord/sxsmanifest/internal/model"
	"github.com/StinkyLord/sxsmanifest/internal/output"
	"github.com/StinkyLord/sxsmanifest/internal/resolver"
)

// Mode selects where a run's entries come from.
type Mode string

const (
	// ModeProject describes the component a project descriptor builds.
	ModeProject Mode = "project"
	// ModeBinary describes one existing binary, inlined.
	ModeBinary Mode = "binary"
	// ModeFileSet describes a multi-file assembly of projects and binaries.
	ModeFileSet Mode = "fileSet"
	// ModeIdentities writes caller-supplied dependencies only.
	ModeIdentities Mode = "explicitIdentities"
)

// Options configures one run.
type Options struct {
	Mode Mode

	ProjectFile string   // ModeProject
	BinaryFile  string   // ModeBinary
	Files       []string // ModeFileSet members
	BaseDir     string   // ModeFileSet: directory relative members resolve against

	// AssemblyName and AssemblyVersion name the assembly in ModeFileSet and
	// ModeIdentities. Project and binary runs derive both from their input.
	AssemblyName    string
	AssemblyVersion string
	// Description overrides the descriptor's Description in ModeProject.
	Description string

	Inline          bool
	CommonControls6 bool
	// DependencyOverrides are assemblyIdentity elements written verbatim
	// instead of resolving references and objects. In ModeIdentities they
	// are the whole manifest body.
	DependencyOverrides []string

	FS            billy.Basic
	Directory     directory.ComponentDirectory
	Introspector  directory.Introspector // nil fails any run that inlines
	VersionReader identity.VersionReader // nil reads PE version resources from FS
	Logger        *slog.Logger
}

// Result is a successful run.
type Result struct {
	Document *output.Document
	Manifest []byte
}

// Generate runs the pipeline and returns the manifest bytes.
func Generate(opts Options) ([]byte, error) {
	res, err := Run(opts)
	if err != nil {
		return nil, err
	}
	return res.Manifest, nil
}

// Run runs the pipeline and returns the manifest together with the document
// it was rendered from.
func Run(opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	versions := opts.VersionReader
	if versions == nil {
		versions = identity.PEVersionReader{FS: opts.FS}
	}
	extractor := identity.NewExtractor(opts.Directory, opts.Introspector, versions, logger)
	b := &builder.Builder{
		FS:        opts.FS,
		Resolver:  resolver.New(opts.Directory, logger),
		Extractor: extractor,
		Logger:    logger,
		Inline:    opts.Inline,
	}

	doc := &output.Document{
		Name:        opts.AssemblyName,
		Version:     opts.AssemblyVersion,
		Description: opts.Description,
	}

	var sources []builder.Source
	switch opts.Mode {
	case ModeProject:
		path, p, err := loadProject(opts.FS, opts.ProjectFile)
		if err != nil {
			return nil, err
		}
		doc.Name, doc.Version = p.AssemblyName(), p.Version()
		if doc.Description == "" {
			doc.Description = p.Description
		}
		sources = append(sources, &builder.ProjectSource{
			Path:            path,
			Descriptor:      p,
			CommonControls6: opts.CommonControls6,
			Overrides:       opts.DependencyOverrides,
		})

	case ModeBinary:
		path, err := model.CanonicalPath(opts.BinaryFile, "")
		if err != nil {
			return nil, errs.Wrap(err, errs.KindInputFileMissing, "bad binary path").WithPath(opts.BinaryFile)
		}
		if err := builder.RequireFile(opts.FS, path); err != nil {
			return nil, err
		}
		id, err := extractor.Identity(path)
		if err != nil {
			return nil, err
		}
		doc.Name, doc.Version = id.Name, id.Version
		// Pinned dependencies first, then the binary itself.
		if len(opts.DependencyOverrides) > 0 {
			sources = append(sources, &builder.IdentitySource{Identities: opts.DependencyOverrides})
		}
		sources = append(sources, &builder.BinarySource{Path: path})

	case ModeFileSet:
		sources = append(sources, &builder.FileSetSource{
			Files:     opts.Files,
			BaseDir:   opts.BaseDir,
			Overrides: opts.DependencyOverrides,
		})

	case ModeIdentities:
		sources = append(sources, &builder.IdentitySource{Identities: opts.DependencyOverrides})
	}

	logger.Info("Generating manifest", "mode", string(opts.Mode), "name", doc.Name, "version", doc.Version, "inline", opts.Inline)
	set, err := b.Build(sources...)
	if err != nil {
		return nil, err
	}
	doc.Set = set

	data, err := output.RenderManifest(doc, opts.Directory)
	if err != nil {
		return nil, err
	}
	logger.Info("Manifest generated",
		"name", doc.Name,
		"entries", len(set.Entries),
		"interfaces", set.Interfaces.Len(),
		"bytes", len(data))
	return &Result{Document: doc, Manifest: data}, nil
}

func (o *Options) validate() error {
	if o.FS == nil {
		return errs.New(errs.KindInvalidOptions, "no filesystem configured")
	}
	if o.Directory == nil {
		return errs.New(errs.KindInvalidOptions, "no component directory configured")
	}

	switch o.Mode {
	case ModeProject:
		if o.ProjectFile == "" {
			return errs.New(errs.KindInvalidOptions, "project mode requires a project file")
		}
	case ModeBinary:
		if o.BinaryFile == "" {
			return errs.New(errs.KindInvalidOptions, "binary mode requires a binary file")
		}
	case ModeFileSet:
		if len(o.Files) == 0 {
			return errs.New(errs.KindInvalidOptions, "file set mode requires at least one member file")
		}
		return o.validateIdentity()
	case ModeIdentities:
		if len(o.DependencyOverrides) == 0 {
			return errs.New(errs.KindInvalidOptions, "identities mode requires at least one dependency identity")
		}
		return o.validateIdentity()
	default:
		return errs.New(errs.KindInvalidOptions, "unknown mode %q", o.Mode)
	}
	return nil
}

func (o *Options) validateIdentity() error {
	if strings.TrimSpace(o.AssemblyName) == "" {
		return errs.New(errs.KindInvalidOptions, "mode %s requires an assembly name", o.Mode)
	}
	if !isFourPartVersion(o.AssemblyVersion) {
		return errs.New(errs.KindInvalidOptions, "assembly version %q is not of the form major.minor.build.revision", o.AssemblyVersion)
	}
	return nil
}

func isFourPartVersion(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 16); err != nil {
			return false
		}
	}
	return true
}

func loadProject(fsys billy.Basic, file string) (string, *model.ProjectDescriptor, error) {
	path, err := model.CanonicalPath(file, "")
	if err != nil {
		return "", nil, errs.Wrap(err, errs.KindInputFileMissing, "bad project path").WithPath(file)
	}
	if err := builder.RequireFile(fsys, path); err != nil {
		return "", nil, err
	}
	p, err := descriptor.Load(fsys, path)
	if err != nil {
		return "", nil, err
	}
	if p.OutputFileName == "" {
		return "", nil, errs.New(errs.KindMalformedDescriptor, "project declares no output file name").WithPath(path)
	}
	return path, p, nil
}
