// Package builder aggregates the manifest entries of one generation run.
// Each entry mode is a Source; the Builder runs them in order and merges
// their entries into one ordered, duplicate-free DependencySet.
package builder

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/identity"
	"github.com/StinkyLord/sxsmanifest/internal/model"
	"github.com/StinkyLord/sxsmanifest/internal/resolver"
)

// Source is the interface every entry mode implements.
type Source interface {
	Name() string
	Collect(r *Run) error
}

// Builder runs sources against one filesystem and component directory.
type Builder struct {
	FS        billy.Basic
	Resolver  *resolver.Resolver
	Extractor *identity.Extractor
	Logger    *slog.Logger

	// Inline selects file elements instead of dependentAssembly elements for
	// resolved references and objects.
	Inline bool
}

// Build runs every source in order and returns the merged set.
func (b *Builder) Build(sources ...Source) (*model.DependencySet, error) {
	r := &Run{
		b:      b,
		logger: b.logger(),
		set:    model.NewDependencySet(),
		index:  map[string]int{},
	}
	for _, src := range sources {
		r.logger.Debug("Collecting entries", "source", src.Name())
		if err := src.Collect(r); err != nil {
			return nil, err
		}
	}
	return r.set, nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Run is the mutable state of one Build call. It is owned by the Builder and
// handed to sources so they can add entries.
type Run struct {
	b      *Builder
	logger *slog.Logger
	set    *model.DependencySet

	// index maps a path key to the position of its entry in set.Entries.
	index map[string]int

	commonControls bool
}

// AddIdentity appends a dependentAssembly entry for a known identity.
func (r *Run) AddIdentity(id model.AssemblyIdentity) {
	r.set.Entries = append(r.set.Entries, model.ManifestEntry{Kind: model.DependencyEntry, Identity: &id})
}

// AddRawIdentity appends a dependentAssembly entry whose assemblyIdentity
// element is written verbatim.
func (r *Run) AddRawIdentity(line string) {
	r.set.Entries = append(r.set.Entries, model.ManifestEntry{Kind: model.DependencyEntry, RawIdentity: line})
}

// AddCommonControls appends the version 6 common controls dependency once.
func (r *Run) AddCommonControls(id model.AssemblyIdentity) {
	if r.commonControls {
		return
	}
	r.commonControls = true
	r.logger.Debug("Adding common controls dependency", "name", id.Name, "version", id.Version)
	r.AddIdentity(id)
}

// AddResolved adds a resolved reference or object according to its outcome
// and the inlining policy.
func (r *Run) AddResolved(rc *model.ResolvedComponent, inline bool) error {
	switch rc.Outcome {
	case model.Excluded:
		return nil
	case model.ResolvedTypeLibOnly:
		return r.AddTypeLib(rc.FilePath)
	default:
		return r.AddBinary(rc.FilePath, inline)
	}
}

// AddBinary adds a binary as a file entry when inline is set and as a
// dependency otherwise. A path already present is not added again, except
// that a dependency entry is upgraded in place to a file entry when the path
// is later added inline.
func (r *Run) AddBinary(path string, inline bool) error {
	key := model.PathKey(path)
	if i, ok := r.index[key]; ok {
		existing := r.set.Entries[i]
		if !inline || existing.Kind == model.FileEntry {
			r.logger.Debug("Skipping duplicate path", "path", path, "first", existing.FilePath)
			return nil
		}
		entry, err := r.fileEntry(path)
		if err != nil {
			return err
		}
		r.logger.Debug("Upgrading dependency to inlined file", "path", path)
		r.set.Entries[i] = entry
		return nil
	}

	var (
		entry model.ManifestEntry
		err   error
	)
	if inline {
		entry, err = r.fileEntry(path)
	} else {
		entry, err = r.dependencyEntry(path)
	}
	if err != nil {
		return err
	}
	r.index[key] = len(r.set.Entries)
	r.set.Entries = append(r.set.Entries, entry)
	return nil
}

// AddTypeLib adds a standalone type library as a file entry with a typelib
// and no classes.
func (r *Run) AddTypeLib(path string) error {
	key := model.PathKey(path)
	if _, ok := r.index[key]; ok {
		r.logger.Debug("Skipping duplicate path", "path", path)
		return nil
	}
	if err := r.requireFile(path); err != nil {
		return err
	}
	entry, err := r.b.Extractor.TypeLibEntry(path)
	if err != nil {
		return err
	}
	r.index[key] = len(r.set.Entries)
	r.set.Entries = append(r.set.Entries, entry)
	return nil
}

func (r *Run) fileEntry(path string) (model.ManifestEntry, error) {
	if err := r.requireFile(path); err != nil {
		return model.ManifestEntry{}, err
	}
	return r.b.Extractor.FileEntry(path, r.set.Interfaces)
}

func (r *Run) dependencyEntry(path string) (model.ManifestEntry, error) {
	if err := r.requireFile(path); err != nil {
		return model.ManifestEntry{}, err
	}
	id, err := r.b.Extractor.Identity(path)
	if err != nil {
		return model.ManifestEntry{}, err
	}
	r.logger.Debug("Adding dependency", "name", id.Name, "version", id.Version, "path", path)
	return model.ManifestEntry{Kind: model.DependencyEntry, Identity: &id, FilePath: path}, nil
}

func (r *Run) requireFile(path string) error {
	return RequireFile(r.b.FS, path)
}

// RequireFile fails with INPUT_FILE_MISSING when path does not exist.
func RequireFile(fsys billy.Basic, path string) error {
	if _, err := fsys.Stat(path); err != nil {
		return errs.Wrap(err, errs.KindInputFileMissing, "file does not exist").WithPath(path)
	}
	return nil
}
