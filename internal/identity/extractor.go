package identity

import (
	"fmt"
	"log/slog"

	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

const introspectionHint = "ensure the type library introspection component is installed and registered"

// Extractor reads identities and COM metadata of resolved binaries.
type Extractor struct {
	dir          directory.ComponentDirectory
	introspector directory.Introspector
	versions     VersionReader
	logger       *slog.Logger
}

// NewExtractor creates an Extractor. introspector may be nil, in which case
// every inlining request fails with TYPE_LIBRARY_UNAVAILABLE.
func NewExtractor(dir directory.ComponentDirectory, introspector directory.Introspector, versions VersionReader, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{dir: dir, introspector: introspector, versions: versions, logger: logger}
}

// Identity returns the dependentAssembly identity of a binary: its base name
// without extension and its file version.
func (e *Extractor) Identity(path string) (model.AssemblyIdentity, error) {
	version, err := e.FileVersion(path)
	if err != nil {
		return model.AssemblyIdentity{}, err
	}
	return model.AssemblyIdentity{Name: model.BaseNameWithoutExt(path), Version: version}, nil
}

// FileVersion returns the four-part file version of a binary.
func (e *Extractor) FileVersion(path string) (string, error) {
	v, err := e.versions.FileVersion(path)
	if err != nil {
		if errs.KindOf(err) != "" {
			return "", err
		}
		return "", errs.Wrap(err, errs.KindVersionInfoUnavailable, "cannot read file version").WithPath(path)
	}
	return v, nil
}

// FileEntry introspects a binary and returns its file element: the typelib
// and every class with an in-process server. The default interface of every
// class is added to interfaces.
func (e *Extractor) FileEntry(path string, interfaces *model.InterfaceSet) (model.ManifestEntry, error) {
	lib, err := e.inspect(path)
	if err != nil {
		return model.ManifestEntry{}, err
	}

	entry := fileEntry(path, lib)
	for _, cc := range lib.Classes {
		var iface *model.InterfaceRecord
		if cc.DefaultInterface != nil {
			iface = &model.InterfaceRecord{Name: cc.DefaultInterface.Name, InterfaceID: cc.DefaultInterface.ID}
			if interfaces.Add(*iface) {
				e.logger.Debug("Recorded interface", "name", iface.Name, "iid", iface.InterfaceID)
			}
		}

		rec, ok, err := e.classRecord(lib.ID, cc)
		if err != nil {
			return model.ManifestEntry{}, errs.Wrap(err, errs.KindComponentNotResolvable, "component directory lookup failed for class %s", cc.ID).WithPath(path)
		}
		if !ok {
			e.logger.Debug("Skipping class without in-process server", "clsid", cc.ID, "file", path)
			continue
		}
		rec.DefaultInterface = iface
		entry.Classes = append(entry.Classes, rec)
	}
	e.logger.Debug("Inlined file", "file", path, "classes", len(entry.Classes))
	return entry, nil
}

// TypeLibEntry introspects a standalone type library and returns a file
// element carrying only its typelib.
func (e *Extractor) TypeLibEntry(path string) (model.ManifestEntry, error) {
	lib, err := e.inspect(path)
	if err != nil {
		return model.ManifestEntry{}, err
	}
	return fileEntry(path, lib), nil
}

func (e *Extractor) inspect(path string) (*directory.TypeLibrary, error) {
	if e.introspector == nil {
		return nil, errs.New(errs.KindTypeLibraryUnavailable, "no type library introspector available: %s", introspectionHint).WithPath(path)
	}
	lib, err := e.introspector.Inspect(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindTypeLibraryUnavailable, "error getting type library information: %s", introspectionHint).WithPath(path)
	}
	return lib, nil
}

func fileEntry(path string, lib *directory.TypeLibrary) model.ManifestEntry {
	return model.ManifestEntry{
		Kind:     model.FileEntry,
		FileName: model.BaseName(path),
		FilePath: path,
		TypeLib: &model.TypeLibRecord{
			TypeLibraryID: lib.ID,
			Version:       fmt.Sprintf("%d.%d", lib.MajorVersion, lib.MinorVersion),
			Flags:         FormatLibFlags(lib.Flags),
		},
	}
}

// classRecord builds the comClass element of cc. It reports false when the
// class has no registered threading model.
func (e *Extractor) classRecord(typeLibID string, cc directory.CoClass) (model.ComClassRecord, bool, error) {
	reg, err := e.dir.Class(cc.ID)
	if err != nil {
		return model.ComClassRecord{}, false, err
	}
	if reg.ThreadingModel == "" {
		return model.ComClassRecord{}, false, nil
	}

	rec := model.ComClassRecord{
		ClassID:        cc.ID,
		TypeLibraryID:  typeLibID,
		ThreadingModel: reg.ThreadingModel,
	}

	if cc.Flags&typeFlagHidden == 0 {
		progID := reg.VersionIndependentProgID
		if progID == "" {
			progID = reg.ProgID
		}
		if progID != "" {
			curVer, err := e.dir.CurrentVersion(progID)
			if err != nil {
				return model.ComClassRecord{}, false, err
			}
			rec.ProgID = progID
			rec.CurrentVersionProgID = curVer
		}
	}

	for _, ctx := range model.MiscStatusContexts {
		if v := reg.MiscStatus[int(ctx)]; v != 0 {
			rec.MiscStatus = append(rec.MiscStatus, model.MiscStatusFlags{Context: ctx, Flags: FormatMiscStatus(v)})
		}
	}
	return rec, true, nil
}
