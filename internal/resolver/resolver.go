// Package resolver turns Reference= and Object= lines into files registered
// in the component directory.
package resolver

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/fingerprints"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

var (
	reGUID    = regexp.MustCompile(`(?i)\{[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}\}`)
	reVersion = regexp.MustCompile(`#([0-9]+)\.([0-9]+)#`)
)

// ParseToken extracts the type library identity from a raw token. Both kinds
// of token must carry a GUID and a #major.minor# marker; the marker's decimal
// numbers are converted to the directory's hex notation.
func ParseToken(kind model.ReferenceKind, token string) (model.ComponentReference, error) {
	ref := model.ComponentReference{Kind: kind, Token: token}

	guid := reGUID.FindString(token)
	if guid == "" {
		return ref, errs.New(errs.KindIdentifierNotFound, "no GUID found in %s line %q", kind, token)
	}
	ref.TypeLibraryID = guid

	m := reVersion.FindStringSubmatch(token)
	if m == nil {
		return ref, errs.New(errs.KindVersionTokenNotFound, "no type library version found in %s line %q", kind, token)
	}
	version, err := HexVersion(m[1], m[2])
	if err != nil {
		return ref, errs.Wrap(err, errs.KindVersionTokenNotFound, "bad type library version in %s line %q", kind, token)
	}
	ref.TypeLibraryVersion = version
	return ref, nil
}

// HexVersion converts decimal major and minor numbers to the upper-case,
// unpadded hex form used as registry key names: "255", "16" -> "FF.10".
func HexVersion(major, minor string) (string, error) {
	hi, err := strconv.ParseUint(major, 10, 32)
	if err != nil {
		return "", fmt.Errorf("major version %q: %w", major, err)
	}
	lo, err := strconv.ParseUint(minor, 10, 32)
	if err != nil {
		return "", fmt.Errorf("minor version %q: %w", minor, err)
	}
	return strings.ToUpper(strconv.FormatUint(hi, 16)) + "." + strings.ToUpper(strconv.FormatUint(lo, 16)), nil
}

// Resolver looks up component references in a component directory.
type Resolver struct {
	dir    directory.ComponentDirectory
	logger *slog.Logger
}

// New creates a Resolver. A nil logger discards output.
func New(dir directory.ComponentDirectory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{dir: dir, logger: logger}
}

// ResolveToken parses and resolves one raw token.
func (r *Resolver) ResolveToken(kind model.ReferenceKind, token string) (*model.ResolvedComponent, error) {
	ref, err := ParseToken(kind, token)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ref)
}

// Resolve maps ref to a file. References to well-known platform libraries
// resolve to an Excluded outcome. Object references use the exact version
// they name; type library references take the last registered version with
// a non-empty path, since descriptors often carry stale versions.
func (r *Resolver) Resolve(ref model.ComponentReference) (*model.ResolvedComponent, error) {
	if ref.Kind == model.TypeLibReference && fingerprints.IsExcluded(ref.TypeLibraryID) {
		r.logger.Debug("Skipping well-known type library", "tlbid", ref.TypeLibraryID)
		return &model.ResolvedComponent{Outcome: model.Excluded, Reference: ref}, nil
	}

	var (
		path string
		err  error
	)
	if ref.Kind == model.ObjectReference {
		path, err = r.dir.TypeLibPath(ref.TypeLibraryID, ref.TypeLibraryVersion)
	} else {
		path, err = r.latestPath(ref.TypeLibraryID)
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.KindComponentNotResolvable, "component directory lookup failed for %s", ref.TypeLibraryID)
	}
	if path == "" {
		if ref.Kind == model.ObjectReference {
			return nil, errs.New(errs.KindComponentNotResolvable, "no file registered for type library %s version %s", ref.TypeLibraryID, ref.TypeLibraryVersion)
		}
		return nil, errs.New(errs.KindComponentNotResolvable, "no file registered for type library %s", ref.TypeLibraryID)
	}

	canonical, err := model.CanonicalPath(path, "")
	if err != nil {
		return nil, errs.Wrap(err, errs.KindComponentNotResolvable, "bad path registered for type library %s", ref.TypeLibraryID)
	}

	outcome := model.ResolvedBinary
	if strings.EqualFold(filepath.Ext(canonical), ".tlb") {
		outcome = model.ResolvedTypeLibOnly
	}
	r.logger.Debug("Resolved component", "kind", ref.Kind.String(), "tlbid", ref.TypeLibraryID,
		"version", ref.TypeLibraryVersion, "path", canonical, "outcome", outcome.String())
	return &model.ResolvedComponent{Outcome: outcome, Reference: ref, FilePath: canonical}, nil
}

func (r *Resolver) latestPath(typeLibID string) (string, error) {
	versions, err := r.dir.TypeLibVersions(typeLibID)
	if err != nil {
		return "", err
	}
	path := ""
	for _, v := range versions {
		if v.Path != "" {
			path = v.Path
		}
	}
	return path, nil
}
