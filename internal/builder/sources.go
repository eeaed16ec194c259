package builder

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/StinkyLord/sxsmanifest/internal/descriptor"
	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/fingerprints"
	"github.com/StinkyLord/sxsmanifest/internal/model"
	"github.com/StinkyLord/sxsmanifest/internal/resolver"
)

// ProjectSource collects the entries of a single project: its references and
// objects in file order and, for libraries and controls, its own output
// binary inlined.
type ProjectSource struct {
	Path       string // canonical descriptor path
	Descriptor *model.ProjectDescriptor

	// CommonControls6 requests the version 6 common controls for executables.
	CommonControls6 bool

	// Overrides are assemblyIdentity elements that replace the resolution of
	// references and objects.
	Overrides []string
}

func (s *ProjectSource) Name() string { return "project" }

// Collect implements Source.
func (s *ProjectSource) Collect(r *Run) error {
	p := s.Descriptor

	var overridden []model.AssemblyIdentity
	for _, line := range s.Overrides {
		id, err := descriptor.ParseIdentity(line)
		if err != nil {
			return err
		}
		overridden = append(overridden, id)
	}

	if p.ComponentType == model.Executable {
		wants := s.CommonControls6
		for _, tok := range p.ObjectTokens {
			ref, err := resolver.ParseToken(model.ObjectReference, tok)
			if err != nil {
				return withPath(err, s.Path)
			}
			if fingerprints.IsCommonControls(ref.TypeLibraryID) {
				wants = true
			}
		}
		if wants && !namesAssembly(overridden, fingerprints.CommonControls.Name) {
			r.AddCommonControls(fingerprints.CommonControls)
		}
	}

	if len(s.Overrides) > 0 {
		for _, line := range s.Overrides {
			r.AddRawIdentity(line)
		}
	} else if err := collectReferences(r, s.Path, p, r.b.Inline); err != nil {
		return err
	}

	if p.ComponentType.IsActiveX() {
		self, err := OutputPath(s.Path, p)
		if err != nil {
			return err
		}
		if err := r.AddBinary(self, true); err != nil {
			return err
		}
	}
	return nil
}

// BinarySource inlines one binary.
type BinarySource struct {
	Path string
}

func (s *BinarySource) Name() string { return "binary" }

// Collect implements Source.
func (s *BinarySource) Collect(r *Run) error {
	path, err := model.CanonicalPath(s.Path, "")
	if err != nil {
		return errs.Wrap(err, errs.KindInputFileMissing, "bad binary path").WithPath(s.Path)
	}
	return r.AddBinary(path, true)
}

// FileSetSource collects the members of a multi-file assembly. Binaries
// (.dll, .ocx) are inlined as they are; projects (.vbp) must build a library
// or control, whose output binary is inlined. Only when the builder inlines
// are a member project's references and objects followed, and then they are
// inlined too.
type FileSetSource struct {
	Files   []string
	BaseDir string // directory relative member paths are resolved against

	// Overrides are assemblyIdentity elements emitted ahead of the members.
	// When present, member projects' references and objects are never
	// followed.
	Overrides []string
}

func (s *FileSetSource) Name() string { return "file set" }

// Collect implements Source.
func (s *FileSetSource) Collect(r *Run) error {
	for _, line := range s.Overrides {
		if err := descriptor.ValidateIdentity(line); err != nil {
			return err
		}
		r.AddRawIdentity(line)
	}
	for _, f := range s.Files {
		path, err := model.CanonicalPath(f, s.BaseDir)
		if err != nil {
			return errs.Wrap(err, errs.KindInputFileMissing, "bad member path").WithPath(f)
		}
		if err := RequireFile(r.b.FS, path); err != nil {
			return err
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".dll", ".ocx":
			if err := r.AddBinary(path, true); err != nil {
				return err
			}
		case ".vbp":
			if err := s.collectProject(r, path); err != nil {
				return err
			}
		default:
			return errs.New(errs.KindInvalidComponentType, "member must be a project file, a dll or an ocx").WithPath(path)
		}
	}
	return nil
}

func (s *FileSetSource) collectProject(r *Run, path string) error {
	p, err := descriptor.Load(r.b.FS, path)
	if err != nil {
		return err
	}
	if !p.ComponentType.IsActiveX() {
		return errs.New(errs.KindInvalidComponentType, "project type %s cannot be part of a multi-file assembly: must be an ActiveX library or control", p.ComponentType).WithPath(path)
	}
	self, err := OutputPath(path, p)
	if err != nil {
		return err
	}
	if err := r.AddBinary(self, true); err != nil {
		return err
	}
	if len(s.Overrides) > 0 || !r.b.Inline {
		return nil
	}
	return collectReferences(r, path, p, true)
}

// IdentitySource emits caller-supplied assemblyIdentity elements verbatim.
type IdentitySource struct {
	Identities []string
}

func (s *IdentitySource) Name() string { return "identities" }

// Collect implements Source.
func (s *IdentitySource) Collect(r *Run) error {
	for _, line := range s.Identities {
		if err := descriptor.ValidateIdentity(line); err != nil {
			return err
		}
		r.AddRawIdentity(line)
	}
	return nil
}

// OutputPath returns the canonical path of the binary a project builds:
// Path32 relative to the descriptor's directory, joined with ExeName32.
func OutputPath(descriptorPath string, p *model.ProjectDescriptor) (string, error) {
	if p.OutputFileName == "" {
		return "", errs.New(errs.KindMalformedDescriptor, "project declares no output file name").WithPath(descriptorPath)
	}
	name := p.OutputFileName
	if p.OutputDirectory != "" {
		name = p.OutputDirectory + `\` + name
	}
	path, err := model.CanonicalPath(name, filepath.Dir(descriptorPath))
	if err != nil {
		return "", errs.Wrap(err, errs.KindMalformedDescriptor, "bad output path").WithPath(descriptorPath)
	}
	return path, nil
}

// collectReferences resolves a project's Reference= lines and then its
// Object= lines, in file order.
func collectReferences(r *Run, path string, p *model.ProjectDescriptor, inline bool) error {
	lines := []struct {
		kind   model.ReferenceKind
		tokens []string
	}{
		{model.TypeLibReference, p.ReferenceTokens},
		{model.ObjectReference, p.ObjectTokens},
	}
	for _, l := range lines {
		for _, tok := range l.tokens {
			rc, err := r.b.Resolver.ResolveToken(l.kind, tok)
			if err != nil {
				return withPath(err, path)
			}
			if err := r.AddResolved(rc, inline); err != nil {
				return err
			}
		}
	}
	return nil
}

func namesAssembly(ids []model.AssemblyIdentity, name string) bool {
	for _, id := range ids {
		if strings.EqualFold(id.Name, name) {
			return true
		}
	}
	return false
}

// withPath attaches path to a kinded error that carries none.
func withPath(err error, path string) error {
	var e *errs.Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}
