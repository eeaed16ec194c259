//go:build windows

package directory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// Registry is a ComponentDirectory backed by HKEY_CLASSES_ROOT. Manifests
// describe x86 components, so lookups use the 32-bit registry view.
type Registry struct{}

// NewRegistry returns the system component directory.
func NewRegistry() (*Registry, error) {
	return &Registry{}, nil
}

const registryAccess = registry.QUERY_VALUE | registry.ENUMERATE_SUB_KEYS | registry.WOW64_32KEY

// TypeLibPath implements ComponentDirectory.
func (r *Registry) TypeLibPath(typeLibID, hexVersion string) (string, error) {
	return readDefault(`TypeLib\` + typeLibID + `\` + hexVersion + `\0\win32`)
}

// TypeLibVersions implements ComponentDirectory.
func (r *Registry) TypeLibVersions(typeLibID string) ([]TypeLibVersion, error) {
	k, err := registry.OpenKey(registry.CLASSES_ROOT, `TypeLib\`+typeLibID, registryAccess)
	if errors.Is(err, registry.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open TypeLib\\%s: %w", typeLibID, err)
	}
	defer k.Close()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("enumerate TypeLib\\%s: %w", typeLibID, err)
	}

	versions := make([]TypeLibVersion, 0, len(names))
	for _, name := range names {
		path, err := readDefault(`TypeLib\` + typeLibID + `\` + name + `\0\win32`)
		if err != nil {
			return nil, err
		}
		versions = append(versions, TypeLibVersion{Version: name, Path: path})
	}
	return versions, nil
}

// Class implements ComponentDirectory.
func (r *Registry) Class(classID string) (ClassRegistration, error) {
	base := `CLSID\` + classID
	var reg ClassRegistration
	var err error

	if reg.ThreadingModel, err = readValue(base+`\InprocServer32`, "ThreadingModel"); err != nil {
		return reg, err
	}
	if reg.ProgID, err = readDefault(base + `\ProgID`); err != nil {
		return reg, err
	}
	if reg.VersionIndependentProgID, err = readDefault(base + `\VersionIndependentProgID`); err != nil {
		return reg, err
	}

	for ctx := 0; ctx <= 4; ctx++ {
		key := base + `\MiscStatus`
		if ctx > 0 {
			key += `\` + strconv.Itoa(ctx)
		}
		raw, err := readDefault(key)
		if err != nil {
			return reg, err
		}
		flags, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil || flags == 0 {
			continue
		}
		if reg.MiscStatus == nil {
			reg.MiscStatus = map[int]uint32{}
		}
		reg.MiscStatus[ctx] = uint32(flags)
	}
	return reg, nil
}

// CurrentVersion implements ComponentDirectory.
func (r *Registry) CurrentVersion(progID string) (string, error) {
	if progID == "" {
		return "", nil
	}
	return readDefault(progID + `\CurVer`)
}

// ProxyStub implements ComponentDirectory.
func (r *Registry) ProxyStub(interfaceID string) (string, error) {
	return readDefault(`Interface\` + interfaceID + `\ProxyStubClsid32`)
}

func readDefault(path string) (string, error) {
	return readValue(path, "")
}

// readValue returns a string value under HKCR, or "" when the key or value
// does not exist.
func readValue(path, name string) (string, error) {
	k, err := registry.OpenKey(registry.CLASSES_ROOT, path, registryAccess)
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer k.Close()

	s, valType, err := k.GetStringValue(name)
	switch {
	case errors.Is(err, registry.ErrNotExist):
		return "", nil
	case errors.Is(err, registry.ErrUnexpectedType):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("read %s\\%s: %w", path, name, err)
	}
	if valType == registry.EXPAND_SZ {
		if expanded, err := registry.ExpandString(s); err == nil {
			s = expanded
		}
	}
	return s, nil
}
