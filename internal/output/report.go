package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/StinkyLord/sxsmanifest/internal/descriptor"
	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// Report is a machine-readable summary of a generated manifest, for build
// systems that want to know what the manifest pins without parsing it.
//
// Example output:
//
//	{
//	  "name": "Grid",
//	  "version": "4.12.0.205",
//	  "description": "Grid control",
//	  "entries": [
//	    {
//	      "kind": "dependency",
//	      "name": "Common",
//	      "version": "2.5.0.7",
//	      "path": "C:\\lib\\Common.dll"
//	    },
//	    {
//	      "kind": "file",
//	      "name": "Grid.ocx",
//	      "path": "C:\\bin\\Grid.ocx",
//	      "typelib": { "tlbid": "{...}", "version": "4.12", "flags": "control,hasDiskImage" },
//	      "classes": [ { "clsid": "{...}", "progid": "Grid.GridCtrl", "threadingModel": "Apartment" } ]
//	    }
//	  ],
//	  "interfaces": [ { "name": "_Widget", "iid": "{...}", "proxyStubClsid32": "{...}" } ]
//	}
type Report struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Entries     []ReportEntry     `json:"entries"`
	Interfaces  []ReportInterface `json:"interfaces,omitempty"`
}

// ReportEntry is one dependency or file of the manifest.
type ReportEntry struct {
	Kind           string         `json:"kind"`
	Name           string         `json:"name"`
	Version        string         `json:"version,omitempty"`
	PublicKeyToken string         `json:"publicKeyToken,omitempty"`
	Path           string         `json:"path,omitempty"`
	Pinned         bool           `json:"pinned,omitempty"` // caller-supplied identity
	TypeLib        *ReportTypeLib `json:"typelib,omitempty"`
	Classes        []ReportClass  `json:"classes,omitempty"`
}

// ReportTypeLib mirrors a typelib element.
type ReportTypeLib struct {
	TLBID   string `json:"tlbid"`
	Version string `json:"version"`
	Flags   string `json:"flags"`
}

// ReportClass mirrors a comClass element.
type ReportClass struct {
	CLSID          string            `json:"clsid"`
	ProgID         string            `json:"progid,omitempty"`
	CurVer         string            `json:"curVer,omitempty"`
	ThreadingModel string            `json:"threadingModel"`
	MiscStatus     map[string]string `json:"miscStatus,omitempty"`
}

// ReportInterface mirrors a comInterfaceExternalProxyStub element.
type ReportInterface struct {
	Name             string `json:"name"`
	IID              string `json:"iid"`
	ProxyStubClsid32 string `json:"proxyStubClsid32"`
}

// BuildReport summarizes doc. Proxy/stub ids are looked up in dir the same
// way RenderManifest does.
func BuildReport(doc *Document, dir directory.ComponentDirectory) (*Report, error) {
	asm, err := buildAssembly(doc, dir)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Entries:     []ReportEntry{},
	}
	if doc.Set != nil {
		for _, e := range doc.Set.Entries {
			r.Entries = append(r.Entries, reportEntry(e))
		}
	}
	for _, p := range asm.ProxyStubs {
		r.Interfaces = append(r.Interfaces, ReportInterface{Name: p.Name, IID: p.IID, ProxyStubClsid32: p.ProxyStubClsid32})
	}
	return r, nil
}

func reportEntry(e model.ManifestEntry) ReportEntry {
	if e.Kind == model.DependencyEntry {
		out := ReportEntry{Kind: e.Kind.String(), Path: e.FilePath}
		id := e.Identity
		if e.RawIdentity != "" {
			out.Pinned = true
			if parsed, err := descriptor.ParseIdentity(e.RawIdentity); err == nil {
				id = &parsed
			}
		}
		if id != nil {
			out.Name, out.Version, out.PublicKeyToken = id.Name, id.Version, id.PublicKeyToken
		}
		return out
	}

	out := ReportEntry{Kind: e.Kind.String(), Name: e.FileName, Path: e.FilePath}
	if e.TypeLib != nil {
		out.TypeLib = &ReportTypeLib{TLBID: e.TypeLib.TypeLibraryID, Version: e.TypeLib.Version, Flags: e.TypeLib.Flags}
	}
	for _, c := range e.Classes {
		rc := ReportClass{CLSID: c.ClassID, ProgID: c.ProgID, CurVer: c.CurrentVersionProgID, ThreadingModel: c.ThreadingModel}
		for _, m := range c.MiscStatus {
			if rc.MiscStatus == nil {
				rc.MiscStatus = map[string]string{}
			}
			rc.MiscStatus[m.Context.AttributeName()] = m.Flags
		}
		out.Classes = append(out.Classes, rc)
	}
	return out
}

// MarshalReport encodes r as indented JSON with a trailing newline.
func MarshalReport(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Write writes data to path on fsys, or to stdout when path is "" or "-".
func Write(fsys billy.Basic, stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := util.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
