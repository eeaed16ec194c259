// Package output serializes a generation run: the assembly manifest itself
// and a JSON report of the entries it describes.
package output

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/StinkyLord/sxsmanifest/internal/directory"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// Manifest namespaces and the XML declaration every manifest starts with.
const (
	NamespaceV1    = "urn:schemas-microsoft-com:asm.v1"
	NamespaceV3    = "urn:schemas-microsoft-com:asm.v3"
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`
)

// Document is everything a manifest is rendered from.
type Document struct {
	Name        string
	Version     string
	Description string
	Set         *model.DependencySet
}

// ---- manifest schema types ----

type xmlAssembly struct {
	XMLName         xml.Name       `xml:"assembly"`
	ManifestVersion string         `xml:"manifestVersion,attr"`
	Xmlns           string         `xml:"xmlns,attr"`
	XmlnsAsmV3      string         `xml:"xmlns:asmv3,attr"`
	Identity        xmlIdentity    `xml:"assemblyIdentity"`
	Description     string         `xml:"description"`
	Body            []xmlBodyItem  `xml:"item"`
	ProxyStubs      []xmlProxyStub `xml:"comInterfaceExternalProxyStub"`
}

type xmlIdentity struct {
	Name                  string `xml:"name,attr"`
	ProcessorArchitecture string `xml:"processorArchitecture,attr"`
	Type                  string `xml:"type,attr"`
	Version               string `xml:"version,attr"`
	PublicKeyToken        string `xml:"publicKeyToken,attr,omitempty"`
}

// xmlBodyItem is a dependency or a file; the two interleave in discovery
// order.
type xmlBodyItem struct {
	Dependency *xmlDependency
	File       *xmlFile
}

func (i xmlBodyItem) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	if i.Dependency != nil {
		return e.EncodeElement(i.Dependency, xml.StartElement{Name: xml.Name{Local: "dependency"}})
	}
	return e.EncodeElement(i.File, xml.StartElement{Name: xml.Name{Local: "file"}})
}

type xmlDependency struct {
	DependentAssembly xmlDependentAssembly `xml:"dependentAssembly"`
}

type xmlDependentAssembly struct {
	Identity *xmlIdentity `xml:"assemblyIdentity"`
	Raw      string       `xml:",innerxml"`
}

type xmlFile struct {
	Name    string        `xml:"name,attr"`
	TypeLib *xmlTypeLib   `xml:"typelib"`
	Classes []xmlComClass `xml:"comClass"`
}

type xmlTypeLib struct {
	TLBID   string `xml:"tlbid,attr"`
	Version string `xml:"version,attr"`
	Flags   string `xml:"flags,attr"`
	HelpDir string `xml:"helpdir,attr"`
}

type xmlComClass struct {
	CLSID          string     `xml:"clsid,attr"`
	TLBID          string     `xml:"tlbid,attr"`
	ProgIDAttr     string     `xml:"progid,attr,omitempty"`
	ThreadingModel string     `xml:"threadingModel,attr,omitempty"`
	MiscStatus     []xml.Attr `xml:",any,attr"`
	ProgID         string     `xml:"progid,omitempty"`
}

type xmlProxyStub struct {
	Name             string `xml:"name,attr"`
	IID              string `xml:"iid,attr"`
	ProxyStubClsid32 string `xml:"proxyStubClsid32,attr"`
}

// RenderManifest serializes doc. Proxy/stub class ids of the collected
// interfaces are looked up in dir; unregistered interfaces get an empty id.
func RenderManifest(doc *Document, dir directory.ComponentDirectory) ([]byte, error) {
	asm, err := buildAssembly(doc, dir)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	buf.WriteByte('\n')
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(asm); err != nil {
		return nil, fmt.Errorf("failed to encode manifest XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest XML: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func buildAssembly(doc *Document, dir directory.ComponentDirectory) (*xmlAssembly, error) {
	asm := &xmlAssembly{
		ManifestVersion: "1.0",
		Xmlns:           NamespaceV1,
		XmlnsAsmV3:      NamespaceV3,
		Identity:        toXMLIdentity(model.AssemblyIdentity{Name: doc.Name, Version: doc.Version}),
		Description:     doc.Description,
	}
	if doc.Set == nil {
		return asm, nil
	}

	for _, e := range doc.Set.Entries {
		switch e.Kind {
		case model.DependencyEntry:
			dep := &xmlDependency{}
			if e.RawIdentity != "" {
				dep.DependentAssembly.Raw = e.RawIdentity
			} else {
				id := toXMLIdentity(*e.Identity)
				dep.DependentAssembly.Identity = &id
			}
			asm.Body = append(asm.Body, xmlBodyItem{Dependency: dep})
		case model.FileEntry:
			asm.Body = append(asm.Body, xmlBodyItem{File: toXMLFile(e)})
		}
	}

	for _, r := range doc.Set.Interfaces.Records() {
		var clsid string
		if dir != nil {
			var err error
			clsid, err = dir.ProxyStub(r.InterfaceID)
			if err != nil {
				return nil, fmt.Errorf("failed to look up proxy/stub of interface %s: %w", r.InterfaceID, err)
			}
		}
		asm.ProxyStubs = append(asm.ProxyStubs, xmlProxyStub{Name: r.Name, IID: r.InterfaceID, ProxyStubClsid32: clsid})
	}
	return asm, nil
}

func toXMLIdentity(id model.AssemblyIdentity) xmlIdentity {
	return xmlIdentity{
		Name:                  id.Name,
		ProcessorArchitecture: model.ProcessorArchitecture,
		Type:                  model.AssemblyType,
		Version:               id.Version,
		PublicKeyToken:        id.PublicKeyToken,
	}
}

func toXMLFile(e model.ManifestEntry) *xmlFile {
	f := &xmlFile{Name: e.FileName}
	if e.TypeLib != nil {
		f.TypeLib = &xmlTypeLib{TLBID: e.TypeLib.TypeLibraryID, Version: e.TypeLib.Version, Flags: e.TypeLib.Flags}
	}
	for _, c := range e.Classes {
		xc := xmlComClass{
			CLSID:          c.ClassID,
			TLBID:          c.TypeLibraryID,
			ThreadingModel: c.ThreadingModel,
		}
		// A registered CurVer takes the attribute; the ProgID moves into a
		// nested element.
		if c.CurrentVersionProgID != "" {
			xc.ProgIDAttr = c.CurrentVersionProgID
			xc.ProgID = c.ProgID
		} else {
			xc.ProgIDAttr = c.ProgID
		}
		for _, m := range c.MiscStatus {
			xc.MiscStatus = append(xc.MiscStatus, xml.Attr{Name: xml.Name{Local: m.Context.AttributeName()}, Value: m.Flags})
		}
		f.Classes = append(f.Classes, xc)
	}
	return f
}
