// Package fingerprints is a database of well-known type libraries: the
// platform-ubiquitous ones that are never side-by-sided, and the ones that
// signal a dependency on the Windows Common Controls.
package fingerprints

import (
	"strings"

	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// TypeLibraryFingerprint describes how to recognise a known type library.
type TypeLibraryFingerprint struct {
	Name        string // conventional file stem
	GUID        string // LIBID, braced
	Description string

	// Excluded libraries ship with the operating system; references to them
	// never produce a manifest entry.
	Excluded bool

	// CommonControls libraries are wrappers around comctl32; an executable
	// that embeds them wants the version 6 common controls assembly.
	CommonControls bool
}

// KnownTypeLibraries is the built-in fingerprint database.
var KnownTypeLibraries = []TypeLibraryFingerprint{
	{
		Name:        "stdole2",
		GUID:        "{00020430-0000-0000-C000-000000000046}",
		Description: "OLE Automation",
		Excluded:    true,
	},
	{
		Name:        "scrrun",
		GUID:        "{420B2830-E718-11CF-893D-00A0C9054228}",
		Description: "Microsoft Scripting Runtime",
		Excluded:    true,
	},
	{
		Name:        "vbscript",
		GUID:        "{3F4DACA7-160D-11D2-A8E9-00104B365C9F}",
		Description: "Microsoft VBScript Regular Expressions",
		Excluded:    true,
	},
	{
		Name:        "msxml6",
		GUID:        "{F5078F18-C551-11D3-89B9-0000F81FE221}",
		Description: "Microsoft XML, v6.0",
		Excluded:    true,
	},
	{
		Name:        "msdatsrc",
		GUID:        "{7C0FFAB0-CD84-11D0-949A-00A0C91110ED}",
		Description: "Microsoft Data Source Interfaces",
		Excluded:    true,
	},
	{
		Name:        "msado28",
		GUID:        "{2A75196C-D9EB-4129-B803-931327F72D5C}",
		Description: "Microsoft ActiveX Data Objects 2.8",
		Excluded:    true,
	},
	{
		Name:           "comctl32",
		GUID:           "{6B7E6392-850A-101B-AFC0-4210102A8DA7}",
		Description:    "Microsoft Windows Common Controls 5.0",
		CommonControls: true,
	},
	{
		Name:           "mscomctl",
		GUID:           "{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}",
		Description:    "Microsoft Windows Common Controls 6.0",
		CommonControls: true,
	},
}

// CommonControls is the identity of the version 6 Windows Common Controls
// assembly.
var CommonControls = model.AssemblyIdentity{
	Name:           "Microsoft.Windows.Common-Controls",
	Version:        "6.0.0.0",
	PublicKeyToken: "6595b64144ccf1df",
}

// Match returns the fingerprint whose GUID equals guid, ignoring case, or nil.
func Match(guid string) *TypeLibraryFingerprint {
	key := model.GUIDKey(guid)
	for i := range KnownTypeLibraries {
		fp := &KnownTypeLibraries[i]
		if strings.EqualFold(fp.GUID, key) {
			return fp
		}
	}
	return nil
}

// IsExcluded reports whether references to guid are skipped.
func IsExcluded(guid string) bool {
	fp := Match(guid)
	return fp != nil && fp.Excluded
}

// IsCommonControls reports whether guid is a common controls type library.
func IsCommonControls(guid string) bool {
	fp := Match(guid)
	return fp != nil && fp.CommonControls
}
