package identity

import (
	"strconv"
	"strings"
)

type flagName struct {
	bit  uint32
	name string
}

// OLEMISC flag names as they appear in miscStatus attributes. Static keeps
// the capitalization existing manifests were written with.
var oleMiscFlags = []flagName{
	{0x1, "recomposeOnResize"},
	{0x2, "onlyIconic"},
	{0x4, "insertNotReplace"},
	{0x8, "Static"},
	{0x10, "cantLinkInside"},
	{0x20, "canLinkByOle1"},
	{0x40, "isLinkObject"},
	{0x80, "insideOut"},
	{0x100, "activateWhenVisible"},
	{0x200, "renderingIsDeviceIndependent"},
	{0x400, "invisibleAtRuntime"},
	{0x800, "alwaysRun"},
	{0x1000, "actsLikeButton"},
	{0x2000, "actsLikeLabel"},
	{0x4000, "noUiActivate"},
	{0x8000, "alignable"},
	{0x10000, "simpleFrame"},
	{0x20000, "setClientSiteFirst"},
	{0x40000, "imeMode"},
	{0x80000, "ignoreActivateWhenVisible"},
	{0x100000, "wantsToMenuMerge"},
	{0x200000, "supportsMultiLevelUndo"},
}

// LIBFLAGS names as they appear in typelib flags attributes.
var libFlags = []flagName{
	{0x1, "restricted"},
	{0x2, "control"},
	{0x4, "hidden"},
	{0x8, "hasDiskImage"},
}

// TYPEFLAGS bit that hides a coclass from browsers.
const typeFlagHidden = 0x10

// FormatMiscStatus formats OLEMISC flags, e.g. 132497 ->
// "recomposeOnResize,cantLinkInside,insideOut,activateWhenVisible,invisibleAtRuntime,setClientSiteFirst".
func FormatMiscStatus(v uint32) string { return formatFlags(v, oleMiscFlags) }

// FormatLibFlags formats LIBFLAGS, e.g. 10 -> "control,hasDiskImage".
func FormatLibFlags(v uint16) string { return formatFlags(uint32(v), libFlags) }

// formatFlags joins the names of the set bits in ascending order. Zero
// formats as "0"; a value with bits outside the table formats as its decimal
// value.
func formatFlags(v uint32, table []flagName) string {
	if v == 0 {
		return "0"
	}
	var names []string
	rest := v
	for _, f := range table {
		if v&f.bit != 0 {
			names = append(names, f.name)
			rest &^= f.bit
		}
	}
	if rest != 0 {
		return strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(names, ",")
}
