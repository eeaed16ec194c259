package fingerprints

import "testing"

func TestExcludedLibraries(t *testing.T) {
	excluded := []string{
		"{00020430-0000-0000-C000-000000000046}",
		"{00020430-0000-0000-c000-000000000046}",
		"{420B2830-E718-11CF-893D-00A0C9054228}",
		"{3F4DACA7-160D-11D2-A8E9-00104B365C9F}",
		"{F5078F18-C551-11D3-89B9-0000F81FE221}",
		"{7C0FFAB0-CD84-11D0-949A-00A0C91110ED}",
		"{2A75196C-D9EB-4129-B803-931327F72D5C}",
	}
	for _, g := range excluded {
		if !IsExcluded(g) {
			t.Errorf("IsExcluded(%q) = false, want true", g)
		}
	}

	if IsExcluded("{831FDD16-0C5C-11D2-A9FC-0000F8754DA1}") {
		t.Error("common controls library must not be excluded")
	}
	if IsExcluded("{12345678-1111-2222-3333-444444444444}") {
		t.Error("unknown library must not be excluded")
	}
}

func TestCommonControls(t *testing.T) {
	if !IsCommonControls("{6b7e6392-850a-101b-afc0-4210102a8da7}") {
		t.Error("comctl32 type library not recognised")
	}
	if IsCommonControls("{00020430-0000-0000-C000-000000000046}") {
		t.Error("stdole2 is not a common controls library")
	}
	if CommonControls.Name != "Microsoft.Windows.Common-Controls" ||
		CommonControls.Version != "6.0.0.0" ||
		CommonControls.PublicKeyToken != "6595b64144ccf1df" {
		t.Errorf("CommonControls identity = %+v", CommonControls)
	}
}

func TestMatchUnknown(t *testing.T) {
	if fp := Match("not-a-guid"); fp != nil {
		t.Errorf("Match returned %+v for garbage", fp)
	}
}
