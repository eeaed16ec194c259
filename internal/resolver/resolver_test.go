package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/model"
	"github.com/StinkyLord/sxsmanifest/internal/testutil"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		kind    model.ReferenceKind
		token   string
		guid    string
		version string
		wantErr errs.Kind
	}{
		{
			name:    "reference line",
			kind:    model.TypeLibReference,
			token:   testutil.CommonReference,
			guid:    testutil.CommonLib,
			version: "1.0",
		},
		{
			name:    "object line",
			kind:    model.ObjectReference,
			token:   "{831fdd16-0c5c-11d2-a9fc-0000f8754da1}#2.0#0; MSCOMCTL.OCX",
			guid:    "{831fdd16-0c5c-11d2-a9fc-0000f8754da1}",
			version: "2.0",
		},
		{
			name:    "decimal to hex",
			kind:    model.ObjectReference,
			token:   testutil.WidgetsLib + "#255.16#0; Big.ocx",
			guid:    testutil.WidgetsLib,
			version: "FF.10",
		},
		{
			name:    "no guid",
			kind:    model.TypeLibReference,
			token:   `*\G{not-a-guid}#1.0#0#x.dll#X`,
			wantErr: errs.KindIdentifierNotFound,
		},
		{
			name:    "no version marker",
			kind:    model.ObjectReference,
			token:   testutil.WidgetsLib + "#1#0; Widgets.ocx",
			wantErr: errs.KindVersionTokenNotFound,
		},
		{
			name:    "version out of range",
			kind:    model.TypeLibReference,
			token:   testutil.WidgetsLib + "#99999999999.1#0; Big.ocx",
			wantErr: errs.KindVersionTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseToken(tt.kind, tt.token)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, errs.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.guid, ref.TypeLibraryID)
			assert.Equal(t, tt.version, ref.TypeLibraryVersion)
			assert.Equal(t, tt.kind, ref.Kind)
			assert.Equal(t, tt.token, ref.Token)
		})
	}
}

func TestHexVersion(t *testing.T) {
	cases := map[[2]string]string{
		{"1", "0"}:    "1.0",
		{"255", "16"}: "FF.10",
		{"10", "11"}:  "A.B",
		{"007", "0"}:  "7.0",
	}
	for in, want := range cases {
		got, err := HexVersion(in[0], in[1])
		require.NoError(t, err)
		assert.Equal(t, want, got, "HexVersion(%s, %s)", in[0], in[1])
	}
}

func TestResolve(t *testing.T) {
	testutil.SkipOnWindows(t)
	r := New(testutil.NewCatalog(t), nil)

	t.Run("excluded reference", func(t *testing.T) {
		rc, err := r.ResolveToken(model.TypeLibReference, testutil.StdOleReference)
		require.NoError(t, err)
		assert.Equal(t, model.Excluded, rc.Outcome)
		assert.Empty(t, rc.FilePath)
	})

	t.Run("reference takes latest registered version", func(t *testing.T) {
		rc, err := r.ResolveToken(model.TypeLibReference, testutil.CommonReference)
		require.NoError(t, err)
		assert.Equal(t, model.ResolvedBinary, rc.Outcome)
		assert.Equal(t, "/lib/Common.dll", rc.FilePath)
	})

	t.Run("object takes exact version", func(t *testing.T) {
		rc, err := r.ResolveToken(model.ObjectReference, testutil.WidgetsObject)
		require.NoError(t, err)
		assert.Equal(t, "/lib/Widgets.ocx", rc.FilePath)

		rc, err = r.ResolveToken(model.ObjectReference, testutil.WidgetsLib+"#1.1#0; Widgets11.ocx")
		require.NoError(t, err)
		assert.Equal(t, "/lib/Widgets11.ocx", rc.FilePath)
	})

	t.Run("excluded guid in an object line still resolves", func(t *testing.T) {
		rc, err := r.ResolveToken(model.ObjectReference, testutil.StdOleLib+"#2.0#0; stdole2.tlb")
		require.NoError(t, err)
		assert.Equal(t, model.ResolvedTypeLibOnly, rc.Outcome)
	})

	t.Run("type library only", func(t *testing.T) {
		rc, err := r.ResolveToken(model.TypeLibReference, testutil.TypesReference)
		require.NoError(t, err)
		assert.Equal(t, model.ResolvedTypeLibOnly, rc.Outcome)
		assert.Equal(t, "/lib/Types.tlb", rc.FilePath)
	})

	t.Run("aliases share a key", func(t *testing.T) {
		a, err := r.ResolveToken(model.TypeLibReference, testutil.CommonReference)
		require.NoError(t, err)
		b, err := r.ResolveToken(model.TypeLibReference, testutil.CommonAliasRef)
		require.NoError(t, err)
		assert.NotEqual(t, a.FilePath, b.FilePath)
		assert.Equal(t, model.PathKey(a.FilePath), model.PathKey(b.FilePath))
	})

	t.Run("unregistered object version", func(t *testing.T) {
		_, err := r.ResolveToken(model.ObjectReference, testutil.WidgetsLib+"#9.9#0; Widgets.ocx")
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.KindComponentNotResolvable))
	})

	t.Run("unregistered reference", func(t *testing.T) {
		_, err := r.ResolveToken(model.TypeLibReference, `*\G{99999999-0000-0000-0000-000000000000}#1.0#0#x.dll#X`)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.KindComponentNotResolvable))
	})
}
