package identity

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
)

const (
	testSectionRVA    = 0x1000
	testSectionOffset = 0x200
)

// versionResource builds a .rsrc section holding one RT_VERSION entry with
// the given file version words.
func versionResource(ms, ls uint32) []byte {
	var b bytes.Buffer
	w := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }
	dir := func(entries uint16) {
		w(uint32(0)) // characteristics
		w(uint32(0)) // timestamp
		w(uint16(0)) // major
		w(uint16(0)) // minor
		w(uint16(0)) // named entries
		w(entries)
	}

	// type level at 0x00, one entry at 0x10
	dir(1)
	w(uint32(16))
	w(uint32(subdirectoryFlag | 0x18))
	// name level at 0x18, entry at 0x28
	dir(1)
	w(uint32(1))
	w(uint32(subdirectoryFlag | 0x30))
	// language level at 0x30, entry at 0x40
	dir(1)
	w(uint32(0x409))
	w(uint32(0x48))
	// data entry at 0x48, version block at 0x58
	w(uint32(testSectionRVA + 0x58))
	w(uint32(40 + fixedFileInfoSize))
	w(uint32(0))
	w(uint32(0))

	// VS_VERSIONINFO header
	w(uint16(40 + fixedFileInfoSize))
	w(uint16(fixedFileInfoSize))
	w(uint16(0))
	b.Write(encodeUTF16(versionInfoKey))
	w(uint16(0))
	w(uint16(0)) // padding to 32 bits
	// VS_FIXEDFILEINFO
	w(uint32(fixedFileInfoSignature))
	w(uint32(0x00010000))
	w(ms)
	w(ls)
	w(ms) // product version
	w(ls)
	for i := 0; i < 7; i++ {
		w(uint32(0))
	}
	return b.Bytes()
}

// peImage wraps a section body in a minimal PE image without an optional
// header.
func peImage(name string, body []byte) []byte {
	img := make([]byte, testSectionOffset+len(body))
	img[0], img[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(img[0x3c:], 0x40)
	copy(img[0x40:], "PE\x00\x00")

	fh := img[0x44:]
	binary.LittleEndian.PutUint16(fh[0:], 0x14c) // i386
	binary.LittleEndian.PutUint16(fh[2:], 1)     // one section

	sh := img[0x58:]
	copy(sh[0:8], name)
	binary.LittleEndian.PutUint32(sh[8:], uint32(len(body)))  // virtual size
	binary.LittleEndian.PutUint32(sh[12:], testSectionRVA)    // virtual address
	binary.LittleEndian.PutUint32(sh[16:], uint32(len(body))) // raw size
	binary.LittleEndian.PutUint32(sh[20:], testSectionOffset) // raw pointer

	copy(img[testSectionOffset:], body)
	return img
}

func TestReadFileVersion(t *testing.T) {
	img := peImage(".rsrc", versionResource(1<<16|2, 3<<16|4))
	v, err := ReadFileVersion(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", v)
}

func TestReadFileVersionFailures(t *testing.T) {
	t.Run("not a PE image", func(t *testing.T) {
		_, err := ReadFileVersion(bytes.NewReader([]byte("MZ")))
		assert.Error(t, err)
	})

	t.Run("no resource section", func(t *testing.T) {
		_, err := ReadFileVersion(bytes.NewReader(peImage(".text", make([]byte, 64))))
		assert.ErrorContains(t, err, "no resource section")
	})

	t.Run("no version resource", func(t *testing.T) {
		rsrc := versionResource(0, 0)
		binary.LittleEndian.PutUint32(rsrc[0x10:], 3) // RT_ICON
		_, err := ReadFileVersion(bytes.NewReader(peImage(".rsrc", rsrc)))
		assert.ErrorContains(t, err, "no RT_VERSION resource")
	})

	t.Run("bad signature", func(t *testing.T) {
		rsrc := versionResource(0, 0)
		binary.LittleEndian.PutUint32(rsrc[0x58+40:], 0xDEADBEEF)
		_, err := ReadFileVersion(bytes.NewReader(peImage(".rsrc", rsrc)))
		assert.ErrorContains(t, err, "signature")
	})
}

func TestPEVersionReader(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "/bin/Grid.ocx", peImage(".rsrc", versionResource(4<<16|12, 0<<16|205)), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/bin/empty.dll", []byte("MZ"), 0o644))

	r := PEVersionReader{FS: fsys}
	v, err := r.FileVersion("/bin/Grid.ocx")
	require.NoError(t, err)
	assert.Equal(t, "4.12.0.205", v)

	_, err = r.FileVersion("/bin/empty.dll")
	require.Error(t, err)
	assert.Equal(t, errs.KindVersionInfoUnavailable, errs.KindOf(err))

	_, err = r.FileVersion("/bin/missing.dll")
	require.Error(t, err)
	assert.Equal(t, errs.KindInputFileMissing, errs.KindOf(err))
}
