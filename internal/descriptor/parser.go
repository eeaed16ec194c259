// Package descriptor parses legacy project descriptor files (Key=Value
// lines) and the line-oriented list files that accompany them.
package descriptor

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/text/encoding/charmap"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads and parses the descriptor at path.
func Load(fsys billy.Basic, path string) (*model.ProjectDescriptor, error) {
	data, err := readInput(fsys, path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		if e, ok := err.(*errs.Error); ok && e.Path == "" {
			e.Path = path
		}
		return nil, err
	}
	return p, nil
}

// Parse parses descriptor text. Unknown keys, blank lines and lines without
// '=' are ignored. Reference and Object values accumulate in file order.
func Parse(data []byte) (*model.ProjectDescriptor, error) {
	p := &model.ProjectDescriptor{}

	sc := bufio.NewScanner(strings.NewReader(decodeText(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue
		}
		if err := applyLine(p, line[:idx], line[idx+1:]); err != nil {
			err.Message = "line " + strconv.Itoa(lineNo) + ": " + err.Message
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(err, errs.KindMalformedDescriptor, "cannot read descriptor")
	}
	return p, nil
}

func applyLine(p *model.ProjectDescriptor, key, value string) *errs.Error {
	var err *errs.Error
	switch key {
	case "Type":
		p.ComponentType, err = parseType(value)
	case "MajorVer":
		p.MajorVersion, err = parseVersionField(key, value)
	case "MinorVer":
		p.MinorVersion, err = parseVersionField(key, value)
	case "RevisionVer":
		p.RevisionVersion, err = parseVersionField(key, value)
	case "Description":
		p.Description, err = trimDelimiters(key, value)
	case "ExeName32":
		p.OutputFileName, err = trimDelimiters(key, value)
	case "Path32":
		p.OutputDirectory, err = trimDelimiters(key, value)
	case "Reference":
		p.ReferenceTokens = append(p.ReferenceTokens, value)
	case "Object":
		p.ObjectTokens = append(p.ObjectTokens, value)
	}
	return err
}

func parseType(value string) (model.ComponentType, *errs.Error) {
	switch value {
	case "Exe":
		return model.Executable, nil
	case "OleDll":
		return model.ActiveXLibrary, nil
	case "Control":
		return model.ActiveXControl, nil
	}
	return model.ComponentUnknown, errs.New(errs.KindMalformedDescriptor,
		"wrong project type %q (want Exe, OleDll or Control)", value)
}

func parseVersionField(key, value string) (int, *errs.Error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, errs.New(errs.KindMalformedDescriptor, "%s is not a non-negative integer: %q", key, value)
	}
	return n, nil
}

// trimDelimiters strips the first and last character of a quoted value
// without checking that they are quotes.
func trimDelimiters(key, value string) (string, *errs.Error) {
	r := []rune(value)
	if len(r) < 2 {
		return "", errs.New(errs.KindMalformedDescriptor, "%s value is not delimited: %q", key, value)
	}
	return string(r[1 : len(r)-1]), nil
}

// decodeText returns data as UTF-8. Project files are usually written in the
// ANSI code page; anything that is not valid UTF-8 is read as Windows-1252.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func readInput(fsys billy.Basic, path string) ([]byte, error) {
	if _, err := fsys.Stat(path); err != nil {
		return nil, errs.Wrap(err, errs.KindInputFileMissing, "input file does not exist").WithPath(path)
	}
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindInputFileMissing, "cannot read input file").WithPath(path)
	}
	return data, nil
}
