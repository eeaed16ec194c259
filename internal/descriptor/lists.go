package descriptor

import (
	"bufio"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/StinkyLord/sxsmanifest/internal/errs"
	"github.com/StinkyLord/sxsmanifest/internal/model"
)

// ReadList reads a list file: one entry per line, surrounding whitespace
// trimmed, blank lines and lines starting with // skipped.
func ReadList(fsys billy.Basic, path string) ([]string, error) {
	data, err := readInput(fsys, path)
	if err != nil {
		return nil, err
	}

	var out []string
	sc := bufio.NewScanner(strings.NewReader(decodeText(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(err, errs.KindMalformedDescriptor, "cannot read list file").WithPath(path)
	}
	return out, nil
}

// Union concatenates lists keeping the first occurrence of each line.
func Union(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, s := range l {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ValidateIdentity checks that line is exactly one well-formed
// assemblyIdentity element, so that it can be written into a manifest
// verbatim.
func ValidateIdentity(line string) error {
	dec := xml.NewDecoder(strings.NewReader(line))
	depth := 0
	elements := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errs.Wrap(err, errs.KindMalformedDescriptor, "dependent assembly line is not well-formed XML: %q", line)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				elements++
				if t.Name.Local != "assemblyIdentity" {
					return errs.New(errs.KindMalformedDescriptor, "dependent assembly line must be an assemblyIdentity element: %q", line)
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && strings.TrimSpace(string(t)) != "" {
				return errs.New(errs.KindMalformedDescriptor, "unexpected text in dependent assembly line: %q", line)
			}
		}
	}
	if elements != 1 || depth != 0 {
		return errs.New(errs.KindMalformedDescriptor, "dependent assembly line must hold exactly one element: %q", line)
	}
	return nil
}

// ParseIdentity validates line and returns the identity attributes it names.
func ParseIdentity(line string) (model.AssemblyIdentity, error) {
	if err := ValidateIdentity(line); err != nil {
		return model.AssemblyIdentity{}, err
	}
	var v struct {
		Name           string `xml:"name,attr"`
		Version        string `xml:"version,attr"`
		PublicKeyToken string `xml:"publicKeyToken,attr"`
	}
	if err := xml.Unmarshal([]byte(line), &v); err != nil {
		return model.AssemblyIdentity{}, errs.Wrap(err, errs.KindMalformedDescriptor, "cannot read dependent assembly line %q", line)
	}
	return model.AssemblyIdentity{Name: v.Name, Version: v.Version, PublicKeyToken: v.PublicKeyToken}, nil
}
