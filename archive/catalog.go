package archive

import (
	"fmt"
	"strconv"
	"time"

	"mxc/depm"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// tomlCatalog is the library catalog as it is encoded in TOML.
type tomlCatalog struct {
	Version string        `toml:"mxc-version"`
	Scripts []*tomlScript `toml:"script"`
}

// tomlScript is one archived script as it is encoded in TOML.
type tomlScript struct {
	Name         string    `toml:"name"`
	Definitions  []string  `toml:"definitions"`
	Inheritance  []string  `toml:"inheritance,omitempty"`
	Types        []string  `toml:"types,omitempty"`
	Expressions  []string  `toml:"expressions,omitempty"`
	Namespaces   []string  `toml:"namespaces,omitempty"`
	LastModified time.Time `toml:"last-modified"`
	Checksum     string    `toml:"checksum,omitempty"`
	Bytecode     string    `toml:"bytecode"`
	Type         *tomlType `toml:"type-info"`
}

// tomlType is a type signature as it is encoded in TOML.
type tomlType struct {
	Name            string        `toml:"name"`
	Interface       bool          `toml:"interface"`
	Super           string        `toml:"super,omitempty"`
	Interfaces      []string      `toml:"interfaces,omitempty"`
	Events          []string      `toml:"events,omitempty"`
	DefaultProperty string        `toml:"default-property,omitempty"`
	Members         []*tomlMember `toml:"members,omitempty"`
}

// tomlMember is a type member as it is encoded in TOML.
type tomlMember struct {
	Name   string   `toml:"name"`
	Kind   string   `toml:"kind"`
	Type   string   `toml:"type,omitempty"`
	Params []string `toml:"params,omitempty"`
	Static bool     `toml:"static"`
}

func decodeCatalog(data []byte) (*tomlCatalog, error) {
	cat := &tomlCatalog{}
	if err := toml.Unmarshal(data, cat); err != nil {
		return nil, err
	}

	return cat, nil
}

func encodeCatalog(cat *tomlCatalog) ([]byte, error) {
	return toml.Marshal(cat)
}

// -----------------------------------------------------------------------------

func newTOMLScript(s *Script) *tomlScript {
	ts := &tomlScript{
		Name:         s.Name,
		Definitions:  qnameStrings(s.Definitions),
		Inheritance:  qnameStrings(s.Dependencies[depm.DepInheritance]),
		Types:        qnameStrings(s.Dependencies[depm.DepType]),
		Expressions:  qnameStrings(s.Dependencies[depm.DepExpression]),
		Namespaces:   qnameStrings(s.Dependencies[depm.DepNamespace]),
		LastModified: s.LastModified,
		Bytecode:     s.entryName(),
	}

	if s.Checksum != nil {
		ts.Checksum = strconv.FormatUint(*s.Checksum, 16)
	}

	if ti := s.TypeInfo; ti != nil {
		ts.Type = &tomlType{
			Name:            ti.Name.String(),
			Interface:       ti.IsInterface,
			Interfaces:      qnameStrings(ti.Interfaces),
			Events:          ti.Events,
			DefaultProperty: ti.DefaultProperty,
		}

		if !ti.Super.IsZero() {
			ts.Type.Super = ti.Super.String()
		}

		for _, m := range ti.Members {
			tm := &tomlMember{
				Name:   m.Name,
				Kind:   m.Kind.String(),
				Params: qnameStrings(m.Params),
				Static: m.Static,
			}

			if !m.Type.IsZero() {
				tm.Type = m.Type.String()
			}

			ts.Type.Members = append(ts.Type.Members, tm)
		}
	}

	return ts
}

// script converts the TOML script into a script without bytecode.
func (ts *tomlScript) script() (*Script, error) {
	if ts.Name == "" {
		return nil, errors.New("script without a name")
	}

	if len(ts.Definitions) == 0 {
		return nil, errors.Errorf("script %s defines nothing", ts.Name)
	}

	s := NewScript(ts.Name)
	s.LastModified = ts.LastModified
	s.Definitions = parseQNames(ts.Definitions)
	s.Dependencies[depm.DepInheritance] = parseQNames(ts.Inheritance)
	s.Dependencies[depm.DepType] = parseQNames(ts.Types)
	s.Dependencies[depm.DepExpression] = parseQNames(ts.Expressions)
	s.Dependencies[depm.DepNamespace] = parseQNames(ts.Namespaces)

	if ts.Checksum != "" {
		sum, err := strconv.ParseUint(ts.Checksum, 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "script %s: bad checksum", ts.Name)
		}

		s.Checksum = &sum
	}

	if tt := ts.Type; tt != nil {
		ti := &depm.TypeInfo{
			Name:            depm.ParseQName(tt.Name),
			IsInterface:     tt.Interface,
			Interfaces:      parseQNames(tt.Interfaces),
			Events:          tt.Events,
			DefaultProperty: tt.DefaultProperty,
		}

		if tt.Super != "" {
			ti.Super = depm.ParseQName(tt.Super)
		}

		for _, tm := range tt.Members {
			kind, err := parseMemberKind(tm.Kind)
			if err != nil {
				return nil, errors.Wrapf(err, "script %s", ts.Name)
			}

			m := depm.Member{
				Name:   tm.Name,
				Kind:   kind,
				Params: parseQNames(tm.Params),
				Static: tm.Static,
			}

			if tm.Type != "" {
				m.Type = depm.ParseQName(tm.Type)
			}

			ti.Members = append(ti.Members, m)
		}

		s.TypeInfo = ti
	}

	return s, nil
}

func parseMemberKind(kind string) (depm.MemberKind, error) {
	for _, mk := range []depm.MemberKind{depm.MemberField, depm.MemberMethod, depm.MemberGetter, depm.MemberSetter} {
		if mk.String() == kind {
			return mk, nil
		}
	}

	return 0, fmt.Errorf("unknown member kind `%s`", kind)
}

func qnameStrings(qnames []depm.QName) []string {
	if len(qnames) == 0 {
		return nil
	}

	strs := make([]string, len(qnames))
	for i, q := range qnames {
		strs[i] = q.String()
	}

	return strs
}

func parseQNames(strs []string) []depm.QName {
	if len(strs) == 0 {
		return nil
	}

	qnames := make([]depm.QName, len(strs))
	for i, s := range strs {
		qnames[i] = depm.ParseQName(s)
	}

	return qnames
}
