// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tree

import (
	"context"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matrixorigin/batsql/pkg/common/moerr"
)

func (t Token) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t *Token) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	tok, ok := ParseToken(s)
	if !ok {
		return moerr.NewInvalidInput(moerr.Context(), "unknown token %q at line %d", s, value.Line)
	}
	*t = tok
	return nil
}

func (k AtomKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

func (k *AtomKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	s = strings.ToLower(s)
	for i, name := range atomKindNames {
		if name == s {
			*k = AtomKind(i)
			return nil
		}
	}
	return moerr.NewInvalidInput(moerr.Context(), "unknown atom kind %q at line %d", s, value.Line)
}

func (sn *SelectNode) UnmarshalYAML(value *yaml.Node) error {
	type plain SelectNode
	p := plain{Limit: -1}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*sn = SelectNode(p)
	return nil
}

// UnmarshalYAML fills the source position from the yaml node when the
// document does not carry one.
func (s *Symbol) UnmarshalYAML(value *yaml.Node) error {
	type plain Symbol
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	if p.Line == 0 {
		p.Line, p.Col = value.Line, value.Column
	}
	*s = Symbol(p)
	return nil
}

// Decode reads a stream of yaml documents, one statement each.
func Decode(ctx context.Context, r io.Reader) ([]*Symbol, error) {
	dec := yaml.NewDecoder(r)
	var stmts []*Symbol
	for {
		s := &Symbol{}
		err := dec.Decode(s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, convertYamlError(ctx, err)
		}
		if err = Validate(ctx, s); err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// DecodeString decodes exactly one statement.
func DecodeString(ctx context.Context, doc string) (*Symbol, error) {
	stmts, err := Decode(ctx, strings.NewReader(doc))
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, moerr.NewInvalidInput(ctx, "expected one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

// Encode writes statements as a yaml stream.
func Encode(w io.Writer, stmts ...*Symbol) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, s := range stmts {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return enc.Close()
}

func convertYamlError(ctx context.Context, err error) error {
	if me, ok := err.(*moerr.Error); ok {
		return me
	}
	var te *yaml.TypeError
	if errors.As(err, &te) {
		for _, e := range te.Errors {
			// a token or atom kind error is wrapped by yaml as text
			if strings.Contains(e, "unknown token") || strings.Contains(e, "unknown atom kind") {
				return moerr.NewInvalidInput(ctx, "%s", e)
			}
		}
	}
	return moerr.NewInvalidInput(ctx, "statement yaml: %v", err)
}

var statementTokens = map[Token]bool{
	SELECT:      true,
	INSERT:      true,
	UPDATE:      true,
	DELETE:      true,
	CREATE_VIEW: true,
}

// Validate checks the shape of the symbols the compiler indexes into
// without further checks.
func Validate(ctx context.Context, s *Symbol) error {
	if !statementTokens[s.Token] {
		return moerr.NewInvalidInput(ctx, "%s is not a statement", s.Token)
	}
	return validate(ctx, s)
}

func validate(ctx context.Context, s *Symbol) error {
	if s == nil {
		return nil
	}
	need := func(n int) error {
		if len(s.List) < n {
			return moerr.NewInvalidInput(ctx, "%s at line %d needs %d operands, has %d", s.Token, s.Line, n, len(s.List))
		}
		for _, l := range s.List[:n] {
			if l == nil {
				return moerr.NewInvalidInput(ctx, "%s at line %d has an empty operand", s.Token, s.Line)
			}
		}
		return nil
	}
	var err error
	switch s.Token {
	case UNKNOWN:
		err = moerr.NewInvalidInput(ctx, "missing token at line %d", s.Line)
	case AND, OR, COMPARE, CROSS, JOIN, NATURAL_JOIN, BINOP, LIKE, NOT_LIKE, WHEN:
		err = need(2)
	case BETWEEN, NOT_BETWEEN, TRIOP:
		err = need(3)
	case IN, NOT_IN:
		err = need(1)
	case NOT, IS_NULL, IS_NOT_NULL, UNOP, EXISTS, NOT_EXISTS, ALIAS, ORDER, CAST, ASSIGN, ELSE:
		if s.Sym == nil {
			err = moerr.NewInvalidInput(ctx, "%s at line %d without operand", s.Token, s.Line)
		}
	case COLUMN, TABLE, INSERT, UPDATE, DELETE, CREATE_VIEW:
		if len(s.Names) == 0 {
			err = moerr.NewInvalidInput(ctx, "%s at line %d without name", s.Token, s.Line)
		}
	case ATOM:
		if s.Atom == nil {
			err = moerr.NewInvalidInput(ctx, "ATOM at line %d without value", s.Line)
		}
	}
	if err == nil && s.Token == CAST && s.Type == nil {
		err = moerr.NewInvalidInput(ctx, "CAST at line %d without type", s.Line)
	}
	if err == nil && (s.Token == SELECT || s.Token == CREATE_VIEW) && s.Select == nil {
		err = moerr.NewInvalidInput(ctx, "%s at line %d without query", s.Token, s.Line)
	}
	if err != nil {
		return err
	}
	if err = validate(ctx, s.Sym); err != nil {
		return err
	}
	for _, l := range s.List {
		if err = validate(ctx, l); err != nil {
			return err
		}
	}
	if sn := s.Select; sn != nil {
		for _, group := range [][]*Symbol{sn.Selection, sn.From, sn.GroupBy, sn.OrderBy, {sn.Where, sn.Having}} {
			for _, l := range group {
				if err = validate(ctx, l); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
