package script

import (
	"fmt"
	"strings"

	"mxc/common"
	"mxc/depm"
	"mxc/report"
)

// NOTE: All parsing functions (that are not utility/API functions) are
// commented with the EBNF notation of the grammar they parse.  Parsing
// functions raise local compile errors by panicking; ParseFile recovers them.

// Parser is the skeleton parser for script sources.  It parses declarations
// down to member signatures and keeps function bodies and initializers as
// text.  It is a recursive descent parser: every parsing function begins with
// the parser on the first token of its production and leaves it on the token
// following the production.
type Parser struct {
	src   string
	lexer *Lexer

	// tok is the current token the parser is positioned on.
	tok *Token

	// ahead is the token after tok if it has been looked at.
	ahead *Token
}

// ParseFile parses a script source.  Lines are numbered from firstLine.  The
// returned error is always a *report.LocalCompileError.
func ParseFile(src string, firstLine int) (f *File, err error) {
	defer func() {
		if x := recover(); x != nil {
			lce, ok := x.(*report.LocalCompileError)
			if !ok {
				panic(x)
			}

			f, err = nil, lce
		}
	}()

	p := &Parser{src: src, lexer: NewLexer(src, firstLine)}
	p.next()
	return p.parseFile(), nil
}

// -----------------------------------------------------------------------------

// file = 'package' [dotted_name] '{' {directive} '}'
func (p *Parser) parseFile() *File {
	f := &File{}

	p.want(TOK_PACKAGE)
	if p.got(TOK_IDENT) {
		f.Package = p.parseDottedName(false).Name
		if !common.IsValidPackageName(f.Package) {
			p.rejectWithMsg("invalid package name: `%s`", f.Package)
		}
	}

	p.want(TOK_LBRACE)
	for !p.got(TOK_RBRACE) {
		switch p.tok.Kind {
		case TOK_IMPORT:
			f.Imports = append(f.Imports, p.parseImport())
		case TOK_USE:
			f.UsedNamespaces = append(f.UsedNamespaces, p.parseUseNamespace())
		case TOK_SEMI:
			p.next()
		case TOK_EOF:
			p.reject()
		default:
			startTok := p.tok
			def := p.parseDefinition()
			if f.Def != nil {
				p.errorOn(startTok, "a file can contain only one externally visible definition")
			}

			f.Def = def
		}
	}

	p.next()
	p.assert(TOK_EOF)

	if f.Def == nil {
		p.rejectWithMsg("package contains no definition")
	}

	return f
}

// import = 'import' dotted_name ['.' '*'] [';']
func (p *Parser) parseImport() *Import {
	startTok := p.tok
	p.next()

	ref := p.parseDottedName(true)
	i := strings.LastIndexByte(ref.Name, '.')
	if i < 0 {
		p.errorOn(startTok, "import of `%s` names no package", ref.Name)
	}

	imp := &Import{
		Package:  ref.Name[:i],
		Name:     ref.Name[i+1:],
		Position: report.TextPositionFromRange(startTok.Position, ref.Position),
	}

	p.optional(TOK_SEMI)
	return imp
}

// use_namespace = 'use' 'namespace' dotted_name [';']
func (p *Parser) parseUseNamespace() *TypeRef {
	p.next()
	p.want(TOK_NAMESPACE)

	ref := p.parseDottedName(false)
	p.optional(TOK_SEMI)
	return ref
}

// definition = {metadata} {modifier} (class_def | interface_def | namespace_def)
func (p *Parser) parseDefinition() *Definition {
	def := &Definition{}
	def.Metadata = p.parseMetadataList()
	def.Modifiers = p.parseModifiers()

	switch p.tok.Kind {
	case TOK_CLASS:
		def.Kind = DefClass
		p.parseClass(def)
	case TOK_INTERFACE:
		def.Kind = DefInterface
		p.parseInterface(def)
	case TOK_NAMESPACE:
		def.Kind = DefNamespace
		p.parseNamespace(def)
	default:
		p.reject()
	}

	return def
}

// class_def = 'class' IDENT ['extends' type_name]
//
//	['implements' type_name {',' type_name}] '{' {member} '}'
func (p *Parser) parseClass(def *Definition) {
	p.next()
	p.parseDefName(def)

	if p.got(TOK_EXTENDS) {
		p.next()
		def.Super = p.parseTypeName()
	}

	if p.got(TOK_IMPLEMENTS) {
		p.next()
		def.Interfaces = p.parseTypeNameList()
	}

	p.parseMembers(def)
}

// interface_def = 'interface' IDENT ['extends' type_name {',' type_name}]
//
//	'{' {member} '}'
func (p *Parser) parseInterface(def *Definition) {
	p.next()
	p.parseDefName(def)

	if p.got(TOK_EXTENDS) {
		p.next()
		def.Interfaces = p.parseTypeNameList()
	}

	p.parseMembers(def)
}

// namespace_def = 'namespace' IDENT ['=' STRINGLIT] [';']
func (p *Parser) parseNamespace(def *Definition) {
	p.next()
	p.parseDefName(def)

	if p.got(TOK_ASSIGN) {
		p.next()
		p.assert(TOK_STRINGLIT)
		def.URI = p.tok.Value
		p.next()
	}

	p.optional(TOK_SEMI)
}

func (p *Parser) parseDefName(def *Definition) {
	p.assert(TOK_IDENT)
	def.Name = p.tok.Value
	def.Position = p.tok.Position
	p.next()
}

// -----------------------------------------------------------------------------

// members = '{' {{metadata} {modifier} (var_def | func_def) | ';'} '}'
func (p *Parser) parseMembers(def *Definition) {
	p.want(TOK_LBRACE)

	for !p.got(TOK_RBRACE) {
		if p.got(TOK_SEMI) {
			p.next()
			continue
		}

		meta := p.parseMetadataList()
		mods := p.parseModifiers()

		// namespace attributes such as `mx_internal function f()`
		for p.got(TOK_IDENT) && p.peekKindIs(TOK_VAR, TOK_CONST, TOK_FUNCTION, TOK_STATIC, TOK_OVERRIDE, TOK_FINAL) {
			p.next()
			mods |= p.parseModifiers()
		}

		var md *MemberDef
		switch p.tok.Kind {
		case TOK_VAR, TOK_CONST:
			md = p.parseVarDef()
		case TOK_FUNCTION:
			md = p.parseFuncDef(def.Kind == DefInterface)
		default:
			p.reject()
		}

		md.Metadata = meta
		md.Modifiers = mods
		if access := mods & accessModifiers; access&(access-1) != 0 {
			p.errorAt(md.Position, "conflicting access modifiers on `%s`", md.Name)
		}

		if def.Kind == DefInterface {
			if md.Kind == depm.MemberField {
				p.errorAt(md.Position, "interfaces cannot declare variables")
			}

			if mods&accessModifiers != 0 {
				p.errorAt(md.Position, "interface members cannot have access modifiers")
			}
		} else if md.Body == nil && !mods.Has(ModNative) && md.Kind != depm.MemberField {
			p.errorAt(md.Position, "function `%s` has no body", md.Name)
		}

		def.Members = append(def.Members, md)
	}

	p.next()
}

// var_def = ('var' | 'const') IDENT [':' type_name] ['=' initializer ';'] [';']
func (p *Parser) parseVarDef() *MemberDef {
	md := &MemberDef{Kind: depm.MemberField, Const: p.got(TOK_CONST)}
	p.next()

	p.assert(TOK_IDENT)
	md.Name = p.tok.Value
	md.Position = p.tok.Position
	p.next()

	if p.got(TOK_COLON) {
		p.next()
		md.Type = p.parseTypeName()
	}

	if p.got(TOK_ASSIGN) {
		p.next()
		md.Init = p.captureUntil(TOK_SEMI)
		p.next()
	} else {
		p.optional(TOK_SEMI)
	}

	return md
}

// func_def = 'function' [('get' | 'set')] IDENT '(' [params] ')'
//
//	[':' type_name] ('{' body '}' | [';'])
func (p *Parser) parseFuncDef(inInterface bool) *MemberDef {
	md := &MemberDef{Kind: depm.MemberMethod}
	p.next()

	if p.got(TOK_IDENT) && (p.tok.Value == "get" || p.tok.Value == "set") && p.peekKindIs(TOK_IDENT) {
		if p.tok.Value == "get" {
			md.Kind = depm.MemberGetter
		} else {
			md.Kind = depm.MemberSetter
		}

		p.next()
	}

	p.assert(TOK_IDENT)
	md.Name = p.tok.Value
	md.Position = p.tok.Position
	p.next()

	p.want(TOK_LPAREN)
	if !p.got(TOK_RPAREN) {
		md.Params = p.parseParams()
	}
	p.want(TOK_RPAREN)

	if p.got(TOK_COLON) {
		p.next()
		md.Type = p.parseTypeName()
	}

	switch md.Kind {
	case depm.MemberGetter:
		if len(md.Params) != 0 {
			p.errorAt(md.Position, "getter `%s` cannot take parameters", md.Name)
		}
	case depm.MemberSetter:
		if len(md.Params) != 1 {
			p.errorAt(md.Position, "setter `%s` must take exactly one parameter", md.Name)
		}
	}

	if p.got(TOK_LBRACE) {
		if inInterface {
			p.rejectWithMsg("interface methods cannot have a body")
		}

		md.Body = p.captureBlock()
	} else {
		p.optional(TOK_SEMI)
	}

	return md
}

// params = param {',' param}
// param = '...' IDENT [':' type_name] | IDENT [':' type_name] ['=' initializer]
func (p *Parser) parseParams() []*Param {
	var params []*Param

	for {
		param := &Param{}
		if p.got(TOK_ELLIPSIS) {
			param.Rest = true
			p.next()
		}

		p.assert(TOK_IDENT)
		param.Name = p.tok.Value
		p.next()

		if p.got(TOK_COLON) {
			p.next()
			param.Type = p.parseTypeName()
		}

		if p.got(TOK_ASSIGN) && !param.Rest {
			p.next()
			param.Default = p.captureUntil(TOK_COMMA, TOK_RPAREN)
		}

		params = append(params, param)

		if param.Rest || !p.got(TOK_COMMA) {
			break
		}

		p.next()
	}

	return params
}

// -----------------------------------------------------------------------------

// metadata = '[' IDENT ['(' [meta_arg {',' meta_arg}] ')'] ']'
// meta_arg = STRINGLIT | IDENT ['=' (STRINGLIT | IDENT | NUMLIT)]
func (p *Parser) parseMetadataList() []*Metadata {
	var mds []*Metadata

	for p.got(TOK_LBRACKET) {
		startTok := p.tok
		p.next()

		p.assert(TOK_IDENT)
		md := &Metadata{Name: p.tok.Value}
		p.next()

		if p.got(TOK_LPAREN) {
			p.next()

			for !p.got(TOK_RPAREN) {
				var arg MetadataArg
				switch p.tok.Kind {
				case TOK_STRINGLIT:
					arg.Value = p.tok.Value
					p.next()
				case TOK_IDENT:
					arg.Key = p.tok.Value
					p.next()

					if p.got(TOK_ASSIGN) {
						p.next()
						if !p.gotOneOf(TOK_STRINGLIT, TOK_IDENT, TOK_NUMLIT) {
							p.reject()
						}

						arg.Value = p.tok.Value
						p.next()
					} else {
						arg.Key, arg.Value = "", arg.Key
					}
				default:
					p.reject()
				}

				md.Args = append(md.Args, arg)

				if !p.got(TOK_COMMA) {
					break
				}

				p.next()
			}

			p.want(TOK_RPAREN)
		}

		md.Position = report.TextPositionFromRange(startTok.Position, p.tok.Position)
		p.want(TOK_RBRACKET)
		mds = append(mds, md)
	}

	return mds
}

// modifiers = {modifier}
func (p *Parser) parseModifiers() Modifier {
	var mods Modifier
	for {
		mod, ok := modifierTokens[p.tok.Kind]
		if !ok {
			return mods
		}

		if mods.Has(mod) {
			p.rejectWithMsg("duplicate modifier `%s`", p.tok.Value)
		}

		mods |= mod
		p.next()
	}
}

// type_name = '*' | dotted_name
func (p *Parser) parseTypeName() *TypeRef {
	if p.got(TOK_STAR) {
		ref := &TypeRef{Name: "*", Position: p.tok.Position}
		p.next()
		return ref
	}

	return p.parseDottedName(false)
}

// type_name_list = type_name {',' type_name}
func (p *Parser) parseTypeNameList() []*TypeRef {
	refs := []*TypeRef{p.parseTypeName()}
	for p.got(TOK_COMMA) {
		p.next()
		refs = append(refs, p.parseTypeName())
	}

	return refs
}

// dotted_name = IDENT {'.' IDENT}
//
// If allowStar is set, the last component may be `*`.
func (p *Parser) parseDottedName(allowStar bool) *TypeRef {
	p.assert(TOK_IDENT)
	startTok := p.tok
	parts := []string{p.tok.Value}
	endTok := p.tok
	p.next()

	for p.got(TOK_DOT) {
		p.next()

		if allowStar && p.got(TOK_STAR) {
			parts = append(parts, "*")
			endTok = p.tok
			p.next()
			break
		}

		p.assert(TOK_IDENT)
		parts = append(parts, p.tok.Value)
		endTok = p.tok
		p.next()
	}

	return &TypeRef{
		Name:     strings.Join(parts, "."),
		Position: report.TextPositionFromRange(startTok.Position, endTok.Position),
	}
}

// -----------------------------------------------------------------------------

// captureBlock captures the text between a brace and its matching brace.  The
// parser must be on the opening brace.
func (p *Parser) captureBlock() *Code {
	open := p.tok
	depth := 0

	for {
		switch p.tok.Kind {
		case TOK_LBRACE:
			depth++
		case TOK_RBRACE:
			depth--
		case TOK_EOF:
			p.errorOn(open, "unclosed function body")
		}

		if depth == 0 {
			break
		}

		p.next()
	}

	code := &Code{
		Text: p.src[open.End:p.tok.Offset],
		Line: open.Position.EndLn,
		Col:  open.Position.EndCol,
	}

	p.next()
	return code
}

// captureUntil captures the text up to the first token of one of the given
// kinds outside of any brackets.  The parser is left on that token.
func (p *Parser) captureUntil(kinds ...int) *Code {
	first := p.tok
	depth := 0

	for depth > 0 || !p.gotOneOf(kinds...) {
		switch p.tok.Kind {
		case TOK_LPAREN, TOK_LBRACE, TOK_LBRACKET:
			depth++
		case TOK_RPAREN, TOK_RBRACE, TOK_RBRACKET:
			depth--
			if depth < 0 {
				p.reject()
			}
		case TOK_EOF:
			p.reject()
		}

		p.next()
	}

	if p.tok == first {
		p.rejectWithMsg("expected an expression")
	}

	return &Code{
		Text: strings.TrimSpace(p.src[first.Offset:p.tok.Offset]),
		Line: first.Position.StartLn,
		Col:  first.Position.StartCol,
	}
}

// -----------------------------------------------------------------------------

// next moves the parser forward one token.
func (p *Parser) next() {
	if p.ahead != nil {
		p.tok, p.ahead = p.ahead, nil
		return
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		panic(err)
	}

	p.tok = tok
}

// peekKindIs returns whether the token after the current one is of one of the
// given kinds.
func (p *Parser) peekKindIs(kinds ...int) bool {
	if p.ahead == nil {
		tok, err := p.lexer.NextToken()
		if err != nil {
			panic(err)
		}

		p.ahead = tok
	}

	for _, kind := range kinds {
		if p.ahead.Kind == kind {
			return true
		}
	}

	return false
}

// got returns true if the parser is on a token of a given kind.
func (p *Parser) got(kind int) bool {
	return p.tok.Kind == kind
}

// gotOneOf returns if the parser's current token kind is one of given kinds.
func (p *Parser) gotOneOf(kinds ...int) bool {
	for _, kind := range kinds {
		if p.tok.Kind == kind {
			return true
		}
	}

	return false
}

// assert rejects the current token if it is not of the given kind.
func (p *Parser) assert(kind int) {
	if !p.got(kind) {
		p.reject()
	}
}

// want asserts the current token is of the given kind and moves past it.
func (p *Parser) want(kind int) {
	p.assert(kind)
	p.next()
}

// optional moves past the current token if it is of the given kind.
func (p *Parser) optional(kind int) {
	if p.got(kind) {
		p.next()
	}
}

// -----------------------------------------------------------------------------

// reject raises an unexpected token error on the current token.
func (p *Parser) reject() {
	if p.got(TOK_EOF) {
		p.rejectWithMsg("unexpected end of file")
	}

	p.rejectWithMsg("unexpected token: `%s`", p.tok.Value)
}

// rejectWithMsg raises an error on the current token.
func (p *Parser) rejectWithMsg(msg string, a ...interface{}) {
	p.errorOn(p.tok, msg, a...)
}

// errorOn raises an error on a given token.
func (p *Parser) errorOn(tok *Token, msg string, a ...interface{}) {
	p.errorAt(tok.Position, msg, a...)
}

func (p *Parser) errorAt(pos *report.TextPosition, msg string, a ...interface{}) {
	panic(report.Raise(report.MKSyntax, pos, "%s", fmt.Sprintf(msg, a...)))
}
