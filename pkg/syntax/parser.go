package syntax

import (
	"fmt"
	"strings"
)

// characters that terminate an unquoted literal.
const forbidUnquoted = "()[]*@$+#\"'"

var topKeywords = []string{"task", "global", "plan", "module", "import"}

// Parse parses a complete config file. On failure the returned error is an
// ErrorList containing every error the parser could recover from; the
// successfully parsed items are still returned.
func Parse(file, src string) ([]Item, error) {
	p := &parser{scanner: newScanner(src), file: file}
	items := p.parseFile()
	return items, p.errs.Err()
}

type parser struct {
	*scanner
	file string
	errs ErrorList
}

func (p *parser) errorf(pos Pos, format string, args ...any) error {
	return &Error{File: p.file, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) report(err error) {
	if e, ok := err.(*Error); ok {
		p.errs = append(p.errs, e)
		return
	}
	p.errs = append(p.errs, &Error{File: p.file, Pos: p.pos, Msg: err.Error()})
}

// skipInline consumes spaces and tabs, but not newlines.
func (p *parser) skipInline() {
	for isInlineSpace(p.peek()) {
		p.next()
	}
}

// skipSpace consumes whitespace (including newlines) and comments.
func (p *parser) skipSpace() {
	for {
		r := p.peek()
		switch {
		case isSpace(r):
			p.next()
		case r == '#':
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		default:
			return
		}
	}
}

func (p *parser) ident() (string, error) {
	if !isIdentStart(p.peek()) {
		return "", p.errorf(p.pos, "expected identifier, found %q", string(p.peek()))
	}
	start := p.off
	for isIdentRune(p.peek()) {
		p.next()
	}
	return p.src[start:p.off], nil
}

// branchIdent parses a branch value name, which unlike other identifiers
// may begin with a digit.
func (p *parser) branchIdent() (string, error) {
	if !isBranchIdentRune(p.peek()) {
		return "", p.errorf(p.pos, "expected branch value, found %q", string(p.peek()))
	}
	start := p.off
	for isBranchIdentRune(p.peek()) {
		p.next()
	}
	return p.src[start:p.off], nil
}

func (p *parser) expect(r rune, what string) error {
	if p.peek() != r {
		return p.errorf(p.pos, "expected %q %s, found %q", string(r), what, string(p.peek()))
	}
	p.next()
	return nil
}

// expectEOL requires nothing but trailing space or a comment before the end
// of the line.
func (p *parser) expectEOL() error {
	p.skipInline()
	if p.peek() == '#' {
		for !p.eof() && p.peek() != '\n' {
			p.next()
		}
	}
	if p.eof() || p.peek() == '\n' {
		return nil
	}
	return p.errorf(p.pos, "unexpected %q at end of line", string(p.peek()))
}

func (p *parser) parseFile() []Item {
	var items []Item
	for {
		p.skipSpace()
		if p.eof() {
			return items
		}
		pos := p.pos
		word, err := p.ident()
		if err != nil {
			p.report(p.errorf(pos, "expected a top-level declaration (task, global, plan, module, import)"))
			p.recover()
			continue
		}
		var item Item
		switch word {
		case "task":
			item, err = p.parseTask(pos)
		case "global":
			item, err = p.parseGlobal(pos)
		case "plan":
			item, err = p.parsePlan(pos)
		case "module":
			item, err = p.parseModule(pos)
		case "import":
			item, err = p.parseImport(pos)
		default:
			err = p.errorf(pos, "unknown declaration %q", word)
		}
		if err != nil {
			p.report(err)
			p.recover()
			continue
		}
		items = append(items, item)
	}
}

// recover skips forward to the next line that begins (at brace depth zero)
// with a top-level keyword, so one syntax error doesn't hide the rest of
// the file.
func (p *parser) recover() {
	depth := 0
	for !p.eof() {
		for !p.eof() {
			r := p.next()
			if r == '\n' {
				break
			}
			switch r {
			case '{':
				depth++
			case '}':
				if depth > 0 {
					depth--
				}
			case '\'':
				for !p.eof() && p.peek() != '\'' {
					p.next()
				}
				p.next()
			case '"':
				for !p.eof() && p.peek() != '"' {
					if p.peek() == '\\' {
						p.next()
					}
					p.next()
				}
				p.next()
			case '#':
				for !p.eof() && p.peek() != '\n' {
					p.next()
				}
			}
		}
		if depth > 0 {
			continue
		}
		p.skipInline()
		for _, kw := range topKeywords {
			if p.hasPrefix(kw) && !isIdentRune(p.peekAt(len(kw))) {
				return
			}
		}
	}
}

func (p *parser) parseModule(pos Pos) (Item, error) {
	p.skipInline()
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.skipInline()
	if err := p.expect('=', "after module name"); err != nil {
		return nil, err
	}
	p.skipInline()
	path, err := p.parseRhs()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOL(); err != nil {
		return nil, err
	}
	return ModuleDecl{Pos: pos, Name: name, Path: path}, nil
}

func (p *parser) parseImport(pos Pos) (Item, error) {
	p.skipInline()
	path, err := p.unquotedLiteral()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOL(); err != nil {
		return nil, err
	}
	return ImportDecl{Pos: pos, Path: path}, nil
}

func (p *parser) parseGlobal(pos Pos) (Item, error) {
	p.skipSpace()
	if err := p.expect('{', "to open global block"); err != nil {
		return nil, err
	}
	var bindings []Assignment
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.next()
			return GlobalBlock{Pos: pos, Bindings: bindings}, nil
		}
		if p.eof() {
			return nil, p.errorf(pos, "unterminated global block")
		}
		a, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, a)
		p.skipInline()
		if p.peek() == '#' {
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
		}
		if r := p.peek(); r != '\n' && r != '}' && !p.eof() {
			return nil, p.errorf(p.pos, "unexpected %q after global binding", string(r))
		}
	}
}

// parseAssignment parses "name" or "name = RHS".
func (p *parser) parseAssignment() (Assignment, error) {
	pos := p.pos
	name, err := p.ident()
	if err != nil {
		return Assignment{}, err
	}
	p.skipInline()
	if p.peek() != '=' {
		return Assignment{Pos: pos, Name: name, Rhs: Unbound{}}, nil
	}
	p.next()
	p.skipInline()
	rhs, err := p.parseRhs()
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{Pos: pos, Name: name, Rhs: rhs}, nil
}

func (p *parser) parseRhs() (Rhs, error) {
	switch p.peek() {
	case '(':
		return p.parseBranched()
	case '@':
		p.next()
		if !isIdentStart(p.peek()) {
			return ShorthandVar{}, nil
		}
		task, err := p.ident()
		if err != nil {
			return nil, err
		}
		graft, err := p.maybeGraft()
		if err != nil {
			return nil, err
		}
		return TaskOutputRef{Task: task, Graft: graft}, nil
	case '$':
		p.next()
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if p.peek() == '@' {
			p.next()
			task, err := p.ident()
			if err != nil {
				return nil, err
			}
			graft, err := p.maybeGraft()
			if err != nil {
				return nil, err
			}
			return TaskOutputRef{Output: name, Task: task, Graft: graft}, nil
		}
		graft, err := p.maybeGraft()
		if err != nil {
			return nil, err
		}
		return VarRef{Name: name, Graft: graft}, nil
	case '"':
		return p.parseQuoted()
	default:
		lit, err := p.unquotedLiteral()
		if err != nil {
			return nil, err
		}
		return Literal{Val: lit}, nil
	}
}

func (p *parser) unquotedLiteral() (string, error) {
	start := p.off
	for {
		r := p.peek()
		if r == eof || isSpace(r) || strings.ContainsRune(forbidUnquoted, r) {
			break
		}
		p.next()
	}
	if p.off == start {
		return "", p.errorf(p.pos, "expected a value, found %q", string(p.peek()))
	}
	return p.src[start:p.off], nil
}

// parseQuoted parses a double-quoted string, collecting "$name"
// interpolation references in order of appearance. The text is kept raw.
func (p *parser) parseQuoted() (Rhs, error) {
	pos := p.pos
	p.next() // opening quote
	start := p.off
	var vars []string
	for {
		switch r := p.peek(); {
		case r == eof || r == '\n':
			return nil, p.errorf(pos, "unterminated string")
		case r == '"':
			text := p.src[start:p.off]
			p.next()
			if len(vars) == 0 {
				return Literal{Val: text}, nil
			}
			return Interp{Text: text, Vars: vars}, nil
		case r == '\\':
			p.next()
			p.next()
		case r == '$' && isIdentStart(p.peekAt(1)):
			p.next()
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			vars = append(vars, name)
		default:
			p.next()
		}
	}
}

func (p *parser) maybeGraft() ([]BranchPair, error) {
	if p.peek() != '[' {
		return nil, nil
	}
	p.next()
	var pairs []BranchPair
	for {
		p.skipSpace()
		bp, err := p.ident()
		if err != nil {
			return nil, err
		}
		p.skipInline()
		if err := p.expect(':', "in branch graft"); err != nil {
			return nil, err
		}
		p.skipInline()
		val, err := p.branchIdent()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, BranchPair{Branchpoint: bp, Value: val})
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.next()
		case ']':
			p.next()
			return pairs, nil
		default:
			return nil, p.errorf(p.pos, "expected ',' or ']' in branch graft, found %q", string(p.peek()))
		}
	}
}

func (p *parser) parseBranched() (Rhs, error) {
	pos := p.pos
	p.next() // '('
	p.skipSpace()
	bp, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.skipInline()
	if err := p.expect(':', "after branchpoint name"); err != nil {
		return nil, err
	}
	var cases []BranchAssign
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.next()
			if len(cases) == 0 {
				return nil, p.errorf(pos, "branched expression on %s has no values", bp)
			}
			return Branched{Branchpoint: bp, Cases: cases}, nil
		}
		if p.eof() {
			return nil, p.errorf(pos, "unterminated branched expression")
		}
		name, err := p.branchIdent()
		if err != nil {
			return nil, err
		}
		var rhs Rhs = Unbound{}
		p.skipInline()
		if p.peek() == '=' {
			p.next()
			p.skipInline()
			rhs, err = p.parseRhs()
			if err != nil {
				return nil, err
			}
		}
		cases = append(cases, BranchAssign{Name: name, Rhs: rhs})
	}
}

func (p *parser) parsePlan(pos Pos) (Item, error) {
	p.skipInline()
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if err := p.expect('{', "to open plan block"); err != nil {
		return nil, err
	}
	var products []CrossProduct
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.next()
			return PlanBlock{Pos: pos, Name: name, CrossProducts: products}, nil
		}
		if p.eof() {
			return nil, p.errorf(pos, "unterminated plan block")
		}
		cpPos := p.pos
		word, err := p.ident()
		if err != nil || word != "reach" {
			return nil, p.errorf(cpPos, "expected 'reach' in plan %s", name)
		}
		cp, err := p.parseCrossProduct(cpPos)
		if err != nil {
			return nil, err
		}
		products = append(products, cp)
	}
}

func (p *parser) parseCrossProduct(pos Pos) (CrossProduct, error) {
	cp := CrossProduct{Pos: pos}
	for {
		p.skipSpace()
		goal, err := p.ident()
		if err != nil {
			return cp, err
		}
		cp.Goals = append(cp.Goals, goal)
		p.skipInline()
		if p.peek() != ',' {
			break
		}
		p.next()
	}
	p.skipSpace()
	if !(p.hasPrefix("via") && !isIdentRune(p.peekAt(3))) {
		return cp, nil
	}
	p.next()
	p.next()
	p.next() // "via"
	for {
		sel, err := p.parseBranchSelection()
		if err != nil {
			return cp, err
		}
		cp.Branches = append(cp.Branches, sel)
		p.skipSpace()
		if p.peek() != '*' {
			return cp, nil
		}
		p.next()
		p.skipSpace()
	}
}

func (p *parser) parseBranchSelection() (BranchSelection, error) {
	p.skipSpace()
	if err := p.expect('(', "to open branch selection"); err != nil {
		return BranchSelection{}, err
	}
	p.skipSpace()
	bp, err := p.ident()
	if err != nil {
		return BranchSelection{}, err
	}
	p.skipSpace()
	if err := p.expect(':', "after branchpoint name"); err != nil {
		return BranchSelection{}, err
	}
	sel := BranchSelection{Branchpoint: bp}
	p.skipSpace()
	if p.peek() == '*' {
		p.next()
		sel.Glob = true
		p.skipSpace()
		if err := p.expect(')', "to close branch selection"); err != nil {
			return BranchSelection{}, err
		}
		return sel, nil
	}
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.next()
			if len(sel.Values) == 0 {
				return BranchSelection{}, p.errorf(p.pos, "branch selection on %s has no values", bp)
			}
			return sel, nil
		}
		if p.eof() {
			return BranchSelection{}, p.errorf(p.pos, "unterminated branch selection")
		}
		val, err := p.branchIdent()
		if err != nil {
			return BranchSelection{}, err
		}
		sel.Values = append(sel.Values, val)
	}
}

func (p *parser) parseTask(pos Pos) (Item, error) {
	p.skipInline()
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	task := TaskBlock{Pos: pos, Name: name}
	for {
		p.skipSpace()
		switch p.peek() {
		case '{':
			p.next()
			code, err := p.scanBody(pos, name)
			if err != nil {
				return nil, err
			}
			task.Code = code
			return task, nil
		case '<':
			p.next()
			if err := p.parseSpecChunk(SpecInput, &task.Specs); err != nil {
				return nil, err
			}
		case '>':
			p.next()
			if err := p.parseSpecChunk(SpecOutput, &task.Specs); err != nil {
				return nil, err
			}
		case ':':
			if p.peekAt(1) != ':' {
				return nil, p.errorf(p.pos, "expected '::' to introduce params in task %s", name)
			}
			p.next()
			p.next()
			if err := p.parseSpecChunk(SpecParam, &task.Specs); err != nil {
				return nil, err
			}
		case '@':
			specPos := p.pos
			p.next()
			mod, err := p.ident()
			if err != nil {
				return nil, err
			}
			task.Specs = append(task.Specs, Spec{Pos: specPos, Kind: SpecModule, Name: mod})
		case eof:
			return nil, p.errorf(pos, "unexpected end of file in task %s", name)
		default:
			return nil, p.errorf(p.pos, "expected header item or '{' in task %s, found %q", name, string(p.peek()))
		}
	}
}

// parseSpecChunk parses the assignments following a single header sigil.
// A chunk ends at the end of the line or at the next sigil.
func (p *parser) parseSpecChunk(kind SpecKind, specs *[]Spec) error {
	for {
		p.skipInline()
		dot := false
		if kind == SpecParam && p.peek() == '.' {
			dot = true
			p.next()
		}
		if !isIdentStart(p.peek()) {
			if dot {
				return p.errorf(p.pos, "expected identifier after '.'")
			}
			return nil
		}
		a, err := p.parseAssignment()
		if err != nil {
			return err
		}
		*specs = append(*specs, Spec{Pos: a.Pos, Kind: kind, Name: a.Name, Rhs: a.Rhs, Dot: dot})
	}
}
