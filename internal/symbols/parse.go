//go:build cgo

package symbols

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"pluginrefs/internal/complexity"
)

var declNameParents = map[string]bool{
	"function_declaration":           true,
	"generator_function_declaration": true,
	"function_signature":             true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"class":                          true,
	"interface_declaration":          true,
	"type_alias_declaration":         true,
	"enum_declaration":               true,
	"variable_declarator":            true,
	"internal_module":                true,
	"module":                         true,
}

var declKinds = map[string]Kind{
	"function_declaration":           KindFunction,
	"generator_function_declaration": KindFunction,
	"function_signature":             KindFunction,
	"class_declaration":              KindClass,
	"abstract_class_declaration":     KindClass,
	"lexical_declaration":            KindVariable,
	"variable_declaration":           KindVariable,
	"interface_declaration":          KindInterface,
	"type_alias_declaration":         KindType,
	"enum_declaration":               KindEnum,
	"internal_module":                KindNamespace,
	"module":                         KindNamespace,
}

// parser extracts imports, exports, declarations and occurrences from
// one file.
type parser struct {
	src []byte
	out *parsedFile
}

func parseSource(ctx context.Context, tsp *complexity.Parser, path string, src []byte, lang complexity.Language) *parsedFile {
	pf := &parsedFile{path: path, language: lang}
	tree, err := tsp.Parse(ctx, src, lang)
	if err != nil {
		pf.err = err
		return pf
	}
	defer tree.Close()

	root := tree.RootNode()
	pf.syntaxErrors = root.HasError()
	p := &parser{src: src, out: pf}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		p.topLevel(root.NamedChild(i))
	}
	p.occurrences(root)
	return pf
}

func (p *parser) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(p.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func unquote(s string) string {
	return strings.Trim(s, "'\"`")
}

func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

func (p *parser) topLevel(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		p.importStatement(n)
	case "export_statement":
		p.exportStatement(n)
	case "ambient_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			p.topLevel(n.NamedChild(i))
		}
	case "expression_statement":
		if c := n.NamedChild(0); c != nil && (c.Type() == "internal_module" || c.Type() == "module") {
			p.declare(c)
		}
	default:
		p.declare(n)
	}
}

func (p *parser) importStatement(n *sitter.Node) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}
	spec := unquote(p.text(source))
	typeOnly := hasToken(n, "type")
	ln := line(n)

	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "import_clause" {
			clause = c
		}
	}
	if clause == nil {
		p.out.imports = append(p.out.imports, Import{Specifier: spec, Line: ln, TypeOnly: typeOnly})
		return
	}

	add := func(imported, local string) {
		p.out.imports = append(p.out.imports, Import{
			Specifier: spec,
			Imported:  imported,
			Local:     local,
			Line:      ln,
			TypeOnly:  typeOnly,
		})
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			add("default", p.text(c))
		case "namespace_import":
			if id := c.NamedChild(0); id != nil {
				add("*", p.text(id))
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				s := c.NamedChild(j)
				if s.Type() != "import_specifier" {
					continue
				}
				name := unquote(p.text(s.ChildByFieldName("name")))
				local := name
				if alias := s.ChildByFieldName("alias"); alias != nil {
					local = p.text(alias)
				}
				add(name, local)
			}
		}
	}
}

func (p *parser) exportStatement(n *sitter.Node) {
	ln := line(n)
	source := n.ChildByFieldName("source")
	spec := ""
	if source != nil {
		spec = unquote(p.text(source))
	}
	add := func(name, local string) {
		p.out.exports = append(p.out.exports, Export{Name: name, Local: local, Specifier: spec, Target: NoFile, Line: ln})
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		decls := p.declare(decl)
		if hasToken(n, "default") {
			if len(decls) == 0 || decls[0].Name == "" {
				p.out.decls = append(p.out.decls, &Declaration{Name: "default", Kind: declKinds[decl.Type()], Line: ln, Class: p.classInfo(decl)})
				add("default", "default")
			} else {
				add("default", decls[0].Name)
			}
			return
		}
		for _, d := range decls {
			add(d.Name, d.Name)
		}
		return
	}

	if value := n.ChildByFieldName("value"); value != nil {
		if value.Type() == "identifier" {
			add("default", p.text(value))
			return
		}
		p.out.decls = append(p.out.decls, &Declaration{Name: "default", Kind: valueKind(value), Line: ln, Class: p.classInfo(value)})
		add("default", "default")
		return
	}

	found := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "export_clause":
			found = true
			for j := 0; j < int(c.NamedChildCount()); j++ {
				s := c.NamedChild(j)
				if s.Type() != "export_specifier" {
					continue
				}
				local := unquote(p.text(s.ChildByFieldName("name")))
				name := local
				if alias := s.ChildByFieldName("alias"); alias != nil {
					name = unquote(p.text(alias))
				}
				add(name, local)
			}
		case "namespace_export":
			found = true
			if id := c.NamedChild(0); id != nil {
				add(unquote(p.text(id)), "*")
			}
		}
	}
	if !found && spec != "" {
		add("*", "*")
	}
}

func valueKind(n *sitter.Node) Kind {
	switch n.Type() {
	case "class":
		return KindClass
	case "function", "function_expression", "arrow_function", "generator_function":
		return KindFunction
	}
	return KindVariable
}

// declare records a top-level declaration and returns what it declared.
func (p *parser) declare(n *sitter.Node) []*Declaration {
	kind, ok := declKinds[n.Type()]
	if !ok {
		return nil
	}
	var decls []*Declaration
	switch n.Type() {
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d := n.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			name := d.ChildByFieldName("name")
			if name == nil || name.Type() != "identifier" {
				continue
			}
			k := kind
			if v := d.ChildByFieldName("value"); v != nil && valueKind(v) == KindFunction {
				k = KindFunction
			}
			decls = append(decls, &Declaration{Name: p.text(name), Kind: k, Line: line(d)})
		}
	default:
		d := &Declaration{Name: p.text(n.ChildByFieldName("name")), Kind: kind, Line: line(n)}
		if kind == KindClass {
			d.Class = p.classInfo(n)
		}
		if d.Name == "" {
			return nil
		}
		decls = append(decls, d)
	}
	p.out.decls = append(p.out.decls, decls...)
	return decls
}

// classInfo collects the public members of a class node.
func (p *parser) classInfo(n *sitter.Node) *ClassInfo {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
	default:
		return nil
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return &ClassInfo{}
	}
	info := &ClassInfo{}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		var method bool
		switch m.Type() {
		case "method_definition", "method_signature", "abstract_method_signature":
			method = true
		case "public_field_definition":
		default:
			continue
		}
		if !p.isPublic(m) {
			continue
		}
		nameNode := m.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		switch nameNode.Type() {
		case "property_identifier", "string", "number":
		default:
			continue
		}
		name := unquote(p.text(nameNode))
		if name == "constructor" {
			continue
		}
		member := Member{Name: name, Static: hasToken(m, "static"), Method: method, Line: line(m)}
		if method {
			member.ReturnKeys = p.returnKeys(m.ChildByFieldName("body"))
		} else if v := m.ChildByFieldName("value"); v != nil && valueKind(v) == KindFunction {
			member.Method = true
			member.ReturnKeys = p.functionReturnKeys(v)
		}
		info.Members = append(info.Members, member)
	}
	return info
}

func (p *parser) isPublic(m *sitter.Node) bool {
	for i := 0; i < int(m.NamedChildCount()); i++ {
		c := m.NamedChild(i)
		if c.Type() == "accessibility_modifier" {
			mod := p.text(c)
			return mod != "private" && mod != "protected"
		}
	}
	return true
}

func (p *parser) functionReturnKeys(fn *sitter.Node) []string {
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	if body.Type() != "statement_block" {
		return p.objectKeys(body)
	}
	return p.returnKeys(body)
}

// returnKeys gathers the keys of object literals returned from a
// function body, ignoring nested functions.
func (p *parser) returnKeys(body *sitter.Node) []string {
	if body == nil {
		return nil
	}
	var keys []string
	seen := map[string]bool{}
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if complexity.IsFunctionNode(c.Type()) || c.Type() == "class" {
				continue
			}
			if c.Type() == "return_statement" {
				if v := c.NamedChild(0); v != nil {
					for _, k := range p.objectKeys(v) {
						if !seen[k] {
							seen[k] = true
							keys = append(keys, k)
						}
					}
				}
				continue
			}
			visit(c)
		}
	}
	visit(body)
	return keys
}

func (p *parser) objectKeys(n *sitter.Node) []string {
	for {
		switch n.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			if n.NamedChild(0) == nil {
				return nil
			}
			n = n.NamedChild(0)
			continue
		}
		break
	}
	if n.Type() != "object" {
		return nil
	}
	var keys []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "pair":
			k := c.ChildByFieldName("key")
			if k != nil && k.Type() != "computed_property_name" {
				keys = append(keys, unquote(p.text(k)))
			}
		case "shorthand_property_identifier":
			keys = append(keys, p.text(c))
		case "method_definition":
			if k := c.ChildByFieldName("name"); k != nil {
				keys = append(keys, unquote(p.text(k)))
			}
		}
	}
	return keys
}

// occurrences records identifier positions outside import statements
// and export clauses.
func (p *parser) occurrences(root *sitter.Node) {
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "import_statement", "export_clause", "namespace_export", "comment":
				continue
			case "export_statement":
				if c.ChildByFieldName("source") != nil {
					continue
				}
			}
			p.record(c, n)
			visit(c)
		}
	}
	visit(root)
}

func (p *parser) record(c, parent *sitter.Node) {
	add := func(name, object, receiver string, flags OccFlag) {
		if name == "" {
			return
		}
		p.out.occurrences = append(p.out.occurrences, rawOccurrence{
			name:     name,
			object:   object,
			receiver: receiver,
			line:     line(c),
			flags:    flags,
		})
	}
	pt := parent.Type()

	switch c.Type() {
	case "identifier":
		if pt == "nested_identifier" && parent.NamedChildCount() > 1 && sameNode(parent.NamedChild(int(parent.NamedChildCount())-1), c) {
			obj := parent.NamedChild(0)
			add(p.text(c), p.objectName(obj), p.receiverPath(obj), OccProperty)
			return
		}
		add(p.text(c), "", "", p.declFlag(c, parent))

	case "type_identifier":
		if pt == "nested_type_identifier" && sameNode(parent.ChildByFieldName("name"), c) {
			mod := parent.ChildByFieldName("module")
			add(p.text(c), p.objectName(mod), p.receiverPath(mod), OccProperty)
			return
		}
		add(p.text(c), "", "", p.declFlag(c, parent))

	case "property_identifier":
		switch pt {
		case "member_expression", "nested_identifier":
			obj := parent.ChildByFieldName("object")
			if obj == nil {
				obj = parent.NamedChild(0)
			}
			if sameNode(obj, c) {
				return
			}
			add(p.text(c), p.objectName(obj), p.receiverPath(obj), OccProperty)
		case "pair_pattern":
			if sameNode(parent.ChildByFieldName("key"), c) {
				add(p.text(c), "", p.destructured(parent.Parent()), OccProperty)
			}
		}

	case "shorthand_property_identifier":
		add(p.text(c), "", "", 0)

	case "shorthand_property_identifier_pattern":
		add(p.text(c), "", p.destructured(parent), OccProperty)

	case "variable_declarator":
		name := c.ChildByFieldName("name")
		if name == nil || name.Type() != "identifier" {
			return
		}
		if path := p.receiverPath(c.ChildByFieldName("value")); path != "" {
			p.alias(p.text(name), path)
		}
		p.annotate(p.text(name), c.ChildByFieldName("type"))

	case "required_parameter", "optional_parameter":
		name := c.ChildByFieldName("pattern")
		if name == nil || name.Type() != "identifier" {
			return
		}
		p.annotate(p.text(name), c.ChildByFieldName("type"))
		for i := 0; i < int(c.NamedChildCount()); i++ {
			if c.NamedChild(i).Type() == "accessibility_modifier" {
				p.annotate("this."+p.text(name), c.ChildByFieldName("type"))
				break
			}
		}

	case "public_field_definition":
		if name := c.ChildByFieldName("name"); name != nil && name.Type() == "property_identifier" {
			p.annotate("this."+p.text(name), c.ChildByFieldName("type"))
		}
	}
}

func (p *parser) objectName(n *sitter.Node) string {
	if n == nil || n.Type() != "identifier" {
		return ""
	}
	return p.text(n)
}

// receiverPath renders a chain of plain property accesses as a dotted
// path. Anything else, such as a call or an index, yields "".
func (p *parser) receiverPath(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier", "this":
		return p.text(n)
	case "non_null_expression", "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return p.receiverPath(n.NamedChild(0))
		}
	case "member_expression", "nested_identifier":
		obj := n.ChildByFieldName("object")
		if obj == nil {
			obj = n.NamedChild(0)
		}
		prop := n.NamedChild(int(n.NamedChildCount()) - 1)
		if prop == nil || sameNode(prop, obj) {
			return ""
		}
		if base := p.receiverPath(obj); base != "" {
			return base + "." + p.text(prop)
		}
	}
	return ""
}

// destructured returns the receiver path of an object pattern that is the
// name of a variable declarator.
func (p *parser) destructured(pattern *sitter.Node) string {
	if pattern == nil || pattern.Type() != "object_pattern" {
		return ""
	}
	decl := pattern.Parent()
	if decl == nil || decl.Type() != "variable_declarator" || !sameNode(decl.ChildByFieldName("name"), pattern) {
		return ""
	}
	return p.receiverPath(decl.ChildByFieldName("value"))
}

func (p *parser) alias(local, path string) {
	if p.out.aliases == nil {
		p.out.aliases = make(map[string]string)
	}
	p.out.aliases[local] = path
}

// annotate records the type name of a local's annotation.
func (p *parser) annotate(local string, ann *sitter.Node) {
	if ann == nil || ann.NamedChildCount() == 0 {
		return
	}
	t := ann.NamedChild(0)
	switch t.Type() {
	case "generic_type":
		t = t.ChildByFieldName("name")
	case "nested_type_identifier":
		t = t.ChildByFieldName("module")
	}
	if t == nil || (t.Type() != "type_identifier" && t.Type() != "identifier") {
		return
	}
	if p.out.typed == nil {
		p.out.typed = make(map[string]string)
	}
	p.out.typed[local] = p.text(t)
}

func (p *parser) declFlag(c, parent *sitter.Node) OccFlag {
	if declNameParents[parent.Type()] && sameNode(parent.ChildByFieldName("name"), c) {
		return OccDecl
	}
	return 0
}
