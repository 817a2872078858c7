package extractor

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/opensrc/codehealth/internal/model"
)

// jsState mirrors pyState's role for the JavaScript/TypeScript grammars.
// The two grammars share almost every node kind that matters here, so
// one extractor handles both (isTS only affects type-annotation fields).
type jsState struct {
	filePath string
	code     []byte
	opts     Options
	isTS     bool

	entities      []model.Entity
	relationships []model.Relationship

	functionsByQName map[string]*jsFuncInfo
	classesByName    map[string]*jsClassInfo
	attributesSeen   map[string]bool
}

type jsFuncInfo struct {
	name       string
	qualified  string
	classQName string
}

type jsClassInfo struct {
	name        string
	qualified   string
	line        int
	baseName    string
	methodNames map[string]string
}

func extractJavaScript(filePath string, root *sitter.Node, code []byte, opts Options, isTS bool) (*Result, error) {
	lang := "javascript"
	if isTS {
		lang = "typescript"
	}
	st := &jsState{
		filePath:         filePath,
		code:             code,
		opts:             opts,
		isTS:             isTS,
		functionsByQName: map[string]*jsFuncInfo{},
		classesByName:    map[string]*jsClassInfo{},
		attributesSeen:   map[string]bool{},
	}

	var classStack []classFrame
	var exports []string

	var walkEntities func(node *sitter.Node)
	walkEntities = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "class_declaration":
			ci := st.extractClass(node)
			classStack = append(classStack, classFrame{name: ci.name, qualified: ci.qualified, line: ci.line})
			for i := uint(0); i < node.ChildCount(); i++ {
				walkEntities(node.Child(i))
			}
			classStack = classStack[:len(classStack)-1]
			return

		case "function_declaration", "method_definition":
			st.extractFunction(node, classStack)

		case "import_statement":
			st.extractImport(node)

		case "call_expression":
			st.maybeDynamicImport(node)

		case "export_statement":
			if n := namedExportName(node, code); n != "" {
				exports = append(exports, n)
			}
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walkEntities(node.Child(i))
		}
	}
	walkEntities(root)

	classStack = nil
	var walkRels func(node *sitter.Node)
	walkRels = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "class_declaration":
			nameNode := node.ChildByFieldName("name")
			name := nodeText(nameNode, code)
			ci := st.classesByName[name]
			if ci != nil {
				classStack = append(classStack, classFrame{name: ci.name, qualified: ci.qualified, line: ci.line})
				st.extractInherits(ci)
			}
			for i := uint(0); i < node.ChildCount(); i++ {
				walkRels(node.Child(i))
			}
			if ci != nil {
				classStack = classStack[:len(classStack)-1]
			}
			return

		case "function_declaration", "method_definition":
			nameNode := node.ChildByFieldName("name")
			name := nodeText(nameNode, code)
			qname := st.lookupFunctionQName(name, classStack, node)
			body := node.ChildByFieldName("body")
			st.extractCalls(body, qname)
			st.extractThisUses(body, qname, classStack)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walkRels(node.Child(i))
		}
	}
	walkRels(root)

	st.extractOverrides()
	st.emitContains()

	st.entities = append([]model.Entity{{
		Label:         model.LabelFile,
		Name:          lastPathSegment(filePath),
		QualifiedName: model.FileQualifiedName(filePath),
		FilePath:      filePath,
		LineStart:     1,
		LineEnd:       int(root.EndPosition().Row) + 1,
		Properties: map[string]any{
			"language": lang,
			"loc":      strings.Count(string(code), "\n") + 1,
			"hash":     contentHash(code),
			"exports":  exports,
		},
	}}, st.entities...)

	return &Result{FilePath: filePath, Language: lang, Entities: st.entities, Relationships: st.relationships}, nil
}

func (st *jsState) extractClass(node *sitter.Node) *jsClassInfo {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, st.code)
	line := startLine(node)
	qname := model.ClassQualifiedName(st.filePath, name, line)

	baseName := ""
	if heritage := findChildKind(node, "class_heritage"); heritage != nil {
		if ext := findChildKind(heritage, "extends_clause"); ext != nil && ext.NamedChildCount() > 0 {
			baseName = nodeText(ext.NamedChild(0), st.code)
		} else if heritage.NamedChildCount() > 0 {
			baseName = nodeText(heritage.NamedChild(0), st.code)
		}
	}

	ci := &jsClassInfo{name: name, qualified: qname, line: line, baseName: baseName, methodNames: map[string]string{}}
	st.classesByName[name] = ci

	st.entities = append(st.entities, model.Entity{
		Label:         model.LabelClass,
		Name:          name,
		QualifiedName: qname,
		FilePath:      st.filePath,
		LineStart:     line,
		LineEnd:       endLine(node),
		Properties: map[string]any{
			"isAbstract": false,
			"complexity": jsComplexity(node.ChildByFieldName("body"), st.code),
			"decorators": []string{},
		},
	})
	return ci
}

func (st *jsState) extractFunction(node *sitter.Node, classStack []classFrame) *jsFuncInfo {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, st.code)
	if name == "" {
		return nil
	}
	line := startLine(node)

	classQualFragment, classQName := "", ""
	isMethod := node.Kind() == "method_definition" && len(classStack) > 0
	if isMethod {
		top := classStack[len(classStack)-1]
		classQualFragment = top.name + ":" + strconv.Itoa(top.line)
		classQName = top.qualified
	}

	qname := model.FunctionQualifiedName(st.filePath, classQualFragment, name, "", line)
	body := node.ChildByFieldName("body")
	params, paramTypes := jsParams(node.ChildByFieldName("parameters"), st.code, st.isTS)

	returnType := ""
	if st.isTS {
		if rt := node.ChildByFieldName("return_type"); rt != nil {
			returnType = nodeText(rt, st.code)
		}
	}

	isAsync := strings.Contains(prefixText(node, st.code, 10), "async")

	st.entities = append(st.entities, model.Entity{
		Label:         model.LabelFunction,
		Name:          name,
		QualifiedName: qname,
		FilePath:      st.filePath,
		LineStart:     line,
		LineEnd:       endLine(node),
		Properties: map[string]any{
			"parameters":     params,
			"parameterTypes": paramTypes,
			"returnType":     returnType,
			"complexity":     jsComplexity(body, st.code),
			"isAsync":        isAsync,
			"isMethod":       isMethod,
			"decorators":     []string{},
			"yieldCount":     countNodeKinds(body, map[string]bool{"yield_expression": true}),
			"maxChainDepth":  maxChainDepth(body, "call_expression"),
		},
	})

	fi := &jsFuncInfo{name: name, qualified: qname, classQName: classQName}
	st.functionsByQName[qname] = fi
	if isMethod {
		top := classStack[len(classStack)-1]
		if ci, ok := st.classesByName[top.name]; ok {
			ci.methodNames[name] = qname
		}
	}
	return fi
}

func (st *jsState) lookupFunctionQName(name string, classStack []classFrame, node *sitter.Node) string {
	if len(classStack) > 0 {
		top := classStack[len(classStack)-1]
		if ci, ok := st.classesByName[top.name]; ok {
			if qn, ok := ci.methodNames[name]; ok {
				return qn
			}
		}
	}
	return model.FunctionQualifiedName(st.filePath, "", name, "", startLine(node))
}

func (st *jsState) extractInherits(ci *jsClassInfo) {
	if ci.baseName == "" {
		return
	}
	target := ci.baseName
	if parent, ok := st.classesByName[ci.baseName]; ok {
		target = parent.qualified
	}
	st.relationships = append(st.relationships, model.Relationship{
		Type:       model.RelInherits,
		Source:     ci.qualified,
		Target:     target,
		Properties: map[string]any{"order": 0, "baseClass": ci.baseName},
	})
}

func (st *jsState) extractOverrides() {
	for _, ci := range st.classesByName {
		if ci.baseName == "" {
			continue
		}
		parent, ok := st.classesByName[ci.baseName]
		if !ok {
			continue
		}
		for name, childQ := range ci.methodNames {
			if name == "constructor" {
				continue
			}
			if parentQ, ok := parent.methodNames[name]; ok {
				st.relationships = append(st.relationships, model.Relationship{
					Type: model.RelOverrides, Source: childQ, Target: parentQ,
					Properties: map[string]any{"methodName": name},
				})
			}
		}
	}
}

func (st *jsState) extractCalls(body *sitter.Node, callerQName string) {
	if body == nil || callerQName == "" {
		return
	}
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "call_expression" {
			fn := n.ChildByFieldName("function")
			callName := calleeName(fn, st.code)
			if callName != "" {
				target := callName
				if fi := st.resolveLocalCallee(callName); fi != nil {
					target = fi.qualified
				}
				st.relationships = append(st.relationships, model.Relationship{
					Type: model.RelCalls, Source: callerQName, Target: target, Line: startLine(n),
					Properties: map[string]any{"callName": callName},
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}

func (st *jsState) resolveLocalCallee(callName string) *jsFuncInfo {
	simple := callName
	if idx := strings.LastIndexByte(callName, '.'); idx >= 0 {
		simple = callName[idx+1:]
	}
	for _, fi := range st.functionsByQName {
		if fi.name == simple {
			return fi
		}
	}
	return nil
}

func (st *jsState) extractThisUses(body *sitter.Node, funcQName string, classStack []classFrame) {
	if body == nil || len(classStack) == 0 || funcQName == "" {
		return
	}
	top := classStack[len(classStack)-1]
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "member_expression" {
			obj := n.ChildByFieldName("object")
			prop := n.ChildByFieldName("property")
			if obj != nil && prop != nil && nodeText(obj, st.code) == "this" {
				attrName := nodeText(prop, st.code)
				attrQName := model.AttributeQualifiedName(st.filePath, top.name, top.line, attrName)
				key := top.qualified + "." + attrName
				if !st.attributesSeen[key] {
					st.attributesSeen[key] = true
					st.entities = append(st.entities, model.Entity{
						Label: model.LabelAttribute, Name: attrName, QualifiedName: attrQName,
						FilePath: st.filePath, LineStart: startLine(n), LineEnd: endLine(n),
						Properties: map[string]any{"isClassAttribute": false},
					})
				}
				st.relationships = append(st.relationships, model.Relationship{
					Type: model.RelUses, Source: funcQName, Target: attrQName, Line: startLine(n),
					Properties: map[string]any{"attributeName": attrName},
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}

func (st *jsState) extractImport(node *sitter.Node) {
	source := node.ChildByFieldName("source")
	if source == nil {
		return
	}
	modPath := strings.Trim(nodeText(source, st.code), "\"'")
	relLevel := 0
	if strings.HasPrefix(modPath, ".") {
		relLevel = strings.Count(modPath, "../") + 1
	}
	st.entities = append(st.entities, model.Entity{
		Label: model.LabelModule, Name: modPath, QualifiedName: modPath, FilePath: st.filePath,
		LineStart: startLine(node), LineEnd: startLine(node),
		Properties: map[string]any{"isExternal": relLevel == 0, "package": nil, "isDynamicImport": false},
	})
	st.relationships = append(st.relationships, model.Relationship{
		Type: model.RelImports, Source: model.FileQualifiedName(st.filePath), Target: modPath, Line: startLine(node),
		Properties: map[string]any{"relativeLevel": relLevel},
	})
}

func (st *jsState) maybeDynamicImport(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	name := nodeText(fn, st.code)
	if name != "import" && name != "require" {
		return
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	arg := args.NamedChild(0)
	if arg.Kind() != "string" {
		return
	}
	lit := strings.Trim(nodeText(arg, st.code), "\"'")
	st.entities = append(st.entities, model.Entity{
		Label: model.LabelModule, Name: lit, QualifiedName: lit, FilePath: st.filePath,
		LineStart: startLine(node), LineEnd: endLine(node),
		Properties: map[string]any{"isExternal": true, "package": nil, "isDynamicImport": true},
	})
	st.relationships = append(st.relationships, model.Relationship{
		Type: model.RelImports, Source: model.FileQualifiedName(st.filePath), Target: lit, Line: startLine(node),
		Properties: map[string]any{"relativeLevel": 0, "importedName": lit},
	})
}

func (st *jsState) emitContains() {
	fileQName := model.FileQualifiedName(st.filePath)
	for _, e := range st.entities {
		switch e.Label {
		case model.LabelModule, model.LabelClass:
			st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fileQName, Target: e.QualifiedName})
		case model.LabelFunction:
			fi := st.functionsByQName[e.QualifiedName]
			if fi != nil && fi.classQName != "" {
				st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fi.classQName, Target: e.QualifiedName})
			} else {
				st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fileQName, Target: e.QualifiedName})
			}
		case model.LabelAttribute:
			if idx := strings.LastIndexByte(e.QualifiedName, '.'); idx >= 0 {
				st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: e.QualifiedName[:idx], Target: e.QualifiedName})
			}
		}
	}
}

func findChildKind(node *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c.Kind() == kind {
			return c
		}
	}
	return nil
}

func jsParams(node *sitter.Node, code []byte, isTS bool) ([]string, map[string]string) {
	var names []string
	types := map[string]string{}
	if node == nil {
		return names, types
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		var nameNode, typeNode *sitter.Node
		switch child.Kind() {
		case "identifier":
			nameNode = child
		case "required_parameter", "optional_parameter":
			nameNode = child.ChildByFieldName("pattern")
			if isTS {
				typeNode = child.ChildByFieldName("type")
			}
		default:
			nameNode = child
		}
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, code)
		names = append(names, name)
		if typeNode != nil {
			types[name] = nodeText(typeNode, code)
		}
	}
	return names, types
}

func namedExportName(node *sitter.Node, code []byte) string {
	decl := node.NamedChild(0)
	if decl == nil {
		return ""
	}
	if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
		return nodeText(nameNode, code)
	}
	return ""
}

func prefixText(node *sitter.Node, code []byte, n int) string {
	text := nodeText(node, code)
	if len(text) < n {
		return text
	}
	return text[:n]
}

