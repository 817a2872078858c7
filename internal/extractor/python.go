package extractor

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/opensrc/codehealth/internal/model"
)

type classFrame struct {
	name      string
	qualified string // the class's full qualified name (ClassQualifiedName)
	line      int
}

type funcFrame struct {
	qualified string
}

// pyState accumulates everything one extraction pass produces; entity
// and relationship extraction share it so the second walk can resolve
// local-file targets the first walk already named.
type pyState struct {
	filePath string
	code     []byte
	opts     Options

	entities      []model.Entity
	relationships []model.Relationship

	// functionsByQName / classesByName index local, in-file definitions
	// for inheritance/override/call resolution.
	functionsByQName map[string]*funcInfo
	classesByName    map[string]*classInfo
	attributesSeen   map[string]bool // "classQName.attrName"
}

type funcInfo struct {
	name       string
	qualified  string
	className  string // "" if module-level
	classQName string
	isDunder   bool
}

type classInfo struct {
	name        string
	qualified   string
	line        int
	baseNames   []string
	methodNames map[string]string // simple name -> qualifiedName
}

func extractPython(filePath string, root *sitter.Node, code []byte, opts Options) (*Result, error) {
	st := &pyState{
		filePath:         filePath,
		code:             code,
		opts:             opts,
		functionsByQName: map[string]*funcInfo{},
		classesByName:    map[string]*classInfo{},
		attributesSeen:   map[string]bool{},
	}

	var exports []string
	var classStack []classFrame
	var funcStack []funcFrame

	// Pass 1: entities.
	var walkEntities func(node *sitter.Node)
	walkEntities = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "class_definition":
			ci := st.extractClass(node, classStack)
			classStack = append(classStack, classFrame{name: ci.name, qualified: ci.qualified, line: ci.line})
			for i := uint(0); i < node.ChildCount(); i++ {
				walkEntities(node.Child(i))
			}
			classStack = classStack[:len(classStack)-1]
			return

		case "function_definition":
			fi := st.extractFunction(node, classStack, funcStack)
			funcStack = append(funcStack, funcFrame{qualified: fi.qualified})
			for i := uint(0); i < node.ChildCount(); i++ {
				walkEntities(node.Child(i))
			}
			funcStack = funcStack[:len(funcStack)-1]
			return

		case "import_statement", "import_from_statement":
			st.extractImport(node)

		case "call":
			st.maybeDynamicImport(node)

		case "assignment":
			if names := exportsAssignmentName(node, code, opts); len(names) > 0 {
				exports = append(exports, names...)
			}
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walkEntities(node.Child(i))
		}
	}
	walkEntities(root)

	// Pass 2: relationships (fresh walk, scope tracking rebuilt).
	classStack = nil
	funcStack = nil
	var walkRels func(node *sitter.Node)
	walkRels = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "class_definition":
			nameNode := node.ChildByFieldName("name")
			name := nodeText(nameNode, code)
			ci := st.classesByName[name]
			if ci != nil {
				classStack = append(classStack, classFrame{name: ci.name, qualified: ci.qualified, line: ci.line})
				st.extractInherits(node, ci)
			}
			for i := uint(0); i < node.ChildCount(); i++ {
				walkRels(node.Child(i))
			}
			if ci != nil {
				classStack = classStack[:len(classStack)-1]
			}
			return

		case "function_definition":
			nameNode := node.ChildByFieldName("name")
			name := nodeText(nameNode, code)
			qname := st.lookupFunctionQName(name, classStack, node)
			funcStack = append(funcStack, funcFrame{qualified: qname})
			body := node.ChildByFieldName("body")
			st.extractCalls(body, qname)
			st.extractAttributeUses(body, qname, classStack)
			for i := uint(0); i < node.ChildCount(); i++ {
				walkRels(node.Child(i))
			}
			funcStack = funcStack[:len(funcStack)-1]
			return
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walkRels(node.Child(i))
		}
	}
	walkRels(root)

	st.extractOverrides()
	st.emitContains()

	fileEntity := model.Entity{
		Label:         model.LabelFile,
		Name:          lastPathSegment(filePath),
		QualifiedName: model.FileQualifiedName(filePath),
		FilePath:      filePath,
		LineStart:     1,
		LineEnd:       int(root.EndPosition().Row) + 1,
		Properties: map[string]any{
			"language": "python",
			"loc":      strings.Count(string(code), "\n") + 1,
			"hash":     contentHash(code),
			"exports":  exports,
		},
	}
	st.entities = append([]model.Entity{fileEntity}, st.entities...)

	return &Result{
		FilePath:      filePath,
		Language:      "python",
		Entities:      st.entities,
		Relationships: st.relationships,
	}, nil
}

func lastPathSegment(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

func (st *pyState) extractClass(node *sitter.Node, classStack []classFrame) *classInfo {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, st.code)
	line := startLine(node)
	qname := model.ClassQualifiedName(st.filePath, name, line)

	var bases []string
	isAbstract := false
	if sc := node.ChildByFieldName("superclasses"); sc != nil {
		for i := uint(0); i < sc.ChildCount(); i++ {
			child := sc.Child(i)
			if child.IsNamed() {
				base := nodeText(child, st.code)
				bases = append(bases, base)
				if base == "ABC" || base == "abc.ABC" {
					isAbstract = true
				}
			}
		}
	}

	decorators := decoratorList(node, st.code)

	docstring, _ := applySecretsPolicy(st.opts, classDocstring(node, st.code), "class:"+qname)

	ci := &classInfo{name: name, qualified: qname, line: line, baseNames: bases, methodNames: map[string]string{}}
	st.classesByName[name] = ci

	st.entities = append(st.entities, model.Entity{
		Label:         model.LabelClass,
		Name:          name,
		QualifiedName: qname,
		FilePath:      st.filePath,
		LineStart:     line,
		LineEnd:       endLine(node),
		Docstring:     docstring,
		Properties: map[string]any{
			"isAbstract": isAbstract,
			"complexity": pythonComplexity(node.ChildByFieldName("body")),
			"decorators": decorators,
		},
	})
	return ci
}

func (st *pyState) extractFunction(node *sitter.Node, classStack []classFrame, funcStack []funcFrame) *funcInfo {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, st.code)
	line := startLine(node)

	classQualFragment, className, classQName := "", "", ""
	if len(classStack) > 0 && len(funcStack) == 0 {
		top := classStack[len(classStack)-1]
		classQualFragment = top.name + ":" + strconv.Itoa(top.line)
		className = top.name
		classQName = top.qualified
	}

	decorators := decoratorList(node, st.code)
	decoratorSuffix := descriptorSuffix(decorators)

	qname := model.FunctionQualifiedName(st.filePath, classQualFragment, name, decoratorSuffix, line)

	paramsNode := node.ChildByFieldName("parameters")
	params, paramTypes := pythonParams(paramsNode, st.code)

	returnType := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		returnType = nodeText(rt, st.code)
	}

	body := node.ChildByFieldName("body")
	isAsync := strings.HasPrefix(strings.TrimSpace(nodeText(node, st.code)), "async")
	yieldCount := countNodeKinds(body, map[string]bool{"yield": true})

	docstring, _ := applySecretsPolicy(st.opts, functionDocstring(node, st.code), "function:"+qname)

	st.entities = append(st.entities, model.Entity{
		Label:         model.LabelFunction,
		Name:          name,
		QualifiedName: qname,
		FilePath:      st.filePath,
		LineStart:     line,
		LineEnd:       endLine(node),
		Docstring:     docstring,
		Properties: map[string]any{
			"parameters":     params,
			"parameterTypes": paramTypes,
			"returnType":     returnType,
			"complexity":     pythonComplexity(body),
			"isAsync":        isAsync,
			"isMethod":       className != "",
			"decorators":     decorators,
			"yieldCount":     yieldCount,
			"maxChainDepth":  maxChainDepth(body, "call"),
		},
	})

	fi := &funcInfo{name: name, qualified: qname, className: className, classQName: classQName, isDunder: isDunder(name)}
	st.functionsByQName[qname] = fi
	if ci, ok := st.classesByName[className]; ok {
		ci.methodNames[name] = qname
	}
	return fi
}

func (st *pyState) lookupFunctionQName(name string, classStack []classFrame, node *sitter.Node) string {
	line := startLine(node)
	if len(classStack) > 0 {
		top := classStack[len(classStack)-1]
		if ci, ok := st.classesByName[top.name]; ok {
			if qn, ok := ci.methodNames[name]; ok {
				return qn
			}
		}
	}
	return model.FunctionQualifiedName(st.filePath, "", name, "", line)
}

func (st *pyState) extractInherits(node *sitter.Node, ci *classInfo) {
	for order, base := range ci.baseNames {
		target := base
		if parent, ok := st.classesByName[base]; ok {
			target = parent.qualified
		}
		st.relationships = append(st.relationships, model.Relationship{
			Type:   model.RelInherits,
			Source: ci.qualified,
			Target: target,
			Properties: map[string]any{
				"order":     order,
				"baseClass": base,
			},
		})
	}
}

func (st *pyState) extractOverrides() {
	for _, ci := range st.classesByName {
		for _, base := range ci.baseNames {
			parent, ok := st.classesByName[base]
			if !ok {
				continue
			}
			for methodName, childQName := range ci.methodNames {
				if isDunder(methodName) {
					continue
				}
				if parentQName, ok := parent.methodNames[methodName]; ok {
					st.relationships = append(st.relationships, model.Relationship{
						Type:       model.RelOverrides,
						Source:     childQName,
						Target:     parentQName,
						Properties: map[string]any{"methodName": methodName},
					})
				}
			}
		}
	}
}

func (st *pyState) extractCalls(body *sitter.Node, callerQName string) {
	if body == nil || callerQName == "" {
		return
	}
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "call" {
			fn := n.ChildByFieldName("function")
			callName := calleeName(fn, st.code)
			if callName != "" {
				target := callName
				if fi := st.resolveLocalCallee(callName); fi != nil {
					target = fi.qualified
				}
				st.relationships = append(st.relationships, model.Relationship{
					Type:   model.RelCalls,
					Source: callerQName,
					Target: target,
					Line:   startLine(n),
					Properties: map[string]any{
						"callName": callName,
					},
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}

// resolveLocalCallee best-effort matches a textual callee name (possibly
// dotted) against functions defined in this file by simple name.
func (st *pyState) resolveLocalCallee(callName string) *funcInfo {
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

func (st *pyState) extractAttributeUses(body *sitter.Node, funcQName string, classStack []classFrame) {
	if body == nil || len(classStack) == 0 || funcQName == "" {
		return
	}
	top := classStack[len(classStack)-1]
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "attribute" {
			obj := n.ChildByFieldName("object")
			attr := n.ChildByFieldName("attribute")
			if obj != nil && attr != nil && nodeText(obj, st.code) == "self" {
				attrName := nodeText(attr, st.code)
				attrQName := model.AttributeQualifiedName(st.filePath, top.name, top.line, attrName)
				key := top.qualified + "." + attrName
				if !st.attributesSeen[key] {
					st.attributesSeen[key] = true
					st.entities = append(st.entities, model.Entity{
						Label:         model.LabelAttribute,
						Name:          attrName,
						QualifiedName: attrQName,
						FilePath:      st.filePath,
						LineStart:     startLine(n),
						LineEnd:       endLine(n),
						Properties:    map[string]any{"isClassAttribute": false},
					})
				}
				st.relationships = append(st.relationships, model.Relationship{
					Type:   model.RelUses,
					Source: funcQName,
					Target: attrQName,
					Line:   startLine(n),
					Properties: map[string]any{
						"attributeName": attrName,
					},
				})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(body)
}

func (st *pyState) extractImport(node *sitter.Node) {
	line := startLine(node)
	switch node.Kind() {
	case "import_statement":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		modPath := nodeText(nameNode, st.code)
		st.emitModule(modPath, "", "", 0, line)

	case "import_from_statement":
		moduleNode := node.ChildByFieldName("module_name")
		modPath := ""
		relLevel := 0
		if moduleNode != nil {
			modPath = nodeText(moduleNode, st.code)
		}
		raw := nodeText(node, st.code)
		relLevel = strings.Count(strings.TrimPrefix(strings.TrimPrefix(raw, "from"), " "), ".")
		if modPath == "" && relLevel == 0 {
			relLevel = 1
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "dotted_name" && child != moduleNode || child.Kind() == "aliased_import" {
				imported := nodeText(child, st.code)
				st.emitModule(modPath, imported, "", relLevel, line)
			}
		}
		if modPath != "" && node.ChildCount() == 0 {
			st.emitModule(modPath, "", "", relLevel, line)
		}
	}
}

func (st *pyState) emitModule(modPath, importedName, alias string, relLevel, line int) {
	if modPath == "" && importedName == "" {
		return
	}
	qname := modPath
	if qname == "" {
		qname = importedName
	}
	pkg := any(nil)
	if idx := strings.LastIndexByte(qname, '.'); idx >= 0 {
		pkg = qname[:idx]
	}
	st.entities = append(st.entities, model.Entity{
		Label:         model.LabelModule,
		Name:          qname,
		QualifiedName: qname,
		FilePath:      st.filePath,
		LineStart:     line,
		LineEnd:       line,
		Properties: map[string]any{
			"isExternal":      relLevel == 0,
			"package":         pkg,
			"isDynamicImport": false,
		},
	})
	st.relationships = append(st.relationships, model.Relationship{
		Type:   model.RelImports,
		Source: model.FileQualifiedName(st.filePath),
		Target: qname,
		Line:   line,
		Properties: map[string]any{
			"alias":         alias,
			"fromModule":    modPath,
			"importedName":  importedName,
			"relativeLevel": relLevel,
		},
	})
}

func (st *pyState) maybeDynamicImport(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	name := calleeName(fn, st.code)
	if name != "importlib.import_module" && name != "__import__" {
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
		Label:         model.LabelModule,
		Name:          lit,
		QualifiedName: lit,
		FilePath:      st.filePath,
		LineStart:     startLine(node),
		LineEnd:       endLine(node),
		Properties: map[string]any{
			"isExternal":      true,
			"package":         nil,
			"isDynamicImport": true,
		},
	})
	st.relationships = append(st.relationships, model.Relationship{
		Type:   model.RelImports,
		Source: model.FileQualifiedName(st.filePath),
		Target: lit,
		Line:   startLine(node),
		Properties: map[string]any{
			"relativeLevel": 0,
			"importedName":  lit,
		},
	})
}

// emitContains writes CONTAINS edges from the entities this pass already
// collected, inferred from qualified-name shape rather than re-walking.
func (st *pyState) emitContains() {
	fileQName := model.FileQualifiedName(st.filePath)
	for _, e := range st.entities {
		switch e.Label {
		case model.LabelModule:
			st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fileQName, Target: e.QualifiedName})
		case model.LabelClass:
			st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fileQName, Target: e.QualifiedName})
		case model.LabelFunction:
			fi := st.functionsByQName[e.QualifiedName]
			if fi != nil && fi.classQName != "" {
				st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fi.classQName, Target: e.QualifiedName})
			} else {
				st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: fileQName, Target: e.QualifiedName})
			}
		case model.LabelAttribute:
			// owning class is the qualifiedName prefix up to the last '.'
			if idx := strings.LastIndexByte(e.QualifiedName, '.'); idx >= 0 {
				st.relationships = append(st.relationships, model.Relationship{Type: model.RelContains, Source: e.QualifiedName[:idx], Target: e.QualifiedName})
			}
		}
	}
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

func decoratorList(node *sitter.Node, code []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var decorators []string
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child.Kind() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(nodeText(child, code), "@"))
		}
	}
	return decorators
}

// descriptorSuffix returns the decorator that distinguishes same-named
// methods playing different descriptor roles (property/setter/getter).
func descriptorSuffix(decorators []string) string {
	for _, d := range decorators {
		switch {
		case d == "property":
			return "property"
		case strings.HasSuffix(d, ".setter"):
			return "setter"
		case strings.HasSuffix(d, ".getter"):
			return "getter"
		case strings.HasSuffix(d, ".deleter"):
			return "deleter"
		case d == "staticmethod":
			return "staticmethod"
		case d == "classmethod":
			return "classmethod"
		}
	}
	return ""
}

func calleeName(fn *sitter.Node, code []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, code)
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		objName := calleeName(obj, code)
		if objName == "" {
			objName = nodeText(obj, code)
		}
		return objName + "." + nodeText(attr, code)
	default:
		return nodeText(fn, code)
	}
}

func pythonParams(node *sitter.Node, code []byte) ([]string, map[string]string) {
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
		case "typed_parameter":
			nameNode = child.NamedChild(0)
			typeNode = child.ChildByFieldName("type")
		case "default_parameter", "typed_default_parameter":
			nameNode = child.ChildByFieldName("name")
			typeNode = child.ChildByFieldName("type")
		case "list_splat_pattern", "dictionary_splat_pattern":
			nameNode = child.NamedChild(0)
		default:
			continue
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

func classDocstring(node *sitter.Node, code []byte) string {
	return bodyDocstring(node.ChildByFieldName("body"), code)
}

func functionDocstring(node *sitter.Node, code []byte) string {
	return bodyDocstring(node.ChildByFieldName("body"), code)
}

func bodyDocstring(body *sitter.Node, code []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return ""
	}
	return strings.Trim(nodeText(str, code), "\"' \t\n")
}

// exportsAssignmentName recognizes `__all__ = [...]` and returns the
// list of exported names.
func exportsAssignmentName(node *sitter.Node, code []byte, opts Options) []string {
	varName := opts.ExportsVarName
	if varName == "" {
		varName = "__all__"
	}
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return nil
	}
	if nodeText(left, code) != varName {
		return nil
	}
	if right.Kind() != "list" {
		return nil
	}
	var names []string
	for i := uint(0); i < right.NamedChildCount(); i++ {
		item := right.NamedChild(i)
		if item.Kind() == "string" {
			names = append(names, strings.Trim(nodeText(item, code), "\"'"))
		}
	}
	return names
}
