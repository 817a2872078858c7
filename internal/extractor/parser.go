package extractor

import (
	"fmt"
	"path/filepath"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/opensrc/codehealth/internal/errors"
)

// languageParser wraps a tree-sitter parser bound to one grammar.
// Close must always be called - the grammar lives in CGO memory.
type languageParser struct {
	parser   *sitter.Parser
	language *sitter.Language
	lang     string
}

func newLanguageParser(lang string) (*languageParser, error) {
	parser := sitter.NewParser()
	if parser == nil {
		return nil, errors.ParseError(fmt.Errorf("failed to create tree-sitter parser"), lang)
	}

	var language *sitter.Language
	switch lang {
	case "python":
		language = sitter.NewLanguage(tree_sitter_python.Language())
	case "javascript", "jsx":
		language = sitter.NewLanguage(tree_sitter_javascript.Language())
	case "typescript", "tsx":
		language = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	default:
		parser.Close()
		return nil, errors.ParseError(fmt.Errorf("unsupported language: %s", lang), lang)
	}

	if err := parser.SetLanguage(language); err != nil {
		parser.Close()
		return nil, errors.ParseError(err, lang)
	}
	return &languageParser{parser: parser, language: language, lang: lang}, nil
}

func (lp *languageParser) Close() {
	if lp.parser != nil {
		lp.parser.Close()
	}
}

func (lp *languageParser) Parse(code []byte) (*sitter.Tree, error) {
	tree := lp.parser.Parse(code, nil)
	if tree == nil {
		return nil, errors.ParseError(fmt.Errorf("tree-sitter returned no tree"), lp.lang)
	}
	return tree, nil
}

// DetectLanguage maps a file extension to an extractor language name, or
// "" if the file is not one this extractor handles.
func DetectLanguage(filePath string) string {
	switch filepath.Ext(filePath) {
	case ".py", ".pyi", ".pyw":
		return "python"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".tsx":
		return "tsx"
	default:
		return ""
	}
}

// ExtractFile parses one file's content and extracts entities and
// relationships. A parse failure is returned as a recoverable
// *errors.Error (ErrorTypeParse); the pipeline is expected to skip the
// file and continue (§4.2 contract).
func ExtractFile(filePath string, content []byte, opts Options) (*Result, error) {
	lang := DetectLanguage(filePath)
	if lang == "" {
		return nil, errors.ParseError(fmt.Errorf("no extractor registered for %s", filePath), filePath)
	}

	lp, err := newLanguageParser(lang)
	if err != nil {
		return nil, err
	}
	defer lp.Close()

	tree, err := lp.Parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	relFilePath := filePath

	switch lang {
	case "python":
		return extractPython(relFilePath, root, content, opts)
	case "javascript", "jsx":
		return extractJavaScript(relFilePath, root, content, opts, false)
	case "typescript", "tsx":
		return extractJavaScript(relFilePath, root, content, opts, true)
	default:
		return nil, errors.ParseError(fmt.Errorf("no extractor for language %s", lang), filePath)
	}
}

func nodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	return string(code[start:end])
}

func startLine(node *sitter.Node) int { return int(node.StartPosition().Row) + 1 }
func endLine(node *sitter.Node) int   { return int(node.EndPosition().Row) + 1 }
