// Package readme builds a README for a Go project from its source: package
// docs, declarations, command-line flags and third-party imports, optionally
// enriched by a local model.
package readme

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNoGoFiles is returned when the scanned path holds no Go source.
var ErrNoGoFiles = errors.New("no Go files found")

// Func is a function or method declaration.
type Func struct {
	Name     string
	Receiver string
	Params   []string
	Doc      string
	Source   string
}

// Signature renders the declaration as Recv.Name(params).
func (f Func) Signature() string {
	name := f.Name
	if f.Receiver != "" {
		name = strings.TrimPrefix(f.Receiver, "*") + "." + name
	}
	return name + "(" + strings.Join(f.Params, ", ") + ")"
}

// TypeDecl is a named type declaration.
type TypeDecl struct {
	Name   string
	Doc    string
	Source string
}

// Flag is a command-line flag registered through the flag or pflag API.
type Flag struct {
	Name string
	Help string
}

// Package is the scanned content of one directory.
type Package struct {
	Name  string
	Dir   string
	Doc   string
	Main  bool
	Funcs []Func
	Types []TypeDecl
	Flags []Flag
}

// Features are traits detected across the project's source.
type Features struct {
	Env         bool
	Network     bool
	Concurrency bool
	Errors      bool
	CLI         bool
}

// Project is everything Scan found under a root.
type Project struct {
	Root       string
	Title      string
	Module     string
	Packages   []Package
	Imports    []string
	Features   Features
	HasLicense bool
}

var skipDirs = map[string]bool{"vendor": true, "testdata": true, "node_modules": true}

// Scan parses the non-test Go files under path. path may be a directory or
// a single .go file. Exported declarations are collected, plus every
// function of a main package.
func Scan(path string) (*Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	root := path
	var files []string
	if info.IsDir() {
		if files, err = goFiles(root); err != nil {
			return nil, err
		}
	} else {
		if filepath.Ext(path) != ".go" {
			return nil, fmt.Errorf("scan %s: %w", path, ErrNoGoFiles)
		}
		root = filepath.Dir(path)
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("scan %s: %w", path, ErrNoGoFiles)
	}

	p := &Project{
		Root:       root,
		Title:      title(root),
		Module:     modulePath(root),
		HasLicense: fileExists(filepath.Join(root, "LICENSE")),
	}
	s := scanner{project: p, fset: token.NewFileSet(), pkgs: map[string]*Package{}, imports: map[string]bool{}}
	for _, f := range files {
		if err := s.parse(f); err != nil {
			return nil, err
		}
	}

	for _, pkg := range s.pkgs {
		p.Packages = append(p.Packages, *pkg)
	}
	slices.SortFunc(p.Packages, func(a, b Package) int { return strings.Compare(a.Dir, b.Dir) })
	for imp := range s.imports {
		p.Imports = append(p.Imports, imp)
	}
	slices.Sort(p.Imports)
	return p, nil
}

func goFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

type scanner struct {
	project *Project
	fset    *token.FileSet
	pkgs    map[string]*Package
	imports map[string]bool
}

func (s *scanner) parse(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	f, err := parser.ParseFile(s.fset, path, src, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	dir, err := filepath.Rel(s.project.Root, filepath.Dir(path))
	if err != nil {
		dir = filepath.Dir(path)
	}
	dir = filepath.ToSlash(dir)
	pkg, ok := s.pkgs[dir]
	if !ok {
		pkg = &Package{Name: f.Name.Name, Dir: dir, Main: f.Name.Name == "main"}
		s.pkgs[dir] = pkg
	}
	if pkg.Doc == "" && f.Doc != nil {
		pkg.Doc = strings.TrimSpace(f.Doc.Text())
	}

	for _, imp := range f.Imports {
		ipath, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !thirdParty(ipath, s.project.Module) {
			continue
		}
		s.imports[ipath] = true
		if strings.HasPrefix(ipath, "github.com/spf13/cobra") {
			s.project.Features.CLI = true
		}
		if strings.HasPrefix(ipath, "github.com/spf13/viper") {
			s.project.Features.Env = true
		}
		if strings.HasPrefix(ipath, "google.golang.org/grpc") {
			s.project.Features.Network = true
		}
	}

	snippet := func(n ast.Node) string {
		start, end := s.fset.Position(n.Pos()).Offset, s.fset.Position(n.End()).Offset
		return string(src[start:end])
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if !pkg.Main && !d.Name.IsExported() {
				continue
			}
			pkg.Funcs = append(pkg.Funcs, Func{
				Name:     d.Name.Name,
				Receiver: receiver(d),
				Params:   params(d.Type.Params),
				Doc:      strings.TrimSpace(d.Doc.Text()),
				Source:   snippet(d),
			})
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				if !ts.Name.IsExported() {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				pkg.Types = append(pkg.Types, TypeDecl{Name: ts.Name.Name, Doc: strings.TrimSpace(doc.Text()), Source: snippet(ts)})
			}
		}
	}

	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.GoStmt:
			s.project.Features.Concurrency = true
		case *ast.IfStmt:
			if isErrCheck(n.Cond) {
				s.project.Features.Errors = true
			}
		case *ast.CallExpr:
			s.call(pkg, n)
		}
		return true
	})
	return nil
}

func (s *scanner) call(pkg *Package, call *ast.CallExpr) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}
	if x, ok := sel.X.(*ast.Ident); ok {
		switch {
		case x.Name == "os" && (sel.Sel.Name == "Getenv" || sel.Sel.Name == "LookupEnv"):
			s.project.Features.Env = true
		case x.Name == "http" && strings.HasPrefix(sel.Sel.Name, "New"):
			s.project.Features.Network = true
		case x.Name == "flag":
			s.project.Features.CLI = true
		}
	}
	if f, ok := flagCall(sel.Sel.Name, call.Args); ok {
		pkg.Flags = append(pkg.Flags, f)
	}
}

var flagKinds = []string{"String", "Bool", "Int", "Int64", "Uint", "Float64", "Duration", "StringSlice", "IntSlice", "StringArray"}

// flagCall recognises flag and pflag registrations such as
// String(name, value, usage), IntVar(&p, name, value, usage) and
// BoolP(name, shorthand, value, usage).
func flagCall(method string, args []ast.Expr) (Flag, bool) {
	nameArg := 0
	kind := method
	switch {
	case strings.HasSuffix(method, "VarP"):
		kind, nameArg = strings.TrimSuffix(method, "VarP"), 1
	case strings.HasSuffix(method, "Var"):
		kind, nameArg = strings.TrimSuffix(method, "Var"), 1
	case strings.HasSuffix(method, "P"):
		kind = strings.TrimSuffix(method, "P")
	}
	if !slices.Contains(flagKinds, kind) || len(args) < nameArg+3 {
		return Flag{}, false
	}
	name, ok := stringLit(args[nameArg])
	if !ok {
		return Flag{}, false
	}
	help, _ := stringLit(args[len(args)-1])
	return Flag{Name: name, Help: help}, true
}

func stringLit(e ast.Expr) (string, bool) {
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	return s, err == nil
}

func isErrCheck(cond ast.Expr) bool {
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok || bin.Op != token.NEQ {
		return false
	}
	x, xok := bin.X.(*ast.Ident)
	y, yok := bin.Y.(*ast.Ident)
	return xok && yok && x.Name == "err" && y.Name == "nil"
}

func receiver(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	return types.ExprString(d.Recv.List[0].Type)
}

func params(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var out []string
	for _, field := range fl.List {
		typ := types.ExprString(field.Type)
		if len(field.Names) == 0 {
			out = append(out, typ)
			continue
		}
		for _, n := range field.Names {
			out = append(out, n.Name+" "+typ)
		}
	}
	return out
}

// thirdParty reports whether an import path is outside the standard library
// and the project's own module.
func thirdParty(path, module string) bool {
	if module != "" && (path == module || strings.HasPrefix(path, module+"/")) {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return strings.Contains(first, ".")
}

func modulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

func title(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	name := strings.NewReplacer("_", " ", "-", " ").Replace(filepath.Base(abs))
	return cases.Title(language.English).String(name)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
