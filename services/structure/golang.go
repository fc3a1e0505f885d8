// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package structure

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// addGoFile extracts symbols from one Go source file. Caller holds b.mu.
//
// Functions and methods become function nodes; struct and interface
// declarations become class nodes; the package clause becomes a core
// module node with imports edges to each imported package. Methods get
// a belongs_to edge to their receiver type. Calls are recorded by
// callee name and resolved once all files are in.
func (b *Builder) addGoFile(ctx context.Context, relPath string, content []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("tree-sitter parse %s: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	pkgID := ""

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_clause":
			if name := child.NamedChild(0); name != nil {
				pkgID = b.ensureCoreModule(name.Content(content))
			}
		case "import_declaration":
			b.goImports(child, content, pkgID)
		case "function_declaration":
			b.goFunction(child, content, pkgID)
		case "method_declaration":
			b.goMethod(child, content)
		case "type_declaration":
			b.goTypes(child, content, pkgID)
		}
	}
	return nil
}

// goImports records module nodes and imports edges for one import
// declaration (single spec or grouped list).
func (b *Builder) goImports(node *sitter.Node, content []byte, pkgID string) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			pathNode := n.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			importPath := strings.Trim(pathNode.Content(content), `"`)
			modID := b.ensureModule(path.Base(importPath))
			b.addLink(pkgID, modID, "imports")
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
}

func (b *Builder) goFunction(node *sitter.Node, content []byte, pkgID string) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	id := b.addNode(name.Content(content), "function", true)
	b.funcIDs[name.Content(content)] = id
	b.addLink(id, pkgID, "belongs_to")
	b.goCalls(node.ChildByFieldName("body"), content, id)
}

func (b *Builder) goMethod(node *sitter.Node, content []byte) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	id := b.addNode(name.Content(content), "function", true)
	b.funcIDs[name.Content(content)] = id

	// Receiver type ties the method to its class node.
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		if typeName := goReceiverType(recv, content); typeName != "" {
			b.deferLink(id, typeName, "belongs_to")
		}
	}
	b.goCalls(node.ChildByFieldName("body"), content, id)
}

// goReceiverType digs the bare type name out of a receiver parameter
// list, stripping any pointer.
func goReceiverType(recv *sitter.Node, content []byte) string {
	var find func(n *sitter.Node) string
	find = func(n *sitter.Node) string {
		if n.Type() == "type_identifier" {
			return n.Content(content)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if s := find(n.NamedChild(i)); s != "" {
				return s
			}
		}
		return ""
	}
	return find(recv)
}

// goTypes records struct and interface declarations as class nodes.
func (b *Builder) goTypes(node *sitter.Node, content []byte, pkgID string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		name := spec.ChildByFieldName("name")
		typ := spec.ChildByFieldName("type")
		if name == nil || typ == nil {
			continue
		}
		if typ.Type() != "struct_type" && typ.Type() != "interface_type" {
			continue
		}
		id := b.addNode(name.Content(content), "class", true)
		b.classes[name.Content(content)] = id
		b.addLink(id, pkgID, "belongs_to")
	}
}

// goCalls records call targets inside a function body by name. Plain
// identifier calls resolve against defined functions; selector calls
// resolve their receiver against imported modules.
func (b *Builder) goCalls(body *sitter.Node, content []byte, fromID string) {
	if body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				switch fn.Type() {
				case "identifier":
					b.deferLink(fromID, fn.Content(content), "calls")
				case "selector_expression":
					if operand := fn.ChildByFieldName("operand"); operand != nil && operand.Type() == "identifier" {
						b.deferLink(fromID, operand.Content(content), "calls")
					}
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}
