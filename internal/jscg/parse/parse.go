// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parse adapts tree-sitter concrete syntax trees for JavaScript,
// JSX, TypeScript, and TSX onto the uniform internal/jscg/ast.Node shape,
// so that decorate, bind, flow, and extract never see a language
// difference.
package parse

import (
	"context"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/AleutianAI/jscg/internal/jscg/ast"
)

// ErrFileTooLarge is returned by Parse when content exceeds the
// configured MaxFileSize.
var ErrFileTooLarge = fmt.Errorf("parse: file exceeds configured maximum size")

// ErrInvalidContent is returned by Parse when content is not valid UTF-8.
var ErrInvalidContent = fmt.Errorf("parse: content is not valid UTF-8")

// Options configures a Parser.
type Options struct {
	// MaxFileSize is the maximum file size in bytes to parse. Default: 10MB.
	MaxFileSize int
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{MaxFileSize: 10 * 1024 * 1024}
}

// Option is a functional option for configuring a Parser.
type Option func(*Options)

// WithMaxFileSize overrides the maximum parseable file size.
func WithMaxFileSize(n int) Option {
	return func(o *Options) { o.MaxFileSize = n }
}

// Parser parses JavaScript-family source into ast.Node trees. A Parser is
// safe for concurrent use: Parse creates a fresh tree-sitter parser
// instance per call, which is what lets internal/jscg/discover run a
// bounded-parallel file-parsing harness over a Parser shared across
// goroutines.
type Parser struct {
	options Options
}

// New returns a Parser configured with opts.
func New(opts ...Option) *Parser {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Parser{options: options}
}

// dialect picks the tree-sitter grammar for filePath's extension. ".ts"
// and ".tsx"/".jsx" get the TypeScript/TSX grammars (TSX's superset also
// parses plain JSX); every other extension gets the JavaScript grammar.
func dialect(filePath string) *sitter.Language {
	switch ext(filePath) {
	case ".ts":
		return typescript.GetLanguage()
	case ".tsx", ".jsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

func ext(filePath string) string {
	for i := len(filePath) - 1; i >= 0; i-- {
		if filePath[i] == '.' {
			return filePath[i:]
		}
		if filePath[i] == '/' {
			break
		}
	}
	return ""
}

// Parse parses content (the source of filePath) into an ast.Node Program.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*ast.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: canceled before start: %w", filePath, err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, fmt.Errorf("parse %s: %w", filePath, ErrFileTooLarge)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("parse %s: %w", filePath, ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(dialect(filePath))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: tree-sitter: %w", filePath, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: canceled after tree-sitter: %w", filePath, err)
	}

	c := &converter{content: content, file: filePath}
	root := c.convert(tree.RootNode())
	return root, nil
}
