package model

import (
	"path/filepath"
	"strings"
)

type SnippetKind string

const (
	SnippetClass    SnippetKind = "class"
	SnippetFunction SnippetKind = "function"
	SnippetMethod   SnippetKind = "method"
	SnippetIf       SnippetKind = "if statement"
	SnippetFor      SnippetKind = "for loop"
	SnippetWhile    SnippetKind = "while loop"
	SnippetTry      SnippetKind = "try block"
	SnippetSwitch   SnippetKind = "switch statement"
	SnippetTag      SnippetKind = "html tag"
	SnippetRule     SnippetKind = "css rule"
	SnippetMedia    SnippetKind = "css media query"
)

// SourceFile is an uploaded file already accepted by intake.
type SourceFile struct {
	Name    string
	Content string
}

// Ext returns the lower-cased extension including the dot.
func (f SourceFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Snippet is a documentable unit extracted from a source file.
type Snippet struct {
	File string
	Kind SnippetKind
	Name string
	Line int
	Code string
}
