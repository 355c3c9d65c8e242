package utils

import (
	"strings"
	"unicode"
)

type TokenKind int

const (
	Word TokenKind = iota
	Literal
	Number
	Punct
	Comment
	Separator
)

type Token struct {
	Kind TokenKind
	Text string
}

// SQLReport summarises the shape of a statement text.
type SQLReport struct {
	Statements int
	HasComment bool
	Forbidden  []string
}

var blacklist = map[string]bool{
	"DROP": true, "DELETE": true, "UPDATE": true,
	"ALTER": true, "TRUNCATE": true, "INSERT": true,
}

// Tokenize splits SQL text into tokens. A quoted string, '' escapes
// included, is a single Literal token; an unterminated quote runs to the end.
func Tokenize(query string) []Token {
	var tokens []Token
	rs := []rune(query)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'':
			j := i + 1
			for j < len(rs) {
				if rs[j] == '\'' {
					if j+1 < len(rs) && rs[j+1] == '\'' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			tokens = append(tokens, Token{Literal, string(rs[i:j])})
			i = j
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			j := i
			for j < len(rs) && rs[j] != '\n' {
				j++
			}
			tokens = append(tokens, Token{Comment, string(rs[i:j])})
			i = j
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			j := i + 2
			for j < len(rs) && !(rs[j] == '*' && j+1 < len(rs) && rs[j+1] == '/') {
				j++
			}
			if j < len(rs) {
				j += 2
			}
			tokens = append(tokens, Token{Comment, string(rs[i:j])})
			i = j
		case r == ';':
			tokens = append(tokens, Token{Separator, ";"})
			i++
		case unicode.IsDigit(r):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			tokens = append(tokens, Token{Number, string(rs[i:j])})
			i = j
		case r == '_' || r == '"' || unicode.IsLetter(r):
			j := i + 1
			if r == '"' {
				for j < len(rs) && rs[j] != '"' {
					j++
				}
				if j < len(rs) {
					j++
				}
			} else {
				for j < len(rs) && (rs[j] == '_' || unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) {
					j++
				}
			}
			tokens = append(tokens, Token{Word, string(rs[i:j])})
			i = j
		default:
			tokens = append(tokens, Token{Punct, string(r)})
			i++
		}
	}
	return tokens
}

// InspectSQL counts statements, comments and forbidden keywords outside of
// string literals.
func InspectSQL(query string) SQLReport {
	var report SQLReport
	pending := false
	for _, tok := range Tokenize(query) {
		switch tok.Kind {
		case Separator:
			if pending {
				report.Statements++
				pending = false
			}
		case Comment:
			report.HasComment = true
		default:
			pending = true
			if tok.Kind == Word && blacklist[strings.ToUpper(tok.Text)] {
				report.Forbidden = append(report.Forbidden, strings.ToUpper(tok.Text))
			}
		}
	}
	if pending {
		report.Statements++
	}
	return report
}

// SameStructure reports whether two statements differ only in the content of
// their literals. Keywords and identifiers compare case-insensitively.
func SameStructure(intended, actual string) bool {
	a, b := Tokenize(intended), Tokenize(actual)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind {
			return false
		}
		if a[i].Kind == Literal {
			continue
		}
		if !strings.EqualFold(a[i].Text, b[i].Text) {
			return false
		}
	}
	return true
}

// ValidateSQL accepts a single read statement with no comments.
func ValidateSQL(query string) bool {
	report := InspectSQL(query)
	return report.Statements == 1 && !report.HasComment && len(report.Forbidden) == 0
}
