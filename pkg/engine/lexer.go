package engine

import (
	"strings"
)

type Token struct {
	Type  TokenType
	Value string
	// Quoted is set for identifiers written in ⟨⟩ or backticks. They are never keywords.
	Quoted bool
}

type TokenType int

const (
	Identifier TokenType = iota
	Param
	Int
	Float
	String
	Comma
	Colon
	DoubleColon
	ParenOpen
	ParenClose
	BracketOpen
	BracketClose
	BraceOpen
	BraceClose
	Wildcard
	Equals
	Plus
	Minus
	Slash
	GreaterThan
	DotDot
	EOF
	Unknown
)

var tokenNames = map[TokenType]string{
	Identifier:   "identifier",
	Param:        "parameter",
	Int:          "integer",
	Float:        "float",
	String:       "string",
	Comma:        "','",
	Colon:        "':'",
	DoubleColon:  "'::'",
	ParenOpen:    "'('",
	ParenClose:   "')'",
	BracketOpen:  "'['",
	BracketClose: "']'",
	BraceOpen:    "'{'",
	BraceClose:   "'}'",
	Wildcard:     "'*'",
	Equals:       "'='",
	Plus:         "'+'",
	Minus:        "'-'",
	Slash:        "'/'",
	GreaterThan:  "'>'",
	DotDot:       "'..'",
	EOF:          "end of statement",
	Unknown:      "unknown token",
}

func (t TokenType) String() string {
	return tokenNames[t]
}

func (token Token) String() string {
	if token.Value == "" {
		return token.Type.String()
	}
	return token.Type.String() + " " + token.Value
}

// Is reports whether the token is the keyword kw, ignoring case.
func (token Token) Is(kw string) bool {
	return token.Type == Identifier && !token.Quoted && strings.EqualFold(token.Value, kw)
}

type Lexer struct {
	input        []rune
	position     int
	readPosition int
	ch           rune
}

func NewLexer(text string) *Lexer {
	lexer := &Lexer{input: []rune(text)}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.input) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.input[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() rune {
	if lexer.readPosition >= len(lexer.input) {
		return 0
	}
	return lexer.input[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespace()

	switch lexer.ch {
	case 0:
		return Token{Type: EOF}
	case ',':
		token = Token{Type: Comma, Value: ","}
	case '(':
		token = Token{Type: ParenOpen, Value: "("}
	case ')':
		token = Token{Type: ParenClose, Value: ")"}
	case '[':
		token = Token{Type: BracketOpen, Value: "["}
	case ']':
		token = Token{Type: BracketClose, Value: "]"}
	case '{':
		token = Token{Type: BraceOpen, Value: "{"}
	case '}':
		token = Token{Type: BraceClose, Value: "}"}
	case '*':
		token = Token{Type: Wildcard, Value: "*"}
	case '=':
		token = Token{Type: Equals, Value: "="}
	case '+':
		token = Token{Type: Plus, Value: "+"}
	case '-':
		token = Token{Type: Minus, Value: "-"}
	case '/':
		token = Token{Type: Slash, Value: "/"}
	case '>':
		token = Token{Type: GreaterThan, Value: ">"}
	case ':':
		if lexer.peekChar() == ':' {
			lexer.readChar()
			token = Token{Type: DoubleColon, Value: "::"}
		} else {
			token = Token{Type: Colon, Value: ":"}
		}
	case '.':
		if lexer.peekChar() != '.' {
			token = Token{Type: Unknown, Value: "."}
			break
		}
		lexer.readChar()
		token = Token{Type: DotDot, Value: ".."}
	case '\'', '"':
		value, ok := lexer.readString(lexer.ch)
		if !ok {
			return Token{Type: Unknown, Value: "unterminated string"}
		}
		return Token{Type: String, Value: value}
	case '⟨':
		value, ok := lexer.readDelimited('⟩')
		if !ok {
			return Token{Type: Unknown, Value: "unterminated ⟨"}
		}
		return Token{Type: Identifier, Value: value, Quoted: true}
	case '`':
		value, ok := lexer.readDelimited('`')
		if !ok {
			return Token{Type: Unknown, Value: "unterminated `"}
		}
		return Token{Type: Identifier, Value: value, Quoted: true}
	case '$':
		lexer.readChar()
		name := lexer.readIdentifier()
		if name == "" {
			return Token{Type: Unknown, Value: "$"}
		}
		return Token{Type: Param, Value: name}
	default:
		if isDigit(lexer.ch) {
			num := lexer.readNumber()
			// A dot only starts a fraction when a digit follows, so 1..5 stays a range.
			if lexer.ch == '.' && isDigit(lexer.peekChar()) {
				lexer.readChar()
				decimal := lexer.readNumber()
				return Token{Type: Float, Value: num + "." + decimal}
			}
			if isIdentChar(lexer.ch) {
				rest := lexer.readIdentifier()
				return Token{Type: Identifier, Value: num + rest}
			}
			return Token{Type: Int, Value: num}
		} else if isIdentChar(lexer.ch) {
			return Token{Type: Identifier, Value: lexer.readIdentifier()}
		}
		token = Token{Type: Unknown, Value: string(lexer.ch)}
	}

	lexer.readChar()
	return token
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespace() {
	for {
		switch {
		case lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r':
			lexer.readChar()
		case lexer.ch == '-' && lexer.peekChar() == '-', lexer.ch == '#':
			for lexer.ch != '\n' && lexer.ch != 0 {
				lexer.readChar()
			}
		default:
			return
		}
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isIdentChar(lexer.ch) {
		lexer.readChar()
	}
	return string(lexer.input[position:lexer.position])
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return string(lexer.input[position:lexer.position])
}

// readString reads a quoted string, resolving backslash escapes.
func (lexer *Lexer) readString(quote rune) (string, bool) {
	var b strings.Builder
	lexer.readChar() // skip opening quote
	for lexer.ch != quote {
		switch lexer.ch {
		case 0:
			return "", false
		case '\\':
			lexer.readChar()
			switch lexer.ch {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 0:
				return "", false
			default:
				b.WriteRune(lexer.ch)
			}
		default:
			b.WriteRune(lexer.ch)
		}
		lexer.readChar()
	}
	lexer.readChar() // skip closing quote
	return b.String(), true
}

// readDelimited reads up to the closing delimiter. A backslash escapes the delimiter.
func (lexer *Lexer) readDelimited(closing rune) (string, bool) {
	var b strings.Builder
	lexer.readChar()
	for lexer.ch != closing {
		if lexer.ch == 0 {
			return "", false
		}
		if lexer.ch == '\\' && (lexer.peekChar() == closing || lexer.peekChar() == '\\') {
			lexer.readChar()
		}
		b.WriteRune(lexer.ch)
		lexer.readChar()
	}
	lexer.readChar()
	return b.String(), true
}

func isIdentChar(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || isDigit(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// splitStatements cuts text at top level semicolons. Semicolons inside
// strings, quoted identifiers and brackets do not split.
func splitStatements(text string) []string {
	var (
		parts   []string
		depth   int
		quote   rune
		start   int
		escaped bool
	)
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '⟨':
			quote = '⟩'
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '-', '#':
			if ch == '#' || (i+1 < len(runes) && runes[i+1] == '-') {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
			}
		case ';':
			if depth == 0 {
				parts = append(parts, string(runes[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, string(runes[start:]))

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
