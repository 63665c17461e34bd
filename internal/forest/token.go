package forest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TokenKind classifies one step of an access path.
type TokenKind uint8

const (
	TokenInstance TokenKind = iota
	TokenCall
	TokenSubscript
)

func (k TokenKind) String() string {
	switch k {
	case TokenCall:
		return "call"
	case TokenSubscript:
		return "subscript"
	}
	return "instance"
}

// Token is one step of an access path. For instance tokens Content is the
// identifier; for calls and subscripts it is a digest of the arguments or
// indices, so identical argument lists collapse and different ones do not.
type Token struct {
	Content string
	Kind    TokenKind

	// Args holds the token paths of arguments that are themselves access
	// paths. Resolving a call or subscript records their usage as well.
	Args [][]Token
}

// digestLen is the number of hex characters kept from the sha256 sum.
const digestLen = 12

func digest(parts []string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:digestLen]
}

// PathString renders a token path the way aliases are written: instance
// steps joined by dots, calls as "(digest)" and subscripts as "[digest]".
func PathString(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		switch t.Kind {
		case TokenCall:
			b.WriteString("(" + t.Content + ")")
		case TokenSubscript:
			b.WriteString("[" + t.Content + "]")
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(t.Content)
		}
	}
	return b.String()
}
