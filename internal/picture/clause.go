package picture

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrInvalidPicture is returned for clauses that cannot be compiled.
var ErrInvalidPicture = errors.New("invalid picture clause")

var categoryRe = regexp.MustCompile(`^(num|text|date)\{(.*)\}$`)

// Clause is a compiled picture clause.
type Clause struct {
	re      *regexp.Regexp
	numeric bool
	// frac is the number of fraction digits of the first numeric
	// alternative; 0 when it has no decimal point.
	frac    int
	decimal string
}

// Compile compiles pic using the separators in sym.
func Compile(pic string, sym Symbols) (*Clause, error) {
	alts, err := splitAlternatives(pic)
	if err != nil {
		return nil, err
	}
	c := &Clause{decimal: sym.Decimal, frac: -1}
	parts := make([]string, 0, len(alts))
	for _, alt := range alts {
		category, body := "text", alt
		if m := categoryRe.FindStringSubmatch(alt); m != nil {
			category, body = m[1], m[2]
		}
		var expr string
		switch category {
		case "num":
			var frac int
			expr, frac, err = compileNum(body, sym)
			if !c.numeric {
				c.numeric, c.frac = true, frac
			}
		case "date":
			expr, err = compileDate(body)
		default:
			expr, err = compileText(body)
		}
		if err != nil {
			return nil, fmt.Errorf("picture %q: %w", pic, err)
		}
		parts = append(parts, expr)
	}
	re, err := regexp.Compile(`^(?:` + strings.Join(parts, "|") + `)$`)
	if err != nil {
		return nil, fmt.Errorf("picture %q: %w: %v", pic, ErrInvalidPicture, err)
	}
	c.re = re
	return c, nil
}

// Match reports whether value fits the clause. A numeric value that does
// not fit as written is formatted with the clause's fraction digits and
// tried again.
func (c *Clause) Match(value string) bool {
	if c.re.MatchString(value) {
		return true
	}
	if !c.numeric {
		return false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	if c.frac == 0 && f != math.Trunc(f) {
		return false
	}
	s := strconv.FormatFloat(f, 'f', c.frac, 64)
	return c.re.MatchString(strings.Replace(s, ".", c.decimal, 1))
}

func splitAlternatives(pic string) ([]string, error) {
	var (
		alts    []string
		start   int
		depth   int
		inQuote bool
	)
	for i, r := range pic {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case inQuote:
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("picture %q: unbalanced braces: %w", pic, ErrInvalidPicture)
			}
		case r == '|' && depth == 0:
			alts = append(alts, pic[start:i])
			start = i + 1
		}
	}
	if inQuote || depth != 0 {
		return nil, fmt.Errorf("picture %q: unterminated clause: %w", pic, ErrInvalidPicture)
	}
	alts = append(alts, pic[start:])
	for _, a := range alts {
		if a == "" {
			return nil, fmt.Errorf("picture %q: empty alternative: %w", pic, ErrInvalidPicture)
		}
	}
	return alts, nil
}

// literal reads a quoted literal starting after the opening quote at i and
// returns it with the index of the closing quote. Two quotes in a row stand
// for one quote character.
func literal(runes []rune, i int) (string, int) {
	var sb strings.Builder
	for i++; i < len(runes); i++ {
		if runes[i] != '\'' {
			sb.WriteRune(runes[i])
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '\'' {
			sb.WriteRune('\'')
			i++
			continue
		}
		break
	}
	return sb.String(), i
}

func compileNum(body string, sym Symbols) (string, int, error) {
	var sb strings.Builder
	runes := []rune(body)
	frac := 0
	afterDecimal := false
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '9':
			sb.WriteString(`\d`)
		case 'z', 'Z':
			sb.WriteString(`\d?`)
		case 's':
			sb.WriteString(`[+-]?`)
		case 'S':
			sb.WriteString(`[+\- ]?`)
		case '.', 'v', 'V':
			sb.WriteString(regexp.QuoteMeta(sym.Decimal))
			afterDecimal = true
			continue
		case ',':
			sb.WriteString(`(?:` + regexp.QuoteMeta(sym.Grouping) + `)?`)
		case '$':
			sb.WriteString(regexp.QuoteMeta(sym.Currency))
		case 'E':
			sb.WriteString(`E[+-]?\d+`)
		case '\'':
			lit, end := literal(runes, i)
			sb.WriteString(regexp.QuoteMeta(lit))
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
		if afterDecimal && (runes[i] == '9' || runes[i] == 'z' || runes[i] == 'Z') {
			frac++
		}
	}
	return sb.String(), frac, nil
}

func compileText(body string) (string, error) {
	var sb strings.Builder
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '9':
			sb.WriteString(`\d`)
		case 'A':
			sb.WriteString(`\p{L}`)
		case 'X':
			sb.WriteString(`.`)
		case 'O', '0':
			sb.WriteString(`[\p{L}\d]`)
		case '\'':
			lit, end := literal(runes, i)
			sb.WriteString(regexp.QuoteMeta(lit))
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String(), nil
}

var dateSymbols = map[string]string{
	"YYYY": `\d{4}`,
	"YY":   `\d{2}`,
	"MM":   `(?:0[1-9]|1[0-2])`,
	"M":    `(?:1[0-2]|[1-9])`,
	"DD":   `(?:0[1-9]|[12]\d|3[01])`,
	"D":    `(?:[12]\d|3[01]|[1-9])`,
}

func compileDate(body string) (string, error) {
	var sb strings.Builder
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case 'Y', 'M', 'D':
			j := i
			for j < len(runes) && runes[j] == r {
				j++
			}
			sym := string(runes[i:j])
			expr, ok := dateSymbols[sym]
			if !ok {
				return "", fmt.Errorf("unsupported date symbol %q: %w", sym, ErrInvalidPicture)
			}
			sb.WriteString(expr)
			i = j - 1
		case '\'':
			lit, end := literal(runes, i)
			sb.WriteString(regexp.QuoteMeta(lit))
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String(), nil
}

type cacheKey struct {
	picture string
	locale  string
}

// Validator is the default locale collaborator of the validation pipeline.
// Compiled clauses are cached per picture and locale.
type Validator struct {
	mu    sync.Mutex
	cache map[cacheKey]*Clause
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{cache: make(map[cacheKey]*Clause)}
}

// Matches reports whether value fits pic under locale. A clause that does
// not compile matches nothing.
func (v *Validator) Matches(value, pic, locale string) bool {
	c, err := v.Clause(pic, locale)
	if err != nil {
		return false
	}
	return c.Match(value)
}

// Clause returns the compiled clause for pic under locale.
func (v *Validator) Clause(pic, locale string) (*Clause, error) {
	key := cacheKey{picture: pic, locale: locale}
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.cache[key]; ok {
		return c, nil
	}
	c, err := Compile(pic, Lookup(locale))
	if err != nil {
		return nil, err
	}
	v.cache[key] = c
	return c, nil
}
