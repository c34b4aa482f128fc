package render

import (
	"regexp"
	"strconv"
	"strings"
)

// css.go rewrites modern CSS into the subset understood by older WebKit
// renderers. Only the contents of <style> elements and style attributes are
// touched; elements and text pass through unchanged.

var (
	styleBlockRe = regexp.MustCompile(`(?is)(<style[^>]*>)(.*?)(</style>)`)
	styleAttrRe  = regexp.MustCompile(`(?i)(\sstyle\s*=\s*")([^"]*)(")`)
	customPropRe = regexp.MustCompile(`(--[A-Za-z0-9_-]+)\s*:\s*([^;{}]+)`)
	varRe        = regexp.MustCompile(`var\(\s*(--[A-Za-z0-9_-]+)\s*(?:,\s*([^()]*))?\)`)
	unitRe       = regexp.MustCompile(`(-?\d*\.?\d+)(rem|vh|vw|ch)\b`)
	innerCalcRe  = regexp.MustCompile(`calc\(([^()]*)\)`)
	termRe       = regexp.MustCompile(`^\s*(-?\d*\.?\d+)([a-z%]*)\s*$`)
)

// A4 page box in millimetres, used for viewport units.
const (
	pageWidthMM  = 210.0
	pageHeightMM = 297.0
	remPx        = 16.0
)

// SanitizeCSS rewrites custom properties, viewport and rem units and calc()
// expressions inside the markup's CSS into plain values.
func SanitizeCSS(markup string) string {
	props := map[string]string{}
	for _, m := range styleBlockRe.FindAllStringSubmatch(markup, -1) {
		for _, p := range customPropRe.FindAllStringSubmatch(m[2], -1) {
			props[p[1]] = strings.TrimSpace(p[2])
		}
	}

	rewrite := func(css string) string {
		css = resolveVars(css, props)
		css = convertUnits(css)
		return evalCalc(css)
	}

	markup = styleBlockRe.ReplaceAllStringFunc(markup, func(s string) string {
		m := styleBlockRe.FindStringSubmatch(s)
		return m[1] + rewrite(m[2]) + m[3]
	})
	return styleAttrRe.ReplaceAllStringFunc(markup, func(s string) string {
		m := styleAttrRe.FindStringSubmatch(s)
		return m[1] + rewrite(m[2]) + m[3]
	})
}

// resolveVars substitutes var() references, innermost first, so values that
// themselves use var() resolve too. Unknown properties take their fallback,
// or "0" when none is given.
func resolveVars(css string, props map[string]string) string {
	for i := 0; i < 8 && varRe.MatchString(css); i++ {
		css = varRe.ReplaceAllStringFunc(css, func(s string) string {
			m := varRe.FindStringSubmatch(s)
			if v, ok := props[m[1]]; ok {
				return v
			}
			if fb := strings.TrimSpace(m[2]); fb != "" {
				return fb
			}
			return "0"
		})
	}
	return css
}

func convertUnits(css string) string {
	return unitRe.ReplaceAllStringFunc(css, func(s string) string {
		m := unitRe.FindStringSubmatch(s)
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return s
		}
		switch m[2] {
		case "rem":
			return formatNum(n*remPx) + "px"
		case "vh":
			return formatNum(n*pageHeightMM/100) + "mm"
		case "vw":
			return formatNum(n*pageWidthMM/100) + "mm"
		default: // ch
			return formatNum(n*0.5) + "em"
		}
	})
}

// Delimiters for calc() bodies that are kept as written, so the reduction
// loop does not match them again.
const (
	keptOpen  = "\x00"
	keptClose = "\x01"
)

var keptCalc = strings.NewReplacer(keptOpen, "calc(", keptClose, ")")

// evalCalc reduces calc() expressions from the innermost outwards. An
// expression that cannot be reduced to one value, such as 100% - 32px, stays
// a calc() with its units already converted.
func evalCalc(css string) string {
	for i := 0; i < 8 && innerCalcRe.MatchString(css); i++ {
		css = innerCalcRe.ReplaceAllStringFunc(css, func(s string) string {
			expr := innerCalcRe.FindStringSubmatch(s)[1]
			if v, ok := calc(expr); ok {
				return v
			}
			return keptOpen + strings.Join(tokenize(expr), " ") + keptClose
		})
	}
	return keptCalc.Replace(css)
}

// calc evaluates "a op b op c" left to right with * and / binding tighter.
func calc(expr string) (string, bool) {
	tokens := tokenize(expr)
	if len(tokens) == 0 || len(tokens)%2 == 0 {
		return "", false
	}

	type term struct {
		n    float64
		unit string
	}
	parse := func(s string) (term, bool) {
		m := termRe.FindStringSubmatch(s)
		if m == nil {
			return term{}, false
		}
		n, err := strconv.ParseFloat(m[1], 64)
		return term{n, m[2]}, err == nil
	}

	// First pass: multiplication and division.
	var sums []term
	var ops []string
	cur, ok := parse(tokens[0])
	if !ok {
		return "", false
	}
	for i := 1; i < len(tokens); i += 2 {
		op := tokens[i]
		next, ok := parse(tokens[i+1])
		if !ok {
			return "", false
		}
		switch op {
		case "*":
			if cur.unit != "" && next.unit != "" {
				return "", false
			}
			cur = term{cur.n * next.n, cur.unit + next.unit}
		case "/":
			if next.unit != "" || next.n == 0 {
				return "", false
			}
			cur = term{cur.n / next.n, cur.unit}
		case "+", "-":
			sums = append(sums, cur)
			ops = append(ops, op)
			cur = next
		default:
			return "", false
		}
	}
	sums = append(sums, cur)

	// Second pass: addition and subtraction with matching units.
	total := sums[0]
	for i, op := range ops {
		t := sums[i+1]
		if t.unit != total.unit && t.n != 0 && total.n != 0 {
			return "", false
		}
		if total.unit == "" {
			total.unit = t.unit
		}
		if op == "+" {
			total.n += t.n
		} else {
			total.n -= t.n
		}
	}
	return formatNum(total.n) + total.unit, true
}

// tokenize splits a calc body on whitespace-delimited operators, keeping
// * and / even when written without spaces.
func tokenize(expr string) []string {
	expr = strings.NewReplacer("*", " * ", "/", " / ").Replace(expr)
	return strings.Fields(expr)
}

func formatNum(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
