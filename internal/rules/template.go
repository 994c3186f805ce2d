package rules

import (
	"fmt"
	"strings"
)

// convertTemplate rewrites a replacement template using $n group references
// and backslash escapes into the ${n} form understood by regexp.Expand.
// Digits following a reference are consumed only while they still name an
// existing group, so "$12" with a single group is group 1 followed by "2".
// names is the SubexpNames slice of the match expression.
func convertTemplate(tmpl string, names []string) (string, error) {
	groups := len(names) - 1
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '\\':
			i++
			if i >= len(tmpl) {
				return "", fmt.Errorf("character to be escaped is missing in %q", tmpl)
			}
			writeLiteral(&b, tmpl[i])
		case '$':
			i++
			if i >= len(tmpl) {
				return "", fmt.Errorf("illegal group reference: group index is missing in %q", tmpl)
			}
			if tmpl[i] == '{' {
				end := strings.IndexByte(tmpl[i:], '}')
				if end < 0 {
					return "", fmt.Errorf("named capturing group is missing trailing '}' in %q", tmpl)
				}
				name := tmpl[i+1 : i+end]
				if name == "" {
					return "", fmt.Errorf("named capturing group has 0 length name in %q", tmpl)
				}
				if !hasGroup(names, name) {
					return "", fmt.Errorf("no group with name {%s} in %q", name, tmpl)
				}
				b.WriteString("${" + name + "}")
				i += end
				continue
			}
			if !isDigit(tmpl[i]) {
				return "", fmt.Errorf("illegal group reference in %q", tmpl)
			}
			group := int(tmpl[i] - '0')
			for i+1 < len(tmpl) && isDigit(tmpl[i+1]) {
				next := group*10 + int(tmpl[i+1]-'0')
				if next > groups {
					break
				}
				group = next
				i++
			}
			if group > groups {
				return "", fmt.Errorf("no group %d in %q", group, tmpl)
			}
			fmt.Fprintf(&b, "${%d}", group)
		default:
			writeLiteral(&b, c)
		}
	}
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, c byte) {
	if c == '$' {
		b.WriteString("$$")
		return
	}
	b.WriteByte(c)
}

func hasGroup(names []string, name string) bool {
	for _, n := range names[1:] {
		if n == name {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// combine merges an accumulated value with a new one through a template
// where $1 stands for the accumulated value and $2 for the new one.
func combine(tmpl, accumulated, value string) string {
	return strings.NewReplacer("$1", accumulated, "$2", value).Replace(tmpl)
}
