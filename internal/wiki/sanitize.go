package wiki

import "strings"

// Sanitize repairs model output that carries literal newlines or tabs inside
// quoted JSON strings by rewriting them as their escape sequences. One pass,
// two bits of state. Text outside quoted regions and already-escaped
// sequences pass through byte for byte, so the function is idempotent.
// Unbalanced quoting is not repaired.
func Sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			b.WriteByte(ch)
			escaped = false
		case ch == '\\':
			b.WriteByte(ch)
			escaped = true
		case ch == '"':
			inString = !inString
			b.WriteByte(ch)
		case inString && ch == '\n':
			b.WriteString(`\n`)
		case inString && ch == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
