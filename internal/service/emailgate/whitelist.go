package emailgate

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

// NormalizeAddress lowercases and trims an address and strips any display
// name. It returns ErrInvalidAddress for anything net/mail rejects.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return strings.ToLower(addr.Address), nil
}

// ParseWhitelist reads addresses separated by newlines, commas or
// semicolons. Blank lines and lines starting with # are ignored. The result
// is normalized, deduplicated and sorted. Any invalid entry fails the whole
// import.
func ParseWhitelist(text string) ([]string, error) {
	seen := make(map[string]struct{})
	var invalid []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' }) {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			addr, err := NormalizeAddress(field)
			if err != nil {
				invalid = append(invalid, field)
				continue
			}
			seen[addr] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, strings.Join(invalid, ", "))
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out, nil
}

// FormatWhitelist renders addresses one per line, sorted and deduplicated.
func FormatWhitelist(addrs []string) string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
