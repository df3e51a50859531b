package logger

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks the local part of an address, keeping the domain so
// log lines stay useful for deliverability questions.
// "jane.member@example.org" → "ja***@example.org", "ab@example.org" → "***@example.org".
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || strings.Count(email, "@") != 1 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if utf8.RuneCountInString(local) > 2 {
		r := []rune(local)
		return string(r[:2]) + "***@" + domain
	}
	return "***@" + domain
}

// RedactName keeps the first letter of each word of a member or constituent name.
func RedactName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		words[i] = string(r) + "."
	}
	return strings.Join(words, " ")
}

func isNameKey(key string) bool {
	switch key {
	case "name", "first_name", "last_name", "member_name", "constituent_name":
		return true
	}
	return false
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if isNameKey(key) {
		return RedactName(val)
	}
	if (strings.Contains(key, "email") || key == "to" || key == "recipient") && strings.Count(val, "@") == 1 && !strings.ContainsAny(val, " ,;") {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
