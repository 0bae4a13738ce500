package command

import "strings"

const whatsappPrefix = "whatsapp:"

// NormalizeAddress repairs sender addresses whose "+" was decoded as a space
// on the way in. "whatsapp: 15551234567" becomes "whatsapp:+15551234567",
// and "whatsapp: +1 555" loses only the stray space. Only the first
// occurrence is rewritten. Canonical addresses are returned unchanged.
func NormalizeAddress(addr string) string {
	i := strings.Index(addr, whatsappPrefix+" ")
	if i < 0 {
		return addr
	}
	rest := addr[i+len(whatsappPrefix)+1:]
	if !strings.HasPrefix(rest, "+") {
		rest = "+" + rest
	}
	return addr[:i] + whatsappPrefix + rest
}
