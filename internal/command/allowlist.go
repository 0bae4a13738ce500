package command

import "strings"

// Allowlist decides which senders may use the bridge.
//
// The list is kept as the raw configured string and a sender is permitted
// when its address occurs anywhere inside it. This matches how deployments
// have always written the setting ("whatsapp:+1...,whatsapp:+2..." or any
// other separator). An empty list permits everyone.
type Allowlist struct {
	raw string
}

func NewAllowlist(raw string) Allowlist {
	return Allowlist{raw: strings.TrimSpace(raw)}
}

// Open reports whether the list is empty and therefore permits every sender.
func (a Allowlist) Open() bool { return a.raw == "" }

// Permits reports whether addr may use the bridge.
func (a Allowlist) Permits(addr string) bool {
	if a.Open() {
		return true
	}
	if addr == "" {
		return false
	}
	return strings.Contains(a.raw, addr)
}
