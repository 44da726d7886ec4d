// Package command parses and executes control channel lines.
package command

import (
	"net/netip"
	"strconv"
	"strings"
)

// Kind identifies a parsed control command.
type Kind int

const (
	KindUnknown Kind = iota
	KindSetIP
	KindSetSubnet
	KindSetGateway
	KindSetOutIP
	KindSetInPort
	KindSetOutPort
	KindSetID
	KindGet
	KindShowIP
	KindShowMAC
	KindHelp
)

var kindNames = map[Kind]string{
	KindUnknown:    "UNKNOWN",
	KindSetIP:      "SET_IP",
	KindSetSubnet:  "SET_SUBNET",
	KindSetGateway: "SET_GATEWAY",
	KindSetOutIP:   "SET_OUTIP",
	KindSetInPort:  "SET_INPORT",
	KindSetOutPort: "SET_OUTPORT",
	KindSetID:      "SET_ID",
	KindGet:        "GET",
	KindShowIP:     "IP",
	KindShowMAC:    "MAC",
	KindHelp:       "HELP",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Command is a tokenized control line. Exactly one payload field is
// meaningful, depending on Kind; Valid is false when the payload did not parse.
type Command struct {
	Kind   Kind
	Addr   netip.Addr // SET_IP, SET_SUBNET, SET_GATEWAY, SET_OUTIP
	Number int        // SET_INPORT, SET_OUTPORT, SET_ID
	Valid  bool
	Raw    string
}

type prefixRule struct {
	prefix string
	kind   Kind
	number bool
}

// Prefixes are tried in order and the first match wins.
var prefixRules = []prefixRule{
	{"SET_IP ", KindSetIP, false},
	{"SET_SUBNET ", KindSetSubnet, false},
	{"SET_GATEWAY ", KindSetGateway, false},
	{"SET_OUTIP ", KindSetOutIP, false},
	{"SET_INPORT ", KindSetInPort, true},
	{"SET_OUTPORT ", KindSetOutPort, true},
	{"SET_ID ", KindSetID, true},
}

// Parse tokenizes one line. Matching is case-sensitive. After the prefixed
// setters come exact GET, IP and MAC, then any line containing HELP, then any
// line containing GET. Everything else is KindUnknown.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	cmd := Command{Raw: line}

	for _, rule := range prefixRules {
		if !strings.HasPrefix(line, rule.prefix) {
			continue
		}
		cmd.Kind = rule.kind
		arg := strings.TrimSpace(line[len(rule.prefix):])
		if rule.number {
			cmd.Number, cmd.Valid = parseNumber(arg)
		} else {
			cmd.Addr, cmd.Valid = parseDottedQuad(arg)
		}
		return cmd
	}

	cmd.Valid = true
	switch {
	case line == "GET":
		cmd.Kind = KindGet
	case line == "IP":
		cmd.Kind = KindShowIP
	case line == "MAC":
		cmd.Kind = KindShowMAC
	case strings.Contains(line, "HELP"):
		cmd.Kind = KindHelp
	case strings.Contains(line, "GET"):
		cmd.Kind = KindGet
	default:
		cmd.Kind = KindUnknown
		cmd.Valid = false
	}
	return cmd
}

// parseDottedQuad accepts exactly four decimal octets without leading zeros.
func parseDottedQuad(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

// parseNumber accepts an unsigned decimal and nothing else.
func parseNumber(s string) (int, bool) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
