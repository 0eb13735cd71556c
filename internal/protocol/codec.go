// Package protocol implements the line-oriented wire codec shared by every
// bank node: parsing an incoming command line into a code and argument list,
// parsing/formatting "account/bank_code" addresses, and formatting outgoing
// responses.
package protocol

import (
	"strings"
)

// Command is a parsed request line: an upper-cased command code and its
// whitespace-separated arguments, in order.
type Command struct {
	Code string
	Args []string
}

// ParseCommand splits a raw line (already stripped of its CRLF terminator)
// into a Command. An empty or whitespace-only line yields a Command with an
// empty Code, which callers treat as "unknown command".
func ParseCommand(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{
		Code: strings.ToUpper(fields[0]),
		Args: fields[1:],
	}
}

// ParseAddress splits an "account/bank_code" address on its single slash.
// ok is false unless the address contains exactly one slash; account and
// bankCode are trimmed of surrounding whitespace but may still be empty
// strings when ok is true (e.g. "/ABC" or "123/").
func ParseAddress(addr string) (account, bankCode string, ok bool) {
	parts := strings.Split(addr, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// FormatAddress reassembles an address from its parts.
func FormatAddress(account, bankCode string) string {
	return account + "/" + bankCode
}

// IsCommandForUs reports whether a relay-eligible command whose first
// argument is addr should be handled locally by a bank whose code is
// ourBankCode. An address that doesn't parse, or whose account or bank code
// half is empty once trimmed, is treated as "for us" — a malformed address is
// not a routing decision, it is a local validation failure the command layer
// will reject.
func IsCommandForUs(ourBankCode, addr string) bool {
	account, bankCode, ok := ParseAddress(addr)
	if !ok || account == "" || bankCode == "" {
		return true
	}
	return bankCode == ourBankCode
}

// FormatResponse builds a "CODE text\r\n" response line. An empty text omits
// the trailing space, producing just "CODE\r\n".
func FormatResponse(code, text string) string {
	if text == "" {
		return code + "\r\n"
	}
	return code + " " + text + "\r\n"
}

// ErrorCode is the wire code every error response carries.
const ErrorCode = "ER"

// FormatError builds an "ER text\r\n" response line.
func FormatError(text string) string {
	return FormatResponse(ErrorCode, text)
}
