package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"simple", "BC", Command{Code: "BC"}},
		{"lowercase code", "bc", Command{Code: "BC"}},
		{"with args", "AD 12345/ABC 100", Command{Code: "AD", Args: []string{"12345/ABC", "100"}}},
		{"extra whitespace", "  AB   12345/ABC  ", Command{Code: "AB", Args: []string{"12345/ABC"}}},
		{"empty", "", Command{}},
		{"whitespace only", "   ", Command{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommand(tt.line)
			require.Equal(t, tt.want.Code, got.Code)
			require.Equal(t, tt.want.Args, got.Args)
		})
	}
}

func TestParseAddress(t *testing.T) {
	account, bankCode, ok := ParseAddress("12345/ABC")
	require.True(t, ok)
	require.Equal(t, "12345", account)
	require.Equal(t, "ABC", bankCode)

	account, bankCode, ok = ParseAddress(" 12345 / ABC ")
	require.True(t, ok)
	require.Equal(t, "12345", account)
	require.Equal(t, "ABC", bankCode)

	_, _, ok = ParseAddress("12345")
	require.False(t, ok)

	_, _, ok = ParseAddress("12345/ABC/extra")
	require.False(t, ok)

	account, bankCode, ok = ParseAddress("/ABC")
	require.True(t, ok)
	require.Equal(t, "", account)
	require.Equal(t, "ABC", bankCode)
}

func TestFormatAddressRoundTrip(t *testing.T) {
	addr := FormatAddress("12345", "ABC")
	account, bankCode, ok := ParseAddress(addr)
	require.True(t, ok)
	require.Equal(t, "12345", account)
	require.Equal(t, "ABC", bankCode)
}

func TestIsCommandForUs(t *testing.T) {
	require.True(t, IsCommandForUs("ABC", "12345/ABC"))
	require.False(t, IsCommandForUs("ABC", "12345/XYZ"))
	require.True(t, IsCommandForUs("ABC", "malformed"))
	require.True(t, IsCommandForUs("ABC", "/XYZ"))
	require.True(t, IsCommandForUs("ABC", "12345/"))
}

func TestFormatResponse(t *testing.T) {
	require.Equal(t, "BC ABC\r\n", FormatResponse("BC", "ABC"))
	require.Equal(t, "AD\r\n", FormatResponse("AD", ""))
	require.Equal(t, "ER Account not found\r\n", FormatError("Account not found"))
}
