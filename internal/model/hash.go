package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// EdgeHash returns the hex SHA-256 of the event's identity fields encoded as
// canonical JSON. The encoding matches json.dumps(fields, sort_keys=True,
// default=str) so hashes agree with events stored by earlier validators:
// ", " and ": " separators, ASCII-only output, null for absent values.
//
// ChainEvent carries delegate hotkeys as plain strings, so an empty delegate
// hotkey is hashed as null, the form the collector stores for a missing
// delegate. A reference record holding a literal "" would hash differently.
func EdgeHash(e *ChainEvent) string {
	fields := map[string]any{
		"coldkey_source":      e.ColdkeySource,
		"coldkey_destination": e.ColdkeyDestination,
		"edge_category":       e.EdgeCategory,
		"edge_type":           e.EdgeType,
		"block_number":        e.BlockNumber,
		"rao_amount":          e.RaoAmount,
	}
	if e.IsStaking() {
		fields["destination_net_uid"] = e.DestinationNetUID
		fields["source_net_uid"] = e.SourceNetUID
		fields["delegate_hotkey_source"] = optionalString(e.DelegateHotkeySource)
		fields["delegate_hotkey_destination"] = optionalString(e.DelegateHotkeyDestination)
	}

	sum := sha256.Sum256([]byte(canonicalJSON(fields)))
	return hex.EncodeToString(sum[:])
}

// optionalString maps "" to nil so an unset delegate hotkey encodes as null.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func canonicalJSON(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		writeString(&b, k)
		b.WriteString(": ")
		writeValue(&b, fields[k])
	}
	b.WriteByte('}')
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		writeString(b, val)
	case *string:
		if val == nil {
			b.WriteString("null")
			return
		}
		writeString(b, *val)
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case *int64:
		if val == nil {
			b.WriteString("null")
			return
		}
		b.WriteString(strconv.FormatInt(*val, 10))
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	default:
		writeString(b, fmt.Sprint(val))
	}
}

// writeString writes s as an ASCII-only JSON string literal.
func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20 || (r >= 0x7f && r < 0x10000):
				writeEscape(b, r)
			case r >= 0x10000:
				hi, lo := utf16.EncodeRune(r)
				writeEscape(b, hi)
				writeEscape(b, lo)
			default:
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

func writeEscape(b *strings.Builder, r rune) {
	const hexDigits = "0123456789abcdef"
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[(r>>12)&0xf])
	b.WriteByte(hexDigits[(r>>8)&0xf])
	b.WriteByte(hexDigits[(r>>4)&0xf])
	b.WriteByte(hexDigits[r&0xf])
}
