// Package sipconf patches SIP trunk credentials into an Asterisk sip.conf.
// The file format allows duplicate keys and order-sensitive sections, so the
// rewrite works line by line instead of going through an ini parser.
package sipconf

import (
	"fmt"
	"os"
	"strings"
)

const trunkSection = "[voipms-trunk]"

// Patch rewrites the registration line and the trunk section of the sip.conf
// at path with the given credentials. Lines outside the trunk section (other
// than `register =>`) are left untouched.
func Patch(path, username, password, server string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read sip config: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))
	inTrunk := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "register =>"):
			out = append(out, fmt.Sprintf("register => %s:%s@%s/%s", username, password, server, username))
		case trimmed == trunkSection:
			inTrunk = true
			out = append(out, line)
		case inTrunk && strings.HasPrefix(trimmed, "[") && trimmed != trunkSection:
			inTrunk = false
			out = append(out, line)
		case inTrunk && strings.HasPrefix(line, "host="):
			out = append(out, "host="+server)
		case inTrunk && strings.HasPrefix(line, "fromdomain="):
			out = append(out, "fromdomain="+server)
		case inTrunk && strings.HasPrefix(line, "username="):
			out = append(out, "username="+username)
		case inTrunk && strings.HasPrefix(line, "fromuser="):
			out = append(out, "fromuser="+username)
		case inTrunk && strings.HasPrefix(line, "secret="):
			out = append(out, "secret="+password)
		default:
			out = append(out, line)
		}
	}

	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o640); err != nil {
		return fmt.Errorf("failed to write sip config: %w", err)
	}
	return nil
}
