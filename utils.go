package go_hostctl

import "strings"

// ObfuscateUsername masks the middle of an account name for logging. The
// domain part of DOMAIN\user and user@domain forms is kept as is.
func ObfuscateUsername(username string) string {
	if idx := strings.LastIndexByte(username, '\\'); idx >= 0 {
		return username[:idx+1] + ObfuscateUsername(username[idx+1:])
	}

	if strings.Contains(username, "@") {
		parts := strings.SplitN(username, "@", 2)
		if len(parts) == 2 {
			return ObfuscateUsername(parts[0]) + "@" + parts[1]
		}
	}

	if len(username) < 5 {
		return username
	}

	return username[:2] + strings.Repeat("*", len(username)-4) + username[len(username)-2:]
}
