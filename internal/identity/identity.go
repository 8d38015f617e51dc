// ABOUTME: Deterministic identifiers for sessions and tasks
// ABOUTME: MD5 hex digests kept byte-compatible with identifiers already stored in existing databases

package identity

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// CtimeLayout matches the C ctime() rendering, e.g. "Mon Jan  2 15:04:05 2006".
const CtimeLayout = time.ANSIC

// SessionUID derives the stable uid of an agent from its public IP and MAC
// address. The two values are concatenated without a separator.
func SessionUID(publicIP, macAddress string) string {
	return digest(publicIP + macAddress)
}

// TaskUID derives the uid of a newly issued task. The issue time is part of
// the input, so the same task text issued at different seconds never collides.
func TaskUID(session, task string, issued time.Time) string {
	return digest(session + task + Ctime(issued))
}

// Ctime renders t in UTC using the ctime layout.
func Ctime(t time.Time) string {
	return t.UTC().Format(CtimeLayout)
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
