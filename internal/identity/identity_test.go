// ABOUTME: Tests for session and task identifier derivation
// ABOUTME: Pins the digests to known values so stored identifiers stay valid

package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionUID_KnownDigest(t *testing.T) {
	assert.Equal(t, "0a416c7143b744bf62c1f13f09d0de53", SessionUID("1.2.3.4", "AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", SessionUID("", ""))
}

func TestSessionUID_NoSeparator(t *testing.T) {
	// only the concatenation matters
	assert.Equal(t, SessionUID("10.0.0.1", ""), SessionUID("10.0.", "0.1"))
	assert.Equal(t, "190dafab69706a67221c1226360de7dc", SessionUID("10.0.0.1", ""))
}

func TestSessionUID_Stable(t *testing.T) {
	pairs := [][2]string{
		{"1.2.3.4", "AA:BB:CC:DD:EE:FF"},
		{"192.168.1.10", "00:11:22:33:44:55"},
		{"::1", ""},
	}
	for _, p := range pairs {
		assert.Equal(t, SessionUID(p[0], p[1]), SessionUID(p[0], p[1]))
		assert.Len(t, SessionUID(p[0], p[1]), 32)
	}
}

func TestTaskUID_KnownDigest(t *testing.T) {
	issued := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "71bdc49558af1d5b504d7818a80a2b22", TaskUID("abc", "portscan", issued))
}

func TestTaskUID_TimeIsPartOfIdentity(t *testing.T) {
	issued := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	a := TaskUID("session", "screenshot", issued)
	b := TaskUID("session", "screenshot", issued.Add(time.Second))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, TaskUID("session", "screenshot", issued.Add(300*time.Millisecond)))
}

func TestCtime(t *testing.T) {
	ts := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "Mon Jan  2 15:04:05 2006", Ctime(ts))

	ts = time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mon Oct 19 08:30:00 2026", Ctime(ts))

	// rendered in UTC regardless of the input zone
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "Mon Jan  2 15:04:05 2006", Ctime(time.Date(2006, time.January, 2, 10, 4, 5, 0, est)))
}
