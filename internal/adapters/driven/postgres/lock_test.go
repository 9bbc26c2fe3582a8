package postgres

import "testing"

func TestLockKey(t *testing.T) {
	setup := lockKey("setup")

	if lockKey("setup") != setup {
		t.Error("expected the same name to hash to the same key")
	}
	if lockKey("migrate") == setup {
		t.Error("expected different names to hash to different keys")
	}
}
