package net

// rateLimiter counts packets per wall-clock second. Owned by one reader
// goroutine, so it needs no lock.
type rateLimiter struct {
	limit  int   // 0 = unlimited
	count  int   // packets in the current second
	second int64 // unix second count refers to
}

// allow records one packet at unix second now and reports whether the
// session is still within its limit.
func (l *rateLimiter) allow(now int64) bool {
	if l.limit <= 0 {
		return true
	}
	if now != l.second {
		l.second, l.count = now, 0
	}
	l.count++
	return l.count <= l.limit
}
