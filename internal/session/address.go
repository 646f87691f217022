package session

// ShortenAddress renders an address as 0x1234...abcd. Short inputs are
// returned unchanged.
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
