package doctree

// Minimal collapses a selection to its minimal ancestor set: every
// address whose strict ancestor is also in the set is dropped, since
// replacing the ancestor already covers it. Duplicates collapse; the
// surviving addresses keep their input order. Minimal is idempotent.
func Minimal(addrs []Address) []Address {
	out := make([]Address, 0, len(addrs))
	seen := make(map[Address]bool, len(addrs))
	for _, a := range addrs {
		if seen[a] {
			continue
		}
		covered := false
		for _, b := range addrs {
			if b.IsAncestorOf(a) {
				covered = true
				break
			}
		}
		if !covered {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
