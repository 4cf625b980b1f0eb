package treefs

// Options tune a single read or write against a tree.
type Options struct {
	// IgnoreLinks returns a link found at the final path component instead
	// of resolving it. Links in intermediate components are always followed.
	IgnoreLinks bool
	// IgnorePermissions skips every read/write flag check. Frozen
	// directories still reject writes.
	IgnorePermissions bool
	// User is the acting identity used to resolve per-user overrides.
	User Owner
}
