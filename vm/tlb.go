package vm

// TLB hardware is a named external collaborator (spec.md §1): this
// kernel core never talks to real hardware, only to these two hooks,
// settable via SetTlbHooks. Tests install counting/recording stand-ins
// in place of the default no-ops so invalidate-on-switch and
// load-on-fault can be asserted without real hardware.

var tlbInvalidateAll = func() {}
var tlbLoad = func(vpn, pfn uintptr) {}

/// SetTlbHooks installs the TLB hardware collaborator's two entry
/// points. Passing nil for either leaves that hook unchanged.
func SetTlbHooks(invalidateAll func(), load func(vpn, pfn uintptr)) {
	if invalidateAll != nil {
		tlbInvalidateAll = invalidateAll
	}
	if load != nil {
		tlbLoad = load
	}
}

/// TlbInvalidateAll invokes the installed invalidate-all hook.
func TlbInvalidateAll() {
	tlbInvalidateAll()
}

/// TlbLoad invokes the installed load hook with one VPN->PFN mapping.
func TlbLoad(vpn, pfn uintptr) {
	tlbLoad(vpn, pfn)
}
