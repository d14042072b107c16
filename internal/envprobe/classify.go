package envprobe

import (
	"regexp"
	"strings"
)

var (
	// undefinedSymbolRe matches the dynamic-loader failure a native
	// extension raises when it was built against a different runtime.
	undefinedSymbolRe = regexp.MustCompile(`undefined symbol:?\s*([A-Za-z0-9_@.]+)`)

	// runtimeInternalSymbolRe recognizes mangled symbols from torch's
	// internal namespaces (c10, at, torch), the usual culprits in an
	// ABI mismatch.
	runtimeInternalSymbolRe = regexp.MustCompile(`_ZN\w*?(3c10|2at|5torch)|\b(c10|at|torch)::`)
)

// classifyFailure maps raw interpreter output from a failed probe onto a
// tagged ProbeFailure. Classification happens here, once, so nothing
// downstream has to sniff error strings.
func classifyFailure(output string, err error) *ProbeFailure {
	msg := strings.TrimSpace(output)
	if msg == "" && err != nil {
		msg = err.Error()
	}

	if m := undefinedSymbolRe.FindStringSubmatch(msg); m != nil {
		return &ProbeFailure{Kind: FailureSymbol, Message: msg, Symbol: strings.TrimSuffix(m[1], ".")}
	}
	if strings.Contains(msg, "ModuleNotFoundError") || strings.Contains(msg, "No module named") {
		return &ProbeFailure{Kind: FailureMissing, Message: msg}
	}
	return &ProbeFailure{Kind: FailureUnexpected, Message: msg}
}

// RuntimeInternalSymbol reports whether sym looks like a torch-internal
// symbol. Informational only: an undefined symbol at load time is an ABI
// mismatch either way, but naming the namespace helps the operator.
func RuntimeInternalSymbol(sym string) bool {
	return runtimeInternalSymbolRe.MatchString(sym)
}
