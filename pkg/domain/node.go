package domain

// Kind identifies a template variant. The values double as the `kind` field
// of definition files.
type Kind string

const (
	// KindConstant holds time-independent channel values.
	KindConstant Kind = "constant"
	// KindFunction holds channel values that may depend on the time variable.
	KindFunction Kind = "function"
	// KindSequence plays its children one after another.
	KindSequence Kind = "sequence"
	// KindRepetition plays its body a fixed number of times.
	KindRepetition Kind = "repetition"
	// KindForLoop plays its body once per value of a loop index.
	KindForLoop Kind = "for_loop"
	// KindMapping renames the parameters and channels of its body.
	KindMapping Kind = "mapping"
)

// Kinds lists every variant in a stable order.
var Kinds = []Kind{KindConstant, KindFunction, KindSequence, KindRepetition, KindForLoop, KindMapping}

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
