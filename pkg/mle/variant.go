package mle

// Variant selects which parameters the shared Solver estimates versus
// fixes (spec section 4.3). The solver itself is a single fixed-point
// procedure configured by flags, not a type hierarchy per variant.
type Variant string

const (
	// Legacy estimates quality, bias and inconsistency; content
	// ambiguity is fixed at zero.
	Legacy Variant = "legacy"
	// ContentAware additionally estimates per-content ambiguity.
	ContentAware Variant = "content_aware"
	// ContentOblivious is numerically identical to Legacy; it exists to
	// also report standard errors under the same fixed-a assumption.
	ContentOblivious Variant = "content_oblivious"
	// SubjectOblivious estimates quality and content ambiguity only;
	// bias is fixed at zero and inconsistency fixed at one.
	SubjectOblivious Variant = "subject_oblivious"
)

type flags struct {
	estimateBias          bool
	estimateInconsistency bool
	estimateAmbiguity     bool
	// emitStd gates whether standardErrors reports any standard-error
	// vectors at all. Legacy and ContentOblivious estimate identical psi,
	// b, v, but Legacy does not report standard errors; ContentOblivious
	// exists specifically to additionally emit them (spec section 4.3).
	emitStd bool
}

func flagsFor(v Variant) flags {
	switch v {
	case Legacy:
		return flags{estimateBias: true, estimateInconsistency: true}
	case ContentOblivious:
		return flags{estimateBias: true, estimateInconsistency: true, emitStd: true}
	case ContentAware:
		return flags{estimateBias: true, estimateInconsistency: true, estimateAmbiguity: true, emitStd: true}
	case SubjectOblivious:
		return flags{estimateAmbiguity: true, emitStd: true}
	default:
		return flags{estimateBias: true, estimateInconsistency: true}
	}
}
