package domain

// Message keys the kernel resolves through the translator. The kernel never
// embeds user-facing text.
const (
	KeyMandatory    = "form.error.mandatory"
	KeyTooLong      = "form.error.toolong"
	KeyInvalidInput = "form.error.invalidinput"
	KeyRetry        = "error.retry"
	KeyInternal     = "error.internal"
)

// MaxCascadeDepth is the longest trigger chain a rule set may contain: the
// changed field plus one re-evaluation pass.
const MaxCascadeDepth = 2
