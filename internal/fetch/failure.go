package fetch

import "fmt"

// Kind classifies a fetch failure for user guidance.
type Kind string

const (
	// KindTimeout marks an attempt aborted by its deadline or by the caller.
	KindTimeout Kind = "timeout"
	// KindCORS marks a transport-level failure. In a browser these are
	// indistinguishable from same-origin refusals, so the label points the
	// user at the relay.
	KindCORS Kind = "cors"
	// KindHTTP marks an explicit non-2xx response.
	KindHTTP Kind = "http"
	// KindNetwork marks everything else.
	KindNetwork Kind = "network"
	// KindParse marks a manual-input payload that produced nothing usable.
	// The polling path never emits it: the parser tolerates bad lines.
	KindParse Kind = "parse"
)

// Failure is a classified fetch error.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
