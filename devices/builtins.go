package devices

type BuiltInKind = string

const (
	NullKind   BuiltInKind = "null"
	BufferKind BuiltInKind = "buffer"
	HTTPKind   BuiltInKind = "http"
)

// RegisterBuiltins registers all built-in kinds by default or only the
// specific ones if kinds are provided.
func (r *Registry) RegisterBuiltins(kinds ...BuiltInKind) {
	if len(kinds) == 0 {
		kinds = append(kinds, NullKind, BufferKind, HTTPKind)
	}

	for _, kind := range kinds {
		switch kind {
		case NullKind:
			r.Register(NullKind, ProviderFunc(newNull))
		case BufferKind:
			r.Register(BufferKind, ProviderFunc(newBuffer))
		case HTTPKind:
			r.Register(HTTPKind, &HTTPProvider{Client: defaultHTTPClient})
		}
	}
}
