package ledger

// GetFilter describes a flexible read. Verb is required; every other field
// narrows the result when set. The filter travels as a single structured
// variable and is never validated locally: illegal verbs or timestamps are
// reported by the server.
type GetFilter struct {
	Verb      Verb    `json:"verb"`
	Key       *string `json:"key,omitempty"`
	Value     *string `json:"value,omitempty"`
	ContextID *string `json:"context_id,omitempty"`
	Limit     *int    `json:"limit,omitempty"`
	Offset    *int    `json:"offset,omitempty"`
	Since     *string `json:"since,omitempty"`
	Until     *string `json:"until,omitempty"`
}

// NewFilter returns a filter matching verb with no further constraints.
func NewFilter(verb Verb) GetFilter {
	return GetFilter{Verb: verb}
}

// WithKey returns a copy of f restricted to key.
func (f GetFilter) WithKey(key string) GetFilter {
	f.Key = &key
	return f
}

// WithValue returns a copy of f restricted to value.
func (f GetFilter) WithValue(value string) GetFilter {
	f.Value = &value
	return f
}

// WithContext returns a copy of f restricted to contextID.
func (f GetFilter) WithContext(contextID string) GetFilter {
	f.ContextID = &contextID
	return f
}

// WithPage returns a copy of f with limit and offset set verbatim.
func (f GetFilter) WithPage(limit, offset int) GetFilter {
	f.Limit = &limit
	f.Offset = &offset
	return f
}

// WithLimit returns a copy of f with limit set verbatim.
func (f GetFilter) WithLimit(limit int) GetFilter {
	f.Limit = &limit
	return f
}

// WithOffset returns a copy of f with offset set verbatim.
func (f GetFilter) WithOffset(offset int) GetFilter {
	f.Offset = &offset
	return f
}

// WithRange returns a copy of f bounded by since and until. Empty bounds are
// left unset.
func (f GetFilter) WithRange(since, until string) GetFilter {
	if since != "" {
		f.Since = &since
	}
	if until != "" {
		f.Until = &until
	}
	return f
}
