// Package patch holds partial column updates that tell an absent column from an explicit NULL.
package patch

// Patch is an ordered set of column assignments.
// A column set to nil is written as NULL; a column that was never set is left untouched.
type Patch struct {
	cols   []string
	values map[string]any
}

// New returns an empty patch
func New() *Patch {
	return &Patch{values: make(map[string]any)}
}

// FromMap builds a patch from m. Column order follows the iteration order of keys.
func FromMap(m map[string]any, keys ...string) *Patch {
	p := New()
	for _, k := range keys {
		if v, ok := m[k]; ok {
			p.Set(k, v)
		}
	}
	return p
}

// Set assigns value to col. A later Set on the same column overwrites the value and keeps the position.
func (p *Patch) Set(col string, value any) *Patch {
	if _, ok := p.values[col]; !ok {
		p.cols = append(p.cols, col)
	}
	p.values[col] = value
	return p
}

// SetNull assigns an explicit NULL to col
func (p *Patch) SetNull(col string) *Patch {
	return p.Set(col, nil)
}

// SetIf assigns value only when ok is true
func (p *Patch) SetIf(ok bool, col string, value any) *Patch {
	if ok {
		p.Set(col, value)
	}
	return p
}

// SetNonEmpty assigns a string value only when it is not empty
func (p *Patch) SetNonEmpty(col string, value string) *Patch {
	return p.SetIf(value != "", col, value)
}

// SetOpt assigns *v when v is non-nil and leaves col absent otherwise
func SetOpt[T any](p *Patch, col string, v *T) *Patch {
	if v != nil {
		p.Set(col, *v)
	}
	return p
}

// Has reports whether col is present, including explicit NULLs
func (p *Patch) Has(col string) bool {
	_, ok := p.values[col]
	return ok
}

// IsNull reports whether col is present and set to NULL
func (p *Patch) IsNull(col string) bool {
	v, ok := p.values[col]
	return ok && v == nil
}

// Get returns the value of col and whether it is present
func (p *Patch) Get(col string) (any, bool) {
	v, ok := p.values[col]
	return v, ok
}

// Without returns a copy of p with cols removed
func (p *Patch) Without(cols ...string) *Patch {
	drop := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		drop[c] = struct{}{}
	}
	out := New()
	for _, c := range p.cols {
		if _, ok := drop[c]; ok {
			continue
		}
		out.Set(c, p.values[c])
	}
	return out
}

// Merge returns a copy of p overlaid with o. Columns present in o win.
func (p *Patch) Merge(o *Patch) *Patch {
	out := p.Without()
	if o == nil {
		return out
	}
	for _, c := range o.cols {
		out.Set(c, o.values[c])
	}
	return out
}

// Columns returns the present columns in assignment order
func (p *Patch) Columns() []string {
	return append([]string(nil), p.cols...)
}

// Map returns the assignments as a map suitable for gorm Updates/Create
func (p *Patch) Map() map[string]any {
	m := make(map[string]any, len(p.cols))
	for _, c := range p.cols {
		m[c] = p.values[c]
	}
	return m
}

// Len returns the number of present columns
func (p *Patch) Len() int {
	return len(p.cols)
}
