package modsynth

import (
	"math"
	"slices"
)

type (
	// ParamKind is the declared type of a parameter value.
	ParamKind int

	// Param documents one parameter of a module and holds its current value.
	// Value is a float64 for Number, a string for Enum and File, and a bool
	// for Bool parameters.
	Param struct {
		ID       string
		Name     string
		Kind     ParamKind
		Min      float64 // minimum of a Number, inclusive
		Max      float64 // maximum of a Number, inclusive
		Step     float64 // 0 means continuous
		SI       bool    // display with an SI prefix
		Unit     string  // display unit, e.g. "Hz" or "dB"
		Items    []Item  // choices of an Enum
		Value    any
		Disabled bool // the parameter currently has no effect and should not be edited
	}

	// Item is one choice of an Enum parameter.
	Item struct {
		Label string
		Value string
	}

	Params []Param
)

const (
	Number ParamKind = iota
	Enum
	Bool
	File
)

var paramKindNames = [...]string{"number", "enum", "bool", "file"}

func (k ParamKind) String() string {
	if k < 0 || int(k) >= len(paramKindNames) {
		return "unknown"
	}
	return paramKindNames[k]
}

// Coerce checks that v matches the declared kind of the parameter and returns
// the value the parameter would hold. Numbers are clamped to [Min, Max] and
// NaN is rejected, so a value that passes Coerce is always safe to hand to the
// sample-rate domain. Integer types are accepted for Number parameters.
func (p *Param) Coerce(v any) (any, bool) {
	switch p.Kind {
	case Number:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		case int:
			f = float64(x)
		default:
			return nil, false
		}
		if math.IsNaN(f) {
			return nil, false
		}
		return Clamp(f, p.Min, p.Max), true
	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		if len(p.Items) > 0 && !slices.ContainsFunc(p.Items, func(it Item) bool { return it.Value == s }) {
			return nil, false
		}
		return s, true
	case File:
		s, ok := v.(string)
		return s, ok
	case Bool:
		b, ok := v.(bool)
		return b, ok
	}
	return nil, false
}

// Float returns the value of a Number parameter, or 0 for other kinds.
func (p *Param) Float() float64 {
	f, _ := p.Value.(float64)
	return f
}

// String returns the value of an Enum or File parameter.
func (p *Param) String() string {
	s, _ := p.Value.(string)
	return s
}

// Bool returns the value of a Bool parameter.
func (p *Param) Bool() bool {
	b, _ := p.Value.(bool)
	return b
}

// Index returns the position of the current Enum value in Items, or -1.
func (p *Param) Index() int {
	s := p.String()
	return slices.IndexFunc(p.Items, func(it Item) bool { return it.Value == s })
}

// Find returns the parameter with the given id.
func (ps Params) Find(id string) (*Param, bool) {
	for i := range ps {
		if ps[i].ID == id {
			return &ps[i], true
		}
	}
	return nil, false
}

// Float returns the value of a Number parameter, or 0 when it is missing.
func (ps Params) Float(id string) float64 {
	if p, ok := ps.Find(id); ok {
		return p.Float()
	}
	return 0
}

// String returns the value of an Enum or File parameter, or "" when missing.
func (ps Params) String(id string) string {
	if p, ok := ps.Find(id); ok {
		return p.String()
	}
	return ""
}

// SetDisabled toggles the disabled flag of a parameter; missing ids are ignored.
func (ps Params) SetDisabled(id string, disabled bool) {
	if p, ok := ps.Find(id); ok {
		p.Disabled = disabled
	}
}

// Copy returns a deep copy of the parameters.
func (ps Params) Copy() Params {
	ret := make(Params, len(ps))
	copy(ret, ps)
	for i := range ret {
		ret[i].Items = slices.Clone(ps[i].Items)
	}
	return ret
}

// Items builds Enum choices whose labels equal their values.
func Items(values ...string) []Item {
	ret := make([]Item, len(values))
	for i, v := range values {
		ret[i] = Item{Label: v, Value: v}
	}
	return ret
}

// Format returns the value of the parameter for display, with its unit.
func (p *Param) Format() string {
	switch p.Kind {
	case Number:
		if p.SI {
			return FormatSI(p.Float(), 3) + p.Unit
		}
		s := formatFloat(p.Float())
		if p.Unit != "" {
			s += " " + p.Unit
		}
		return s
	case Bool:
		if p.Bool() {
			return "on"
		}
		return "off"
	case Enum:
		if i := p.Index(); i >= 0 {
			return p.Items[i].Label
		}
	}
	return p.String()
}
