package value

// Bool is the type of the `true` and `false` literals.
type Bool bool

var _ Value = Bool(false)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (Bool) Type() string { return "bool" }
