package value

// Nil is the value of the `nil` literal.
type Nil struct{}

var _ Value = Nil{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }
