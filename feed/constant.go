package feed

func init() {
	MustRegister(&ConstantFeed{Char: 't'})
}

// ConstantFeed fabricates the same byte forever, the default being a 't'
// every firing.
type ConstantFeed struct {
	Char byte
}

func (f *ConstantFeed) Name() string        { return "constant" }
func (f *ConstantFeed) Description() string { return "Constant synthetic character" }

func (f *ConstantFeed) Next() (byte, bool) {
	return f.Char, true
}
