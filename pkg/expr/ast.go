package expr

// Node is one variant of the criterion expression AST: Literal, Path,
// Length, Cmp, And, or Or. Interpreted directly against a Value tree —
// there is no intermediate string-based or reflective evaluation step.
type Node interface {
	node()
}

// Literal is a constant: number, string, bool, null, "[]", or "{}".
type Literal struct {
	Value Value
}

func (Literal) node() {}

// Path is a dotted identifier chain to be resolved against the metrics
// record (with rooting rules applied by the evaluator, not the parser).
type Path struct {
	Segments []string
}

func (Path) node() {}

// Length wraps a Path with a trailing ".length" accessor.
type Length struct {
	Path Path
}

func (Length) node() {}

// CmpOp is one of the six comparison operators.
type CmpOp string

const (
	CmpEq CmpOp = "=="
	CmpNe CmpOp = "!="
	CmpGt CmpOp = ">"
	CmpGe CmpOp = ">="
	CmpLt CmpOp = "<"
	CmpLe CmpOp = "<="
)

// Cmp compares two atoms.
type Cmp struct {
	Op    CmpOp
	Left  Node
	Right Node
}

func (Cmp) node() {}

// And is a conjunction; BUT parses to the same node (it's a synonym).
type And struct {
	Left  Node
	Right Node
}

func (And) node() {}

// Or is a disjunction.
type Or struct {
	Left  Node
	Right Node
}

func (Or) node() {}
