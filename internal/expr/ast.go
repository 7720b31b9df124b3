package expr

// Node is an expression tree node.
type Node interface {
	node()
}

type (
	// Literal is a constant number, string, bool or null.
	Literal struct {
		Value Value
	}

	// Ident is a name resolved in the Env.
	Ident struct {
		Name string
	}

	// ListLit is a list display such as ["a", "b"].
	ListLit struct {
		Elems []Node
	}

	// Unary is "not", "-" or "+" applied to X.
	Unary struct {
		Op string
		X  Node
	}

	// Binary is an arithmetic operation.
	Binary struct {
		Op   string
		X, Y Node
	}

	// Logical is a short-circuit "and" / "or".
	Logical struct {
		Op   string
		X, Y Node
	}

	// Compare is a comparison chain: Operands[0] Ops[0] Operands[1] ...
	Compare struct {
		Ops      []string
		Operands []Node
	}

	// Call applies Fn to Args.
	Call struct {
		Fn   Node
		Args []Node
	}

	// Member is X.Name.
	Member struct {
		X    Node
		Name string
	}

	// Index is X[Key].
	Index struct {
		X, Key Node
	}
)

func (*Literal) node() {}
func (*Ident) node()   {}
func (*ListLit) node() {}
func (*Unary) node()   {}
func (*Binary) node()  {}
func (*Logical) node() {}
func (*Compare) node() {}
func (*Call) node()    {}
func (*Member) node()  {}
func (*Index) node()   {}

// Identifiers returns the free identifiers referenced by n, in first-use
// order. Member names are not included.
func Identifiers(n Node) []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *ListLit:
			for _, e := range n.Elems {
				walk(e)
			}
		case *Unary:
			walk(n.X)
		case *Binary:
			walk(n.X)
			walk(n.Y)
		case *Logical:
			walk(n.X)
			walk(n.Y)
		case *Compare:
			for _, o := range n.Operands {
				walk(o)
			}
		case *Call:
			walk(n.Fn)
			for _, a := range n.Args {
				walk(a)
			}
		case *Member:
			walk(n.X)
		case *Index:
			walk(n.X)
			walk(n.Key)
		}
	}
	walk(n)
	return names
}
