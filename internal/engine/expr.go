package engine

// Expr is one node of a deferred computation graph. Building a graph is
// pure bookkeeping; nothing is fetched or computed until an Evaluator is
// asked for a result. The JSON form is the wire format sent to the compute
// service.
type Expr struct {
	Op     string         `json:"op"`
	Args   map[string]any `json:"args,omitempty"`
	Input  *Expr          `json:"input,omitempty"`
	Inputs []*Expr        `json:"inputs,omitempty"`
}

func unary(op string, input *Expr, args map[string]any) *Expr {
	return &Expr{Op: op, Input: input, Args: args}
}

func nary(op string, inputs []*Expr, args map[string]any) *Expr {
	return &Expr{Op: op, Inputs: inputs, Args: args}
}
