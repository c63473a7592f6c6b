package ir

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// WriteDot renders the control-flow graph of fn in Graphviz DOT. Each node
// lists the block's instructions; conditional edges are labelled T and F.
func WriteDot(w io.Writer, fn *Function) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "digraph \"%s\" {\n", dotEscaper.Replace(fn.Name))
	fmt.Fprintf(bw, "  node [shape=box, fontname=\"monospace\"];\n")

	for _, bb := range fn.Blocks {
		var label strings.Builder
		label.WriteString(bb.Label + ":\\l")
		for _, inst := range bb.Instructions {
			label.WriteString("  " + dotEscaper.Replace(inst.String()) + "\\l")
		}
		if bb.Terminator != nil {
			label.WriteString("  " + dotEscaper.Replace(bb.Terminator.String()) + "\\l")
		}

		fmt.Fprintf(bw, "  \"%s\" [label=\"%s\"];\n", bb.Label, label.String())
	}

	for _, bb := range fn.Blocks {
		switch t := bb.Terminator.(type) {
		case *Br:
			fmt.Fprintf(bw, "  \"%s\" -> \"%s\";\n", bb.Label, t.Target.Label)
		case *CondBr:
			fmt.Fprintf(bw, "  \"%s\" -> \"%s\" [label=\"T\"];\n", bb.Label, t.Then.Label)
			fmt.Fprintf(bw, "  \"%s\" -> \"%s\" [label=\"F\"];\n", bb.Label, t.Else.Label)
		}
	}

	fmt.Fprintf(bw, "}\n")
	return bw.Flush()
}
