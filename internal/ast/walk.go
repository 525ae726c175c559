package ast

import "sort"

// FreeVariables returns the names of local variables read by an
// expression, in first-use order without duplicates. The code
// generator uses this to compute the captured environment of a lambda.
func FreeVariables(e Expr) []string {
	var out []string
	seen := make(map[string]struct{})
	collectVariables(e, seen, &out)
	return out
}

func record(name string, seen map[string]struct{}, out *[]string) {
	if _, ok := seen[name]; ok {
		return
	}
	seen[name] = struct{}{}
	*out = append(*out, name)
}

func collectVariables(e Expr, seen map[string]struct{}, out *[]string) {
	switch e := e.(type) {
	case nil:
		return
	case *LocalVariable:
		record(e.Name, seen, out)
	case *AbstractVariable:
		record(e.Name, seen, out)
	case *UnOp:
		collectVariables(e.Operand, seen, out)
	case *BinOp:
		collectVariables(e.Lhs, seen, out)
		collectVariables(e.Rhs, seen, out)
	case *IndexOf:
		collectVariables(e.Src, seen, out)
		collectVariables(e.Index, seen, out)
	case *ListAccess:
		collectVariables(e.Src, seen, out)
		collectVariables(e.Index, seen, out)
	case *StringAccess:
		collectVariables(e.Src, seen, out)
		collectVariables(e.Index, seen, out)
	case *MapAccess:
		collectVariables(e.Src, seen, out)
		collectVariables(e.Index, seen, out)
	case *LengthOf:
		collectVariables(e.Src, seen, out)
	case *StringLength:
		collectVariables(e.Src, seen, out)
	case *ListLength:
		collectVariables(e.Src, seen, out)
	case *SetLength:
		collectVariables(e.Src, seen, out)
	case *MapLength:
		collectVariables(e.Src, seen, out)
	case *SubList:
		collectVariables(e.Src, seen, out)
		collectVariables(e.Start, seen, out)
		collectVariables(e.End, seen, out)
	case *SubString:
		collectVariables(e.Src, seen, out)
		collectVariables(e.Start, seen, out)
		collectVariables(e.End, seen, out)
	case *Cast:
		collectVariables(e.Operand, seen, out)
	case *FieldAccess:
		collectVariables(e.Src, seen, out)
	case *RecordLit:
		// fields are visited in sorted name order
		names := make([]string, 0, len(e.Fields))
		for n := range e.Fields {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			collectVariables(e.Fields[n], seen, out)
		}
	case *TupleLit:
		for _, c := range e.Elements {
			collectVariables(c, seen, out)
		}
	case *ListLit:
		for _, c := range e.Elements {
			collectVariables(c, seen, out)
		}
	case *SetLit:
		for _, c := range e.Elements {
			collectVariables(c, seen, out)
		}
	case *MapLit:
		for _, p := range e.Pairs {
			collectVariables(p.Key, seen, out)
			collectVariables(p.Value, seen, out)
		}
	case *New:
		collectVariables(e.Operand, seen, out)
	case *Dereference:
		collectVariables(e.Src, seen, out)
	case *RationalLVal:
		collectVariables(e.Numerator, seen, out)
		collectVariables(e.Denominator, seen, out)
	case *AbstractInvoke:
		collectVariables(e.Receiver, seen, out)
		for _, a := range e.Args {
			collectVariables(a, seen, out)
		}
	case *FunctionCall:
		for _, a := range e.Args {
			collectVariables(a, seen, out)
		}
	case *MethodCall:
		for _, a := range e.Args {
			collectVariables(a, seen, out)
		}
	case *IndirectFunctionCall:
		collectVariables(e.Src, seen, out)
		for _, a := range e.Args {
			collectVariables(a, seen, out)
		}
	case *IndirectMethodCall:
		collectVariables(e.Src, seen, out)
		for _, a := range e.Args {
			collectVariables(a, seen, out)
		}
	case *Lambda:
		// names bound by the lambda's own parameters are not free
		inner := make(map[string]struct{}, len(seen)+len(e.Parameters))
		for k := range seen {
			inner[k] = struct{}{}
		}
		for _, p := range e.Parameters {
			inner[p.Name] = struct{}{}
		}
		var innerOut []string
		collectVariables(e.Body, inner, &innerOut)
		for _, n := range innerOut {
			record(n, seen, out)
		}
	case *Comprehension:
		bound := make(map[string]struct{}, len(seen)+len(e.Sources))
		for k := range seen {
			bound[k] = struct{}{}
		}
		for _, src := range e.Sources {
			collectVariables(src.Src, seen, out)
			bound[src.Name] = struct{}{}
		}
		var innerOut []string
		collectVariables(e.Condition, bound, &innerOut)
		collectVariables(e.Value, bound, &innerOut)
		for _, n := range innerOut {
			record(n, seen, out)
		}
	}
}
