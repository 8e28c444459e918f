package pysyntax

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Constructs the grammar accepts for error recovery or Python 2 support,
// but which CPython 3 rejects at compile time.
const (
	tsPrintStatement = "print_statement"
	tsExecStatement  = "exec_statement"
	tsExceptClause   = "except_clause"
	tsParameters     = "parameters"
	tsLambdaParams   = "lambda_parameters"
)

const (
	msgPrintCall      = "Missing parentheses in call to 'print'"
	msgExecCall       = "Missing parentheses in call to 'exec'"
	msgExceptComma    = "multiple exception types must be parenthesized"
	msgDefaultOrdered = "parameter without a default follows parameter with a default"
)

// checkGrammar walks the CST in source order and reports the first
// construct that parses but is not valid Python 3.
func checkGrammar(path string, n sitter.Node) *SyntaxError {
	if msg, bad, found := grammarViolation(n); found {
		start := bad.StartPoint()

		return &SyntaxError{
			Path:   path,
			Msg:    msg,
			Line:   int(start.Row) + 1,
			Column: int(start.Column) + 1,
		}
	}

	for idx := range n.ChildCount() {
		child := n.Child(idx)
		if child.IsNull() {
			continue
		}

		if err := checkGrammar(path, child); err != nil {
			return err
		}
	}

	return nil
}

func grammarViolation(n sitter.Node) (string, sitter.Node, bool) {
	switch n.Type() {
	case tsPrintStatement:
		return msgPrintCall, n, true
	case tsExecStatement:
		return msgExecCall, n, true
	case tsExceptClause:
		// "except E, e:" keeps the comma as a direct child; a parenthesized
		// tuple of types nests it.
		for idx := range n.ChildCount() {
			child := n.Child(idx)
			if !child.IsNull() && child.Type() == "," {
				return msgExceptComma, child, true
			}
		}
	case tsParameters, tsLambdaParams:
		if bad, found := nonDefaultAfterDefault(n); found {
			return msgDefaultOrdered, bad, true
		}
	}

	return "", sitter.Node{}, false
}

// nonDefaultAfterDefault finds a positional parameter without a default that
// follows one with a default. A star parameter or bare "*" ends the
// positional group; "/" does not.
func nonDefaultAfterDefault(params sitter.Node) (sitter.Node, bool) {
	seenDefault := false

	for idx := range params.NamedChildCount() {
		p := params.NamedChild(idx)
		if p.IsNull() {
			continue
		}

		switch p.Type() {
		case tsDefaultParam, tsTypedDefault:
			seenDefault = true
		case tsListSplat, tsDictSplat, tsKeywordSep:
			seenDefault = false
		case tsTypedParam:
			if isStarParameter(p) {
				seenDefault = false

				continue
			}

			if seenDefault {
				return p, true
			}
		case tsIdentifier:
			if seenDefault {
				return p, true
			}
		}
	}

	return sitter.Node{}, false
}

// isStarParameter reports whether a typed parameter annotates *args or **kwargs.
func isStarParameter(p sitter.Node) bool {
	if p.NamedChildCount() == 0 {
		return false
	}

	switch p.NamedChild(0).Type() {
	case tsListSplat, tsDictSplat:
		return true
	default:
		return false
	}
}
