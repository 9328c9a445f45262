package harness

import (
	"fmt"
	"strings"
)

// evaluate checks one assertion against a finished run.
func evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertTreeEquals:
		return assertTreeEquals(a, result)
	case AssertOpOrder:
		return assertOpOrder(a, result)
	case AssertOpCount:
		return assertOpCount(a, result)
	case AssertCommitCount:
		if got := len(result.Commits); got != a.Count {
			return fmt.Errorf("expected %d commits, got %d", a.Count, got)
		}
		return nil
	case AssertMutationCount:
		got := 0
		for _, c := range result.Commits {
			got += len(c.Mutations)
		}
		if got != a.Count {
			return fmt.Errorf("expected %d mutations, got %d", a.Count, got)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTreeEquals(a Assertion, result *Result) error {
	want := normalizeTree(a.Tree)
	got := normalizeTree(result.Tree)
	if want != got {
		return fmt.Errorf("tree mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
	return nil
}

// normalizeTree strips trailing whitespace per line and the final newline,
// so YAML block scalars compare cleanly against the host's tree form.
func normalizeTree(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// assertOpOrder checks that the listed op kinds appear in the call log in
// this relative order, other ops interleaving freely.
func assertOpOrder(a Assertion, result *Result) error {
	if len(a.Ops) == 0 {
		return fmt.Errorf("op_order needs at least one op")
	}
	i := 0
	for _, op := range result.Ops {
		if op == a.Ops[i] {
			i++
			if i == len(a.Ops) {
				return nil
			}
		}
	}
	return fmt.Errorf("ops %v not found in order (matched %d of %d) in %v", a.Ops, i, len(a.Ops), result.Ops)
}

func assertOpCount(a Assertion, result *Result) error {
	if a.Op == "" {
		return fmt.Errorf("op_count needs an op")
	}
	got := 0
	for _, op := range result.Ops {
		if op == a.Op {
			got++
		}
	}
	if got != a.Count {
		return fmt.Errorf("expected %d %q ops, got %d", a.Count, a.Op, got)
	}
	return nil
}
