package vm

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, source string) (string, InterpretResult) {
	t.Helper()
	v := New()
	defer v.Free()
	var buf bytes.Buffer
	v.Out = &buf
	result := v.Interpret(source)
	return buf.String(), result
}

func TestArithmeticPrecedence(t *testing.T) {
	out, result := run(t, "print 1 + 2 * 3;")
	if result != InterpretOK {
		t.Fatalf("unexpected result %v", result)
	}
	if out != "7\n" {
		t.Fatalf("got %q", out)
	}
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	out, _ := run(t, "print (1 + 2) * 3;")
	if out != "9\n" {
		t.Fatalf("got %q", out)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, _ := run(t, `print "st" + "ri" + "ng";`)
	if out != "string\n" {
		t.Fatalf("got %q", out)
	}
}

func TestBlockScopingShadowsAndRestores(t *testing.T) {
	out, _ := run(t, "var a = 1; { var a = 2; print a; } print a;")
	if out != "2\n1\n" {
		t.Fatalf("got %q", out)
	}
}

func TestGlobalAssignmentAfterDeclaration(t *testing.T) {
	out, _ := run(t, "var x; print x; x = 42; print x;")
	if out != "nil\n42\n" {
		t.Fatalf("got %q", out)
	}
}

func TestComparisonAndLogicalNotAndNilEquality(t *testing.T) {
	out, _ := run(t, "print 1 < 2; print !nil; print nil == false;")
	if out != "true\ntrue\nfalse\n" {
		t.Fatalf("got %q", out)
	}
}

func TestNegatingNonNumberIsARuntimeError(t *testing.T) {
	out, result := run(t, `print -"abc";`)
	if result != InterpretRuntimeError {
		t.Fatalf("expected a runtime error, got %v", result)
	}
	if !strings.Contains(out, "Operand must be a number.") {
		t.Fatalf("got %q", out)
	}
}

func TestReadingUndefinedGlobalIsARuntimeError(t *testing.T) {
	out, result := run(t, "print nope;")
	if result != InterpretRuntimeError {
		t.Fatalf("expected a runtime error, got %v", result)
	}
	if !strings.Contains(out, "Undefined variable 'nope'.") {
		t.Fatalf("got %q", out)
	}
}

func TestAssigningUndefinedGlobalIsARuntimeErrorAndDoesNotDefineIt(t *testing.T) {
	v := New()
	defer v.Free()
	var buf bytes.Buffer
	v.Out = &buf

	if result := v.Interpret("nope = 1;"); result != InterpretRuntimeError {
		t.Fatalf("expected a runtime error, got %v", result)
	}
	if !strings.Contains(buf.String(), "Undefined variable 'nope'.") {
		t.Fatalf("got %q", buf.String())
	}

	buf.Reset()
	if result := v.Interpret("print nope;"); result != InterpretRuntimeError {
		t.Fatalf("expected nope to remain undefined, got %v", result)
	}
}

func TestReadOwnInitializerIsACompileError(t *testing.T) {
	_, result := run(t, "{ var a = a; }")
	if result != InterpretCompileError {
		t.Fatalf("expected a compile error, got %v", result)
	}
}

func TestInvalidAssignmentTargetIsACompileError(t *testing.T) {
	_, result := run(t, "1 + 2 = 3;")
	if result != InterpretCompileError {
		t.Fatalf("expected a compile error, got %v", result)
	}
}

func TestGlobalsAndInternsPersistAcrossInterpretCallsOnTheSameVM(t *testing.T) {
	v := New()
	defer v.Free()
	var buf bytes.Buffer
	v.Out = &buf

	if result := v.Interpret(`var greeting = "hi";`); result != InterpretOK {
		t.Fatalf("unexpected result %v", result)
	}
	buf.Reset()
	if result := v.Interpret("print greeting;"); result != InterpretOK {
		t.Fatalf("unexpected result %v", result)
	}
	if buf.String() != "hi\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestStringEqualityIsByInternedIdentityAndWorksAcrossConcatenation(t *testing.T) {
	out, _ := run(t, `print "ab" + "c" == "abc";`)
	if out != "true\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRuntimeErrorResetsStackForNextInterpretCall(t *testing.T) {
	v := New()
	defer v.Free()
	var buf bytes.Buffer
	v.Out = &buf

	v.Interpret(`print -"abc";`)
	if v.stackTop != 0 {
		t.Fatalf("expected stack reset to 0 after a runtime error, got %d", v.stackTop)
	}

	buf.Reset()
	if result := v.Interpret("print 1;"); result != InterpretOK {
		t.Fatalf("VM should remain usable after a runtime error, got %v", result)
	}
	if buf.String() != "1\n" {
		t.Fatalf("got %q", buf.String())
	}
}
