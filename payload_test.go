package crax_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/benbjohnson/crax"
	"github.com/google/go-cmp/cmp"
)

func TestByteVectorExpr_String(t *testing.T) {
	t.Run("Hello", func(t *testing.T) {
		expr := crax.NewByteVectorExpr([]byte("Hello!\n"))
		if s := expr.String(); s != `b'\x48\x65\x6c\x6c\x6f\x21\x0a'` {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		if s := crax.NewByteVectorExpr(nil).String(); s != "b''" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("AllBytes", func(t *testing.T) {
		b := make([]byte, 256)
		exp := "b'"
		for i := range b {
			b[i] = byte(i)
			exp += fmt.Sprintf(`\x%02x`, i)
		}
		exp += "'"
		if s := crax.NewByteVectorExpr(b).String(); s != exp {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestByteVectorExpr_Bytes(t *testing.T) {
	t.Run("CopyOnCreate", func(t *testing.T) {
		b := []byte{0xAA, 0xBB}
		expr := crax.NewByteVectorExpr(b)
		b[0] = 0x00
		if diff := cmp.Diff([]byte{0xAA, 0xBB}, expr.Bytes()); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("CopyOnRead", func(t *testing.T) {
		expr := crax.NewByteVectorExpr([]byte{0xAA, 0xBB})
		expr.Bytes()[0] = 0x00
		if diff := cmp.Diff([]byte{0xAA, 0xBB}, expr.Bytes()); diff != "" {
			t.Fatal(diff)
		} else if n := expr.Len(); n != 2 {
			t.Fatalf("unexpected len: %d", n)
		}
	})
}

func TestPlaceholderExpr_UserData(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		expr := crax.NewPlaceholderExpr("Exploit metadata: stage=1")
		if v := expr.UserData(); v != "Exploit metadata: stage=1" {
			t.Fatalf("unexpected user data: %s", v)
		}
	})
	t.Run("Struct", func(t *testing.T) {
		type stage struct {
			N    int
			Tags []string
		}
		v := stage{N: 2, Tags: []string{"rop", "leak"}}
		expr := crax.Expr(crax.NewPlaceholderExpr(v))
		if p, ok := crax.As[*crax.PlaceholderExpr[stage]](expr); !ok {
			t.Fatal("expected ok")
		} else if diff := cmp.Diff(v, p.UserData()); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Interface", func(t *testing.T) {
		expr := crax.Expr(crax.NewPlaceholderExpr[fmt.Stringer](crax.NewConstantExpr64(1)))
		if _, ok := crax.As[*crax.PlaceholderExpr[*crax.ConstantExpr]](expr); ok {
			t.Fatal("expected no value")
		} else if p, ok := crax.As[*crax.PlaceholderExpr[fmt.Stringer]](expr); !ok {
			t.Fatal("expected ok")
		} else if s := p.UserData().String(); s != "(const 0x1 64)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestPlaceholderExpr_String(t *testing.T) {
	if s := crax.NewPlaceholderExpr(100).String(); s != "(placeholder int)" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestUserDataOf(t *testing.T) {
	if v, ok := crax.UserDataOf(crax.NewPlaceholderExpr(uint16(7))); !ok {
		t.Fatal("expected ok")
	} else if reflect.TypeOf(v) != reflect.TypeOf(uint16(0)) || v.(uint16) != 7 {
		t.Fatalf("unexpected user data: %#v", v)
	}
	if _, ok := crax.UserDataOf(crax.NewConstantExpr64(7)); ok {
		t.Fatal("expected no value")
	}
}

func TestLambdaExpr_Invoke(t *testing.T) {
	t.Run("Repeated", func(t *testing.T) {
		var n int
		expr := crax.NewLambdaExpr(func() { n++ })
		for i := 0; i < 5; i++ {
			expr.Invoke()
		}
		if n != 5 {
			t.Fatalf("unexpected count: %d", n)
		}
	})
	t.Run("NotInvokedOnCreate", func(t *testing.T) {
		var n int
		crax.NewLambdaExpr(func() { n++ })
		if n != 0 {
			t.Fatalf("unexpected count: %d", n)
		}
	})
	t.Run("Action", func(t *testing.T) {
		a := &countAction{}
		expr := crax.Expr(crax.NewActionExpr(a))
		if le, ok := crax.As[*crax.LambdaExpr](expr); !ok {
			t.Fatal("expected ok")
		} else {
			le.Invoke()
			le.Invoke()
		}
		if a.n != 2 {
			t.Fatalf("unexpected count: %d", a.n)
		}
	})
	t.Run("NilFunc", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		crax.NewLambdaExpr(nil)
	})
}

type countAction struct{ n int }

func (a *countAction) Execute() { a.n++ }
