package parser

// Grammar structs for participle parser.

type payloadGrammar struct {
	Items []*itemGrammar `parser:"@@ ( ',' @@ )*"`
}

type itemGrammar struct {
	Left  *termGrammar `parser:"@@"`
	Right *termGrammar `parser:"( '+' @@ )?"`
}

type termGrammar struct {
	Call   *callGrammar `parser:"( @@"`
	Int    *string      `parser:"| @Int"`
	String *string      `parser:"| @String )"`
}

type callGrammar struct {
	Name string        `parser:"@Ident '('"`
	Args []*argGrammar `parser:"( @@ ( ',' @@ )* )? ')'"`
}

type argGrammar struct {
	Ident  *string `parser:"( @Ident"`
	Int    *string `parser:"| @Int"`
	String *string `parser:"| @String )"`
}
