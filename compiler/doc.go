/*

Process of compilation

Abstract Syntax Tree (ast) + Symbol Table (symtab) ->
	front ->
Intermediate Representation (ir) ->
	df, regalloc ->
Intermediate Representation with registers ->
	back ->
Jasmin Assembly Text

*/
package compiler
