/*

Process of compilation

Program Text ->
	parse ->
Typed Expression Tree (ast) ->
	lower ->
Sequential IR (sir) ->
	backend ->
Executable Code

The sir package is the heart: it linearizes the expression tree into
functions and basic blocks, then corrects function parameters so every
function receives the outer values it reads.

*/
package compiler
