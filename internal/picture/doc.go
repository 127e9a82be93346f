// Package picture validates raw values against picture clauses such as
// num{zzzz9.99}, text{999-AAA} or date{YYYY-MM-DD}.
//
// A clause is compiled to an anchored regular expression using the
// separators of a locale. Alternatives are separated by '|'. Characters in
// single quotes are literal.
package picture
