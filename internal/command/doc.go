// Package command runs the line-oriented command language used to drive a
// loaded form from a script file or an interactive shell.
package command
