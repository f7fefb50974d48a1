// Package view turns the link cache into a display-ready projection and
// defines the Renderer capability that presents it.
//
// Projection is cheap and does no I/O, so it is rebuilt after every cache
// mutation. Renderers live in the report package.
package view
