package main

import (
	"fmt"

	ezpdf "github.com/alnah/go-ezpdf"
)

// Pool abstracts renderer pool operations for testability.
type Pool interface {
	Acquire() Renderer
	Release(Renderer)
	Size() int
	Close() error
}

// poolAdapter exposes *ezpdf.RendererPool through the Pool interface.
type poolAdapter struct {
	pool *ezpdf.RendererPool
}

// Compile-time check that poolAdapter implements Pool.
var _ Pool = (*poolAdapter)(nil)

// Acquire returns nil once the pool is closed.
func (a *poolAdapter) Acquire() Renderer {
	r := a.pool.Acquire()
	if r == nil {
		return nil
	}
	return r
}

// Release panics when given a renderer the pool did not hand out.
func (a *poolAdapter) Release(r Renderer) {
	if r == nil {
		return
	}
	renderer, ok := r.(*ezpdf.Renderer)
	if !ok {
		panic(fmt.Sprintf("poolAdapter.Release: unexpected type %T", r))
	}
	a.pool.Release(renderer)
}

func (a *poolAdapter) Size() int {
	return a.pool.Size()
}

func (a *poolAdapter) Close() error {
	return a.pool.Close()
}
