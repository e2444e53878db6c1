package soft

import (
	"fmt"

	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"
)

const maxFreePerKey = 4

type poolKey struct {
	w, h   int
	format mosh.Format
}

// Pool is a mosh.BufferPool of CPU buffers. Released buffers are kept on a
// small free list and reused for requests of the same size and format.
type Pool struct {
	live map[*Buffer]struct{}
	free map[poolKey][]*Buffer

	acquired   int
	released   int
	badRelease int
}

func NewPool() *Pool {
	return &Pool{
		live: make(map[*Buffer]struct{}),
		free: make(map[poolKey][]*Buffer),
	}
}

func (p *Pool) Acquire(w, h int, format mosh.Format) (mosh.Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("soft: acquire %dx%d %s: %w", w, h, format, mosh.ErrInvalidSize)
	}

	key := poolKey{w, h, format}
	var b *Buffer
	if list := p.free[key]; len(list) > 0 {
		b = list[len(list)-1]
		p.free[key] = list[:len(list)-1]
	} else {
		b = NewBuffer(w, h, format)
	}

	p.live[b] = struct{}{}
	p.acquired++
	return b, nil
}

func (p *Pool) Release(mb mosh.Buffer) {
	b, ok := mb.(*Buffer)
	if !ok {
		utils.Error("soft: release of foreign buffer %T", mb)
		p.badRelease++
		return
	}
	if _, ok := p.live[b]; !ok {
		utils.Error("soft: release of buffer %dx%d %s that is not live", b.w, b.h, b.format)
		p.badRelease++
		return
	}
	delete(p.live, b)
	p.released++

	key := poolKey{b.w, b.h, b.format}
	if len(p.free[key]) < maxFreePerKey {
		p.free[key] = append(p.free[key], b)
	}
}

// Live returns the number of acquired, unreleased buffers.
func (p *Pool) Live() int { return len(p.live) }

func (p *Pool) Acquired() int { return p.acquired }

func (p *Pool) Released() int { return p.released }

// BadReleases counts releases of buffers the pool did not consider live.
func (p *Pool) BadReleases() int { return p.badRelease }

// IsLive reports whether b is currently acquired from p.
func (p *Pool) IsLive(mb mosh.Buffer) bool {
	b, ok := mb.(*Buffer)
	if !ok {
		return false
	}
	_, ok = p.live[b]
	return ok
}
