package engine2D

import (
	"linux-datamosh/internal/mosh"
	"linux-datamosh/internal/utils"
)

// RenderTexturePool hands out render textures to the controller. Released
// targets are unloaded right away; the controller reacquires at most two per
// eye per frame.
type RenderTexturePool struct {
	live     map[*Target]struct{}
	acquired int
	released int
}

func NewRenderTexturePool() *RenderTexturePool {
	return &RenderTexturePool{live: make(map[*Target]struct{})}
}

func (p *RenderTexturePool) Acquire(width, height int, format mosh.Format) (mosh.Buffer, error) {
	t, err := NewTarget(width, height, format)
	if err != nil {
		return nil, err
	}
	p.live[t] = struct{}{}
	p.acquired++
	return t, nil
}

func (p *RenderTexturePool) Release(b mosh.Buffer) {
	t, ok := b.(*Target)
	if !ok {
		utils.Error("RenderTexturePool: release of foreign buffer %T", b)
		return
	}
	if _, live := p.live[t]; !live {
		utils.Error("RenderTexturePool: release of %dx%d %s target not owned by the pool", t.Width(), t.Height(), t.Format())
		return
	}
	delete(p.live, t)
	p.released++
	t.Unload()
}

// Live reports how many targets are currently out.
func (p *RenderTexturePool) Live() int { return len(p.live) }

// Close unloads anything still out. Callers are expected to have released
// everything; leftovers are logged.
func (p *RenderTexturePool) Close() {
	if len(p.live) > 0 {
		utils.Warn("RenderTexturePool: %d targets still live at close", len(p.live))
	}
	for t := range p.live {
		t.Unload()
		delete(p.live, t)
	}
}
