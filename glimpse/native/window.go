//go:build !js

// Package native provides a desktop window based on glfw.
package native

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/oliverbestmann/onscreen/glimpse"
	"github.com/oliverbestmann/webgpu/wgpu"
	"github.com/oliverbestmann/webgpu/wgpuglfw"
)

type Options struct {
	Width  int
	Height int
	Title  string

	// defaults to true
	Resizable *bool
}

type Window struct {
	win *glfw.Window

	// events collected by the glfw callbacks during PollEvents
	mu      sync.Mutex
	pending []glimpse.Event
	closed  bool
}

// NewWindow creates a window without a client api, the surface is created
// by the graphics driver. Must be called from the main thread.
func NewWindow(opts Options) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	if opts.Resizable != nil && !*opts.Resizable {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	window, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{win: window}

	configureEvents(window, w)

	return w, nil
}

func (g *Window) Size() (uint32, uint32) {
	width, height := g.win.GetFramebufferSize()
	return uint32(width), uint32(height)
}

func (g *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.win)
}

func (g *Window) PollEvents() []glimpse.Event {
	glfw.PollEvents()

	g.mu.Lock()
	defer g.mu.Unlock()

	events := g.pending
	g.pending = nil

	if g.win.ShouldClose() && !g.closed {
		g.closed = true
		events = append(events, glimpse.Close())
	}

	return append(events, glimpse.Tick())
}

func (g *Window) push(event glimpse.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending = append(g.pending, event)
}

func (g *Window) Terminate() {
	g.win.Destroy()
	glfw.Terminate()
}

func configureEvents(window *glfw.Window, target *Window) {
	window.SetFramebufferSizeCallback(func(_win *glfw.Window, width int, height int) {
		slog.Debug("Framebuffer resized",
			slog.Int("width", width),
			slog.Int("height", height),
		)

		target.push(glimpse.Resize(uint32(width), uint32(height)))
	})

	window.SetKeyCallback(func(_win *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press && (key == glfw.KeyEscape || key == glfw.KeyQ) {
			window.SetShouldClose(true)
		}
	})
}
