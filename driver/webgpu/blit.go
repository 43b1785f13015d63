package webgpu

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

//go:embed blit.wgsl
var blitShaderCode string

type blitPipelineConfig struct {
	TargetFormat wgpu.TextureFormat
	EntryPoint   string
}

// fragmentEntryPoint picks the shader that keeps the stored srgb values
// intact when exactly one of source and target reads or writes through
// an srgb format.
func fragmentEntryPoint(source, target pulse.TextureFormat) string {
	switch {
	case target.IsSrgb() && !source.IsSrgb():
		return "fs_decode"

	case source.IsSrgb() && !target.IsSrgb():
		return "fs_encode"

	default:
		return "fs_main"
	}
}

// blitter translates command lists into render passes.
type blitter struct {
	device    *wgpu.Device
	pipelines *pulse.Cache[blitPipelineConfig, *wgpu.RenderPipeline]
	samplers  *pulse.Cache[wgpu.FilterMode, *wgpu.Sampler]
}

func newBlitter(device *wgpu.Device) *blitter {
	return &blitter{
		device: device,
		pipelines: pulse.NewCache[blitPipelineConfig, *wgpu.RenderPipeline]("blit pipeline", 8, func(pipeline *wgpu.RenderPipeline) {
			pipeline.Release()
		}),
		samplers: pulse.NewCache[wgpu.FilterMode, *wgpu.Sampler]("blit sampler", 4, func(sampler *wgpu.Sampler) {
			sampler.Release()
		}),
	}
}

// Encode records the command list into a command buffer. The returned
// release function frees the per list resources after submission.
func (b *blitter) Encode(list *pulse.CommandList, target *swapImage) (*wgpu.CommandBuffer, func(), error) {
	var bindGroups []*wgpu.BindGroup

	release := func() {
		for _, group := range bindGroups {
			group.Release()
		}
	}

	encoder := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: list.Label})
	defer encoder.Release()

	var pass *wgpu.RenderPassEncoder

	endPass := func() {
		if pass != nil {
			pass.End()
			pass = nil
		}
	}

	beginPass := func(loadOp wgpu.LoadOp, clear wgpu.Color) {
		endPass()

		pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: list.Label,
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       target.view,
					LoadOp:     loadOp,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: clear,
				},
			},
		})
	}

	for _, cmd := range list.Commands {
		switch cmd := cmd.(type) {
		case pulse.ClearCommand:
			beginPass(wgpu.LoadOpClear, clearValue(cmd.Color, target.format))

		case pulse.BlitCommand:
			source, err := asTexture(cmd.Source)
			if err != nil {
				endPass()
				release()
				return nil, nil, fmt.Errorf("blit: %w", err)
			}

			dest := cmd.Dest.Intersect(pulse.RectangleFromXYWH(0, 0, target.extent.Width, target.extent.Height))
			if dest.Empty() {
				continue
			}

			if pass == nil {
				beginPass(wgpu.LoadOpLoad, wgpu.Color{})
			}

			group, err := b.draw(pass, source, cmd, dest, target.format)
			if err != nil {
				endPass()
				release()
				return nil, nil, fmt.Errorf("blit: %w", err)
			}

			bindGroups = append(bindGroups, group)

		default:
			endPass()
			release()
			return nil, nil, fmt.Errorf("unsupported command %T", cmd)
		}
	}

	endPass()

	return encoder.Finish(&wgpu.CommandBufferDescriptor{Label: list.Label}), release, nil
}

func (b *blitter) draw(pass *wgpu.RenderPassEncoder, source *texture2D, cmd pulse.BlitCommand, clip pulse.Rectangle2u, format pulse.TextureFormat) (*wgpu.BindGroup, error) {
	targetFormat, _ := toWGPUFormat(format)

	conf := blitPipelineConfig{
		TargetFormat: targetFormat,
		EntryPoint:   fragmentEntryPoint(source.format, format),
	}

	pipeline, err := b.pipelines.Get(conf, b.specialize)
	if err != nil {
		return nil, err
	}

	sampler, err := b.samplers.Get(toWGPUFilter(cmd.Filter), b.createSampler)
	if err != nil {
		return nil, err
	}

	bindGroup := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit BindGroup",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{
				Binding:     0,
				TextureView: source.view,
			},
			{
				Binding: 1,
				Sampler: sampler,
			},
		},
	})

	// the viewport maps the fullscreen triangle onto the destination
	x, y, w, h := cmd.Dest.XYWH()
	pass.SetViewport(float32(x), float32(y), float32(w), float32(h), 0, 1)

	pass.SetScissorRect(clip.XYWH())

	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)

	return bindGroup, nil
}

func (b *blitter) createSampler(filter wgpu.FilterMode) (sampler *wgpu.Sampler, err error) {
	defer recoverError(&err, nil)

	return b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Blit-Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   1,
		MaxAnisotropy: 1,
	}), nil
}

func (b *blitter) specialize(conf blitPipelineConfig) (pipeline *wgpu.RenderPipeline, err error) {
	defer recoverError(&err, nil)

	pulse.Logger().Info("Create RenderPipeline for blit", slog.Any("format", conf.TargetFormat),
		slog.String("entryPoint", conf.EntryPoint))

	shader := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:      "Blit.ShaderSource",
		WGSLSource: &wgpu.ShaderSourceWGSL{Code: blitShaderCode},
	})

	defer shader.Release()

	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: fmt.Sprintf("Blit.%s.%s", conf.TargetFormat, conf.EntryPoint),
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: conf.EntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    conf.TargetFormat,
					Blend:     &wgpu.BlendStateReplace,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	}), nil
}

func (b *blitter) Release() {
	b.pipelines.Purge()
	b.samplers.Purge()
}
