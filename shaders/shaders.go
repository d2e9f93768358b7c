package shaders

import (
	_ "embed"
)

//go:embed depth_prepass.wgsl
var DepthPrepassWGSL string

//go:embed cluster_cull.wgsl
var ClusterCullWGSL string

//go:embed shadow_map.wgsl
var ShadowMapWGSL string

//go:embed cluster_shade.wgsl
var ClusterShadeWGSL string

//go:embed contact_shadow.wgsl
var ContactShadowWGSL string

//go:embed hud_text.wgsl
var HudTextWGSL string
