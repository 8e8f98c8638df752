package tools

import "github.com/domlens/domlens/internal/hints"

// RegisterDefaults wires the full tool surface onto a registry.
func RegisterDefaults(r *Registry, tabs TabSource, sessions *hints.Registry, dial HostDialer) {
	r.Register(NewListTabsTool(tabs))
	r.Register(NewDomTreeTool(tabs))
	r.Register(NewFlattenDomTool(tabs))
	r.Register(NewAttachPageTool(sessions, dial))
	r.Register(NewDetachPageTool(sessions))
	r.Register(NewDetectHintsTool(sessions))
	r.Register(NewShowHintsTool(sessions))
	r.Register(NewHideHintsTool(sessions))
	r.Register(NewClickHintTool(sessions))
}
