package batch

import "meshbatch/internal/pipeline"

// ResolveScope returns the target nodes of a run. No names means the whole
// pipeline and yields nil.
func ResolveScope(p *pipeline.Pipeline, names []string) ([]*pipeline.Node, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return p.FindNodes(names)
}
